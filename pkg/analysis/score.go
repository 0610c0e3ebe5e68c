package analysis

import "math"

// Coverage is the time accumulated per agenda item. Durations are minutes for
// timed transcripts and chunk counts otherwise.
type Coverage struct {
	PerItem []float64
	Total   float64
	Tangent float64
}

// Accumulate attributes each chunk's duration to the tangent total when it is
// off-topic, or to its best-matching agenda item otherwise. Every chunk counts
// toward the overall total.
func Accumulate(chunks []Chunk, cls []Classification, agendaLen int, timed bool) Coverage {
	cov := Coverage{PerItem: make([]float64, agendaLen)}
	for i := 0; i < len(chunks) && i < len(cls); i++ {
		dur := 1.0
		if timed {
			dur = chunks[i].Duration() / 60
		}
		cov.Total += dur
		if cls[i].OffTopic {
			cov.Tangent += dur
			continue
		}
		if idx := cls[i].BestIndex; idx >= 0 && idx < agendaLen {
			cov.PerItem[idx] += dur
		}
	}
	return cov
}

// ScoreBreakdown exposes the terms of the composite score.
type ScoreBreakdown struct {
	FocusRatio     float64 `json:"focusRatio" yaml:"focus_ratio"`
	AdherenceRatio float64 `json:"adherenceRatio" yaml:"adherence_ratio"`
	BalanceScore   float64 `json:"balanceScore" yaml:"balance_score"`
	ActionDensity  float64 `json:"actionDensity" yaml:"action_density"`
	ActionCount    int     `json:"actionCount" yaml:"action_count"`
	FocusScore     float64 `json:"focusScore" yaml:"focus_score"`
	AdherenceScore float64 `json:"adherenceScore" yaml:"adherence_score"`
	ActionScore    float64 `json:"actionScore" yaml:"action_score"`
	TotalTime      float64 `json:"totalTime" yaml:"total_time"`
	TangentTime    float64 `json:"tangentTime" yaml:"tangent_time"`
}

// Score computes the composite 0-100 meeting score.
func Score(cov Coverage, actionCount int, timed bool, balance float64) (int, ScoreBreakdown) {
	b := ScoreBreakdown{
		BalanceScore: balance,
		ActionCount:  actionCount,
		TotalTime:    cov.Total,
		TangentTime:  cov.Tangent,
	}

	if cov.Total > 0 {
		b.FocusRatio = math.Max(0, 1-cov.Tangent/cov.Total)
	}

	covered := 0
	for _, m := range cov.PerItem {
		if m > 0 {
			covered++
		}
	}
	b.AdherenceRatio = float64(covered) / math.Max(1, float64(len(cov.PerItem)))

	switch {
	case !timed:
		b.ActionDensity = float64(actionCount) / untimedActionUnits
	case cov.Total > 0:
		b.ActionDensity = float64(actionCount) / (cov.Total / actionBlockMinutes)
	}

	b.FocusScore = focusWeight * b.FocusRatio
	b.AdherenceScore = adherenceWeight * b.AdherenceRatio
	b.ActionScore = actionWeight * math.Min(1, b.ActionDensity)

	total := b.FocusScore + b.AdherenceScore + b.BalanceScore + b.ActionScore
	return int(math.Round(math.Max(0, math.Min(100, total)))), b
}

// CoverageRatio returns actual/planned capped at 1.
func CoverageRatio(actual, planned float64) float64 {
	return math.Min(1, actual/math.Max(minPlannedMinutes, planned))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
