package analysis

import (
	"fmt"
	"time"

	"github.com/otherjamesbrown/focusflow/pkg/agenda"
	"github.com/otherjamesbrown/focusflow/pkg/ai"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
)

// Input is everything Compute needs. All external results (vectors and
// summary) are complete before Compute runs.
type Input struct {
	ID            string
	Title         string
	Agenda        []agenda.Item
	Transcript    *meeting.Transcript
	Chunks        []Chunk
	ChunkVectors  [][]float32
	AgendaVectors [][]float32
	Summary       ai.Summary
	CreatedAt     time.Time
}

// Compute classifies chunks, merges tangents and scores the meeting. It is
// pure: no I/O, no shared state.
func Compute(in Input, cfg Config) (*Report, error) {
	if len(in.ChunkVectors) != len(in.Chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunk vectors for %d chunks", len(in.ChunkVectors), len(in.Chunks))
	}
	if len(in.AgendaVectors) != len(in.Agenda) {
		return nil, fmt.Errorf("embedding count mismatch: %d agenda vectors for %d items", len(in.AgendaVectors), len(in.Agenda))
	}

	timed := in.Transcript != nil && in.Transcript.Timed
	cls := Classify(in.ChunkVectors, in.AgendaVectors, cfg.Threshold)
	tangents := MergeTangents(in.Chunks, cls, timed, cfg.SnippetRunes)
	cov := Accumulate(in.Chunks, cls, len(in.Agenda), timed)

	summary := in.Summary
	if summary.Summary == nil || summary.Decisions == nil || summary.Actions == nil {
		empty := ai.EmptySummary()
		if summary.Summary == nil {
			summary.Summary = empty.Summary
		}
		if summary.Decisions == nil {
			summary.Decisions = empty.Decisions
		}
		if summary.Actions == nil {
			summary.Actions = empty.Actions
		}
	}

	score, breakdown := Score(cov, len(summary.Actions), timed, cfg.BalanceScore)

	unit := UnitChunks
	if timed {
		unit = UnitMinutes
	}
	items := make([]AgendaCoverage, len(in.Agenda))
	for i, item := range in.Agenda {
		items[i] = AgendaCoverage{
			Title:      item.Title,
			PlannedMin: round2(item.PlannedMinutes),
			ActualMin:  round2(cov.PerItem[i]),
			Coverage:   round2(CoverageRatio(cov.PerItem[i], item.PlannedMinutes)),
			Unit:       unit,
		}
	}

	report := &Report{
		ID:         in.ID,
		Title:      in.Title,
		Summary:    summary.Summary,
		Decisions:  summary.Decisions,
		Actions:    summary.Actions,
		Score:      score,
		Agenda:     items,
		Tangents:   tangents,
		Breakdown:  breakdown,
		Timed:      timed,
		ChunkCount: len(in.Chunks),
		CreatedAt:  in.CreatedAt,
	}
	if report.Tangents == nil {
		report.Tangents = []TangentSpan{}
	}
	if in.Transcript != nil {
		report.TranscriptKind = string(in.Transcript.Format)
	}
	if timed {
		d := round2(cov.Total)
		report.MeetingDurationMin = &d
	}
	return report, nil
}
