package analysis

import (
	"time"

	"github.com/otherjamesbrown/focusflow/pkg/ai"
)

// Duration units used in AgendaCoverage.
const (
	UnitMinutes = "min"
	UnitChunks  = "chunks"
)

// AgendaCoverage is the planned-versus-actual time for one agenda item.
type AgendaCoverage struct {
	Title      string  `json:"title" yaml:"title"`
	PlannedMin float64 `json:"plannedMin" yaml:"planned_min"`
	// ActualMin is minutes for timed transcripts and chunk counts otherwise (see Unit).
	ActualMin float64 `json:"actualMin" yaml:"actual_min"`
	Coverage  float64 `json:"coverage" yaml:"coverage"`
	Unit      string  `json:"unit" yaml:"unit"`
}

// Report is the result of analyzing one meeting.
type Report struct {
	ID                 string           `json:"id" yaml:"id"`
	Title              string           `json:"title,omitempty" yaml:"title,omitempty"`
	MeetingDurationMin *float64         `json:"meetingDurationMin" yaml:"meeting_duration_min"`
	Summary            []string         `json:"summary" yaml:"summary"`
	Decisions          []string         `json:"decisions" yaml:"decisions"`
	Actions            []ai.Action      `json:"actions" yaml:"actions"`
	Score              int              `json:"score" yaml:"score"`
	Agenda             []AgendaCoverage `json:"agenda" yaml:"agenda"`
	Tangents           []TangentSpan    `json:"tangents" yaml:"tangents"`
	Breakdown          ScoreBreakdown   `json:"breakdown" yaml:"breakdown"`
	Timed              bool             `json:"timed" yaml:"timed"`
	TranscriptKind     string           `json:"transcriptKind" yaml:"transcript_kind"`
	ChunkCount         int              `json:"chunkCount" yaml:"chunk_count"`
	CreatedAt          time.Time        `json:"createdAt" yaml:"created_at"`
}

// TangentMinutes returns the summed tangent span length, or 0 when untimed.
func (r *Report) TangentMinutes() float64 {
	var total float64
	for _, t := range r.Tangents {
		if t.StartSec != nil && t.EndSec != nil && *t.EndSec > *t.StartSec {
			total += (*t.EndSec - *t.StartSec) / 60
		}
	}
	return round2(total)
}
