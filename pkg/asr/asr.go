// Package asr defines the speech-to-text service used for audio inputs.
package asr

import (
	"context"

	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
)

// Result is a completed transcription. Text is the full transcript and is
// used when the service returns no segments.
type Result struct {
	Segments []meeting.Segment
	Text     string
	Language string
	Duration float64
	Model    string
}

// Input converts the result into a speech transcript input.
func (r *Result) Input(name string) meeting.TranscriptInput {
	return meeting.TranscriptInput{
		Kind:     meeting.KindSpeech,
		Name:     name,
		Segments: r.Segments,
		FullText: r.Text,
	}
}

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
