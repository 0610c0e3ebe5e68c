// Package meeting normalizes meeting transcripts (transcribed speech, subtitle
// cue files and plain text) into a single timed-or-untimed segment sequence.
package meeting

// Kind selects how a transcript input is interpreted.
type Kind string

const (
	// KindAuto picks a kind from the input's file name and content.
	KindAuto Kind = "auto"
	// KindSpeech is a list of timed segments from a transcription service.
	KindSpeech Kind = "speech"
	// KindCue is SRT or WebVTT subtitle text.
	KindCue Kind = "cue"
	// KindPlain is untimed text.
	KindPlain Kind = "plain"
)

// ParseKind maps a mode name to a Kind. Empty selects KindAuto.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case "":
		return KindAuto, true
	case KindAuto, KindSpeech, KindCue, KindPlain:
		return Kind(s), true
	case "audio":
		return KindSpeech, true
	case "subtitles", "srt", "vtt":
		return KindCue, true
	case "text", "txt":
		return KindPlain, true
	}
	return "", false
}

// Segment is one atomic span of speech or text. Start and End are seconds and
// are either both set or both nil across a whole transcript.
type Segment struct {
	Start *float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End   *float64 `json:"end,omitempty" yaml:"end,omitempty"`
	Text  string   `json:"text" yaml:"text"`
}

// Timed reports whether the segment carries timing.
func (s Segment) Timed() bool {
	return s.Start != nil && s.End != nil
}

// TimedSegment builds a segment with both bounds set.
func TimedSegment(start, end float64, text string) Segment {
	return Segment{Start: &start, End: &end, Text: text}
}

// TranscriptInput is the tagged transcript variant accepted by Normalize.
// Speech inputs use Segments (and FullText as a fallback) or a saved
// transcription in Data; cue and plain inputs use Data. Name is the source
// file name, used for KindAuto. AudioPath names a recording that must be
// transcribed into Segments before normalization.
type TranscriptInput struct {
	Kind      Kind
	Name      string
	Segments  []Segment
	FullText  string
	Data      []byte
	AudioPath string
}

// NeedsTranscription reports whether the input is an untranscribed recording.
func (in TranscriptInput) NeedsTranscription() bool {
	return in.AudioPath != "" && len(in.Segments) == 0 && in.FullText == "" && len(in.Data) == 0
}

// Transcript is a normalized transcript.
type Transcript struct {
	Segments []Segment `json:"segments"`
	// Timed is derived once from the segments and consumed by chunking and scoring.
	Timed    bool   `json:"timed"`
	FullText string `json:"full_text"`
	Format   Kind   `json:"format"`
}

// DurationSeconds returns the largest segment end, or 0 when untimed.
func (t *Transcript) DurationSeconds() float64 {
	var max float64
	for _, s := range t.Segments {
		if s.End != nil && *s.End > max {
			max = *s.End
		}
	}
	return max
}
