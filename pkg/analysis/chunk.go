package analysis

import (
	"strings"

	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
)

// Chunk is a run of consecutive segments classified as one unit.
type Chunk struct {
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Text  string   `json:"text"`
}

// Duration returns the chunk length in seconds, or 0 when untimed.
func (c Chunk) Duration() float64 {
	if c.Start == nil || c.End == nil {
		return 0
	}
	if d := *c.End - *c.Start; d > 0 {
		return d
	}
	return 0
}

// BuildChunks aggregates a transcript's segments into analysis chunks.
//
// Timed transcripts accumulate segments while segment.End - chunk.Start stays
// within cfg.WindowSeconds; a segment that would overflow starts a new chunk.
// Untimed transcripts are grouped in batches of cfg.BatchSize. When nothing
// survives, a single chunk carrying the full transcript text is returned.
func BuildChunks(t *meeting.Transcript, cfg Config) []Chunk {
	var chunks []Chunk
	if t.Timed {
		chunks = timedChunks(t.Segments, cfg.WindowSeconds)
	} else {
		chunks = batchedChunks(t.Segments, cfg.BatchSize)
	}

	if len(chunks) == 0 {
		fallback := Chunk{Text: strings.TrimSpace(t.FullText)}
		if t.Timed {
			zero := 0.0
			fallback.Start, fallback.End = &zero, &zero
		}
		chunks = append(chunks, fallback)
	}
	return chunks
}

func timedChunks(segments []meeting.Segment, window float64) []Chunk {
	var (
		chunks           []Chunk
		parts            []string
		curStart, curEnd float64
	)

	flush := func() {
		if text := strings.TrimSpace(strings.Join(parts, " ")); text != "" {
			start, end := curStart, curEnd
			chunks = append(chunks, Chunk{Start: &start, End: &end, Text: text})
		}
	}

	for _, s := range segments {
		if s.Start == nil || s.End == nil {
			continue
		}
		if len(parts) == 0 {
			curStart, curEnd = *s.Start, *s.End
		}
		if *s.End-curStart <= window {
			parts = append(parts, s.Text)
			curEnd = *s.End
			continue
		}
		flush()
		parts = []string{s.Text}
		curStart, curEnd = *s.Start, *s.End
	}
	if len(parts) > 0 {
		flush()
	}
	return chunks
}

func batchedChunks(segments []meeting.Segment, size int) []Chunk {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks []Chunk
	for i := 0; i < len(segments); i += size {
		end := i + size
		if end > len(segments) {
			end = len(segments)
		}
		parts := make([]string, 0, end-i)
		for _, s := range segments[i:end] {
			parts = append(parts, s.Text)
		}
		if text := strings.TrimSpace(strings.Join(parts, " ")); text != "" {
			chunks = append(chunks, Chunk{Text: text})
		}
	}
	return chunks
}

// Texts returns the chunk texts in order, ready for embedding.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
