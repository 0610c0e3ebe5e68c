package analysis

import "strings"

// TangentSpan is a maximal run of consecutive off-topic chunks.
type TangentSpan struct {
	StartSec *float64 `json:"startSec" yaml:"start_sec"`
	EndSec   *float64 `json:"endSec" yaml:"end_sec"`
	// Similarity is always null in reports; kept for output compatibility.
	Similarity *float64 `json:"similarity" yaml:"similarity"`
	Snippet    string   `json:"snippet" yaml:"snippet"`
	FirstChunk int      `json:"firstChunk" yaml:"first_chunk"`
	LastChunk  int      `json:"lastChunk" yaml:"last_chunk"`
}

// MergeTangents collapses runs of off-topic chunks into spans. A span starts at
// the first chunk's start and ends at the largest end in the run. Untimed
// transcripts produce spans with nil bounds.
func MergeTangents(chunks []Chunk, cls []Classification, timed bool, snippetRunes int) []TangentSpan {
	var spans []TangentSpan
	for i := 0; i < len(chunks) && i < len(cls); {
		if !cls[i].OffTopic {
			i++
			continue
		}

		span := TangentSpan{
			FirstChunk: i,
			Snippet:    snippet(chunks[i].Text, snippetRunes),
		}
		var start, end float64
		if chunks[i].Start != nil && chunks[i].End != nil {
			start, end = *chunks[i].Start, *chunks[i].End
		}

		j := i + 1
		for j < len(chunks) && j < len(cls) && cls[j].OffTopic {
			if chunks[j].End != nil && *chunks[j].End > end {
				end = *chunks[j].End
			}
			j++
		}
		span.LastChunk = j - 1

		if timed {
			span.StartSec, span.EndSec = &start, &end
		}
		spans = append(spans, span)
		i = j
	}
	return spans
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
