package meeting

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// speechDocument is the verbose transcription layout written by Whisper-style
// services: {"text": "...", "segments": [{"start": 0.0, "end": 4.2, "text": "..."}]}.
type speechDocument struct {
	Text     string          `json:"text"`
	Segments []speechSegment `json:"segments"`
}

type speechSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ParseSpeechJSON decodes a saved transcription, either the verbose document
// form or a bare array of segments.
func ParseSpeechJSON(data []byte) ([]Segment, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, "", nil
	}

	var doc speechDocument
	if data[0] == '[' {
		if err := json.Unmarshal(data, &doc.Segments); err != nil {
			return nil, "", fmt.Errorf("decoding speech segments: %w", err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("decoding speech transcript: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Segments))
	for _, s := range doc.Segments {
		segments = append(segments, TimedSegment(s.Start, s.End, s.Text))
	}
	return segments, doc.Text, nil
}
