package meeting

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

// Normalize resolves a transcript input into a uniform segment sequence.
// It fails with ErrMissingInput when the chosen kind has nothing to read and
// with ErrEmptyTranscript when no non-empty segment remains.
func Normalize(in TranscriptInput) (*Transcript, error) {
	kind := in.Kind
	if kind == "" || kind == KindAuto {
		kind = DetectKind(in.Name, in.Data)
		if len(in.Segments) > 0 || in.AudioPath != "" || (len(in.Data) == 0 && in.FullText != "") {
			kind = KindSpeech
		}
	}

	var (
		segments []Segment
		fullText string
	)

	switch kind {
	case KindSpeech:
		if in.NeedsTranscription() {
			return nil, fferrors.Input(fferrors.ErrMissingInput, "audio %q has not been transcribed", in.AudioPath)
		}
		if len(in.Segments) == 0 && strings.TrimSpace(in.FullText) == "" && len(in.Data) == 0 {
			return nil, fferrors.Input(fferrors.ErrMissingInput, "speech mode requires transcribed segments")
		}
		src, text := in.Segments, in.FullText
		if len(src) == 0 && len(in.Data) > 0 {
			var err error
			if src, text, err = ParseSpeechJSON(in.Data); err != nil {
				return nil, fferrors.Input(fferrors.ErrEmptyTranscript, "%v", err)
			}
		}
		segments = normalizeSpeech(src)
		fullText = cleanText(text)
		if len(segments) == 0 && fullText != "" {
			// Transcription returned text only: keep it as a zero-length timed segment.
			segments = []Segment{TimedSegment(0, 0, fullText)}
		}
	case KindCue:
		if len(in.Data) == 0 {
			return nil, fferrors.Input(fferrors.ErrMissingInput, "cue mode requires subtitle text")
		}
		parsed, err := ParseCue([]byte(decodeText(in.Data)))
		if err != nil {
			return nil, fferrors.Input(fferrors.ErrEmptyTranscript, "reading cues: %v", err)
		}
		segments = normalizeSpeech(parsed)
	case KindPlain:
		if len(in.Data) == 0 && in.FullText == "" {
			return nil, fferrors.Input(fferrors.ErrMissingInput, "plain mode requires transcript text")
		}
		text := in.FullText
		if len(in.Data) > 0 {
			text = decodeText(in.Data)
		}
		for _, s := range ParsePlain(text) {
			segments = append(segments, Segment{Text: cleanText(s.Text)})
		}
	default:
		return nil, fferrors.Input(fferrors.ErrUnsupportedMode, "%q", kind)
	}

	if len(segments) == 0 {
		return nil, fferrors.Input(fferrors.ErrEmptyTranscript, "")
	}

	t := &Transcript{
		Segments: segments,
		Timed:    segments[0].Timed(),
		FullText: fullText,
		Format:   kind,
	}
	if t.FullText == "" {
		texts := make([]string, len(segments))
		for i, s := range segments {
			texts[i] = s.Text
		}
		t.FullText = strings.Join(texts, " ")
	}
	return t, nil
}

// normalizeSpeech trims text, drops empty segments and repairs bounds.
// Timing is kept only when every remaining segment carries it.
func normalizeSpeech(in []Segment) []Segment {
	out := make([]Segment, 0, len(in))
	allTimed := true
	for _, s := range in {
		text := cleanText(s.Text)
		if text == "" {
			continue
		}
		if !s.Timed() {
			allTimed = false
			out = append(out, Segment{Text: text})
			continue
		}
		start, end := *s.Start, *s.End
		if start < 0 {
			start = 0
		}
		if end < start {
			end = start
		}
		out = append(out, TimedSegment(start, end, text))
	}
	if !allTimed {
		for i := range out {
			out[i].Start, out[i].End = nil, nil
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// decodeText returns data as UTF-8, treating invalid UTF-8 as Windows-1252
// (what most desktop subtitle editors emit) and dropping a byte-order mark.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}
