package meeting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

func TestNormalize_Speech(t *testing.T) {
	tr, err := Normalize(TranscriptInput{
		Kind: KindSpeech,
		Segments: []Segment{
			TimedSegment(0, 4, "  Let's start with the roadmap. "),
			TimedSegment(4, 5, "   "),
			TimedSegment(5, 3, "Backwards end"),
			TimedSegment(-1, 2, "Negative start"),
		},
	})
	require.NoError(t, err)

	assert.True(t, tr.Timed)
	assert.Equal(t, KindSpeech, tr.Format)
	require.Len(t, tr.Segments, 3)
	assert.Equal(t, "Let's start with the roadmap.", tr.Segments[0].Text)
	assert.Equal(t, 5.0, *tr.Segments[1].End, "end is raised to start")
	assert.Equal(t, 0.0, *tr.Segments[2].Start, "start is clamped at zero")
	assert.Equal(t, "Let's start with the roadmap. Backwards end Negative start", tr.FullText)
	assert.Equal(t, 5.0, tr.DurationSeconds())
}

func TestNormalize_SpeechFullTextFallback(t *testing.T) {
	tr, err := Normalize(TranscriptInput{Kind: KindSpeech, FullText: "Only the text came back."})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.True(t, tr.Timed)
	assert.Equal(t, 0.0, *tr.Segments[0].Start)
	assert.Equal(t, 0.0, *tr.Segments[0].End)
	assert.Equal(t, "Only the text came back.", tr.Segments[0].Text)
}

func TestNormalize_SpeechMixedTimingDropsTiming(t *testing.T) {
	tr, err := Normalize(TranscriptInput{
		Kind:     KindSpeech,
		Segments: []Segment{TimedSegment(0, 1, "a"), {Text: "b"}},
	})
	require.NoError(t, err)
	assert.False(t, tr.Timed)
	for _, s := range tr.Segments {
		assert.Nil(t, s.Start)
		assert.Nil(t, s.End)
	}
}

func TestNormalize_SpeechJSON(t *testing.T) {
	data := []byte(`{"text":"hello there","segments":[{"start":0,"end":2.5,"text":" hello"},{"start":2.5,"end":4,"text":"there "}]}`)
	tr, err := Normalize(TranscriptInput{Name: "call.json", Data: data})
	require.NoError(t, err)
	assert.Equal(t, KindSpeech, tr.Format)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "hello", tr.Segments[0].Text)
	assert.Equal(t, "hello there", tr.FullText)
}

func TestNormalize_CueAuto(t *testing.T) {
	data := []byte("1\n00:00:00,000 --> 00:00:10,000\nRoadmap\n")
	tr, err := Normalize(TranscriptInput{Name: "notes.txt", Data: data})
	require.NoError(t, err)
	assert.Equal(t, KindCue, tr.Format)
	assert.True(t, tr.Timed)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, 10.0, *tr.Segments[0].End)
}

func TestNormalize_Windows1252(t *testing.T) {
	// "café" with 0xE9 for é, as written by legacy subtitle editors.
	data := []byte("00:00:00,000 --> 00:00:02,000\ncaf\xe9 chat\n")
	tr, err := Normalize(TranscriptInput{Kind: KindCue, Data: data})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "café chat", tr.Segments[0].Text)
}

func TestNormalize_NFC(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é".
	tr, err := Normalize(TranscriptInput{Kind: KindPlain, Data: []byte("\ufeffcafe\u0301")})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "caf\u00e9", tr.Segments[0].Text)
}

func TestNormalize_Plain(t *testing.T) {
	tr, err := Normalize(TranscriptInput{Kind: KindPlain, Data: []byte("a\nb\nc\nd\ne")})
	require.NoError(t, err)
	assert.False(t, tr.Timed)
	assert.Len(t, tr.Segments, 5)
	assert.Equal(t, 0.0, tr.DurationSeconds())
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   TranscriptInput
		want error
	}{
		{"speech without input", TranscriptInput{Kind: KindSpeech}, fferrors.ErrMissingInput},
		{"cue without data", TranscriptInput{Kind: KindCue}, fferrors.ErrMissingInput},
		{"plain without data", TranscriptInput{Kind: KindPlain}, fferrors.ErrMissingInput},
		{"blank plain", TranscriptInput{Kind: KindPlain, Data: []byte("  \n\n ")}, fferrors.ErrEmptyTranscript},
		{"cue without cues", TranscriptInput{Kind: KindCue, Data: []byte("WEBVTT\n")}, fferrors.ErrEmptyTranscript},
		{"blank speech", TranscriptInput{Kind: KindSpeech, Segments: []Segment{TimedSegment(0, 1, " ")}}, fferrors.ErrEmptyTranscript},
		{"bad json", TranscriptInput{Kind: KindSpeech, Data: []byte("{nope")}, fferrors.ErrEmptyTranscript},
		{"unknown kind", TranscriptInput{Kind: "video", Data: []byte("x")}, fferrors.ErrUnsupportedMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Normalize(tt.in)
			assert.Nil(t, tr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, fferrors.IsValidation(err))
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"", KindAuto, true},
		{"auto", KindAuto, true},
		{"speech", KindSpeech, true},
		{"audio", KindSpeech, true},
		{"subtitles", KindCue, true},
		{"srt", KindCue, true},
		{"text", KindPlain, true},
		{"video", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
