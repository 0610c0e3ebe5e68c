package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

func ptr(f float64) *float64 { return &f }

func TestSpanLabel(t *testing.T) {
	tests := []struct {
		name string
		span analysis.TangentSpan
		want string
	}{
		{"timed", analysis.TangentSpan{StartSec: ptr(65), EndSec: ptr(130.5)}, "01:05-02:10"},
		{"single chunk", analysis.TangentSpan{FirstChunk: 2, LastChunk: 2}, "chunk 2"},
		{"chunk range", analysis.TangentSpan{FirstChunk: 1, LastChunk: 3}, "chunks 1-3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, spanLabel(tc.span))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("  short ", 10))
	assert.Equal(t, "ñññ...", truncateRunes("ñññññññññ", 6))
}

func TestWriteOutput(t *testing.T) {
	v := map[string]int{"score": 72}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "human\n")
		return err
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, config.OutputFormatJSON, v, text))
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 72, decoded["score"])

	buf.Reset()
	require.NoError(t, writeOutput(&buf, config.OutputFormatYAML, v, text))
	assert.Equal(t, "score: 72\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, config.OutputFormatText, v, text))
	assert.Equal(t, "human\n", buf.String())
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEntries(&buf, nil))
	assert.Equal(t, "No reports.\n", buf.String())

	buf.Reset()
	require.NoError(t, printEntries(&buf, []reports.Entry{
		{ID: "rep-1", Title: "Weekly sync", Score: 81, CreatedAt: time.Now()},
		{ID: "rep-2", Title: "Retro", Score: 35, CreatedAt: time.Now()},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SCORE")
	assert.Contains(t, lines[1], "Weekly sync")
	assert.Contains(t, lines[2], "rep-2")
}
