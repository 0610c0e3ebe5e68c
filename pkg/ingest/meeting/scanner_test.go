package meeting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want Kind
	}{
		{"vtt", "standup.vtt", "", KindCue},
		{"srt upper", "STANDUP.SRT", "", KindCue},
		{"json", "whisper.json", "", KindSpeech},
		{"txt with cues", "notes.txt", "1\n00:00:01.000 --> 00:00:02.000\nhi", KindCue},
		{"txt plain", "notes.txt", "we talked about hiring", KindPlain},
		{"no name", "", "hello", KindPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.file, []byte(tt.data)))
		})
	}
}

func TestFileClassification(t *testing.T) {
	assert.True(t, IsAudioFile("call.M4A"))
	assert.False(t, IsAudioFile("call.vtt"))
	assert.True(t, IsTranscriptFile("call.vtt"))
	assert.True(t, IsTranscriptFile("call.mp3"))
	assert.False(t, IsTranscriptFile("call.agenda.txt"))
	assert.False(t, IsTranscriptFile("call.docx"))
	assert.True(t, IsAgendaFile("Call.Agenda.TXT"))
	assert.Equal(t, "/tmp/call.agenda.txt", AgendaPathFor("/tmp/call.srt"))
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("Weekly Sync-20250218 1509-1.vtt", "WEBVTT\n")
	write("Weekly Sync-20250218 1509-1.agenda.txt", "Roadmap (10m)")
	write("retro.m4a", "audio")
	write("retro.agenda.txt", "Wins\nMisses")
	write("orphan.srt", "1\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.vtt"), 0755))

	jobs, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Weekly Sync", jobs[0].Title)
	assert.Equal(t, KindAuto, jobs[0].Kind)
	assert.Equal(t, filepath.Join(dir, "Weekly Sync-20250218 1509-1.agenda.txt"), jobs[0].AgendaPath)

	assert.Equal(t, "retro", jobs[1].Title)
	assert.Equal(t, KindSpeech, jobs[1].Kind)
	assert.Equal(t, filepath.Join(dir, "retro.m4a"), jobs[1].AudioPath)
	assert.Empty(t, jobs[1].TranscriptPath)
}

func TestScanDir_Missing(t *testing.T) {
	_, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Team Meeting", NormalizeTitle("Team Meeting-20250218 1509-1"))
	assert.Equal(t, "Transcript owner", NormalizeTitle("Transcript   owner_20251007"))
	assert.Equal(t, "plain", NormalizeTitle(" plain "))
}
