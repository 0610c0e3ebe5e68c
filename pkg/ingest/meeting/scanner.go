package meeting

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// AgendaSuffix marks the agenda file that pairs with a transcript of the same base name:
// "standup.vtt" pairs with "standup.agenda.txt".
const AgendaSuffix = ".agenda.txt"

// Job is a transcript (or audio recording) paired with its agenda file.
type Job struct {
	Title          string
	TranscriptPath string
	AudioPath      string
	AgendaPath     string
	Kind           Kind
}

// Date suffixes stripped from titles: "-20250218 1509-1" and "_20251007".
var titleDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s*-?\s*\d{8}\s+\d{4}-\d+$`),
	regexp.MustCompile(`[_\s]*\d{8}$`),
}

// DetectKind determines the transcript kind from the file name, falling back
// to content sniffing for ambiguous extensions.
func DetectKind(filename string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vtt", ".srt":
		return KindCue
	case ".json":
		return KindSpeech
	}
	if cueTimestampRegex.Match(firstTimestampLine(data)) {
		return KindCue
	}
	return KindPlain
}

// IsAudioFile reports whether filename is a recording that needs transcription.
func IsAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m4a", ".mp3", ".wav", ".ogg", ".flac", ".webm", ".mp4", ".mov":
		return true
	}
	return false
}

// IsTranscriptFile reports whether filename can be analyzed, either as text or audio.
func IsTranscriptFile(filename string) bool {
	if IsAgendaFile(filename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vtt", ".srt", ".txt", ".json":
		return true
	}
	return IsAudioFile(filename)
}

// IsAgendaFile reports whether filename is an agenda sidecar.
func IsAgendaFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), AgendaSuffix)
}

// AgendaPathFor returns the agenda sidecar path for a transcript path.
func AgendaPathFor(transcriptPath string) string {
	return strings.TrimSuffix(transcriptPath, filepath.Ext(transcriptPath)) + AgendaSuffix
}

// JobFor builds a Job for a transcript path if its agenda sidecar exists.
func JobFor(path string) (*Job, bool) {
	name := filepath.Base(path)
	if !IsTranscriptFile(name) {
		return nil, false
	}
	agendaPath := AgendaPathFor(path)
	if _, err := os.Stat(agendaPath); err != nil {
		return nil, false
	}

	job := &Job{
		Title:      NormalizeTitle(strings.TrimSuffix(name, filepath.Ext(name))),
		AgendaPath: agendaPath,
	}
	if IsAudioFile(name) {
		job.AudioPath = path
		job.Kind = KindSpeech
	} else {
		job.TranscriptPath = path
		job.Kind = KindAuto
	}
	return job, true
}

// ScanDir returns every analyzable transcript in dir that has an agenda sidecar,
// sorted by path. Subdirectories are not descended.
func ScanDir(dir string) ([]*Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var jobs []*Job
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if job, ok := JobFor(filepath.Join(dir, entry.Name())); ok {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobPath(jobs[i]) < jobPath(jobs[j])
	})
	return jobs, nil
}

func jobPath(j *Job) string {
	if j.TranscriptPath != "" {
		return j.TranscriptPath
	}
	return j.AudioPath
}

// NormalizeTitle cleans up a meeting title by removing date suffixes and extra whitespace.
func NormalizeTitle(title string) string {
	normalized := title
	for _, pattern := range titleDatePatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// firstTimestampLine returns the first line containing "-->" within the first
// few kilobytes, or nil.
func firstTimestampLine(data []byte) []byte {
	if len(data) > 4096 {
		data = data[:4096]
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.Contains(line, []byte("-->")) {
			return bytes.TrimSpace(line)
		}
	}
	return nil
}
