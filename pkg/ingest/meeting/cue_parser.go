package meeting

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// Cue parsing regular expressions
var (
	// Webex-style speaker header: 1 "Speaker Name" (speaker_id) or 1 "" (0)
	cueSpeakerHeaderRegex = regexp.MustCompile(`^\d+\s+"([^"]*)"(?:\s+\((\d+)\))?$`)

	// Index-only line used by SRT
	cueIndexRegex = regexp.MustCompile(`^\d+$`)

	// Timestamp line, SRT (comma) or VTT (dot): 00:00:05,579 --> 00:00:06.858
	cueTimestampRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[.,](\d{1,3})\s+-->\s+(\d{1,2}):(\d{2}):(\d{2})[.,](\d{1,3})`)

	// Inline markup such as <v Speaker>, <i> or <00:00:01.000>
	cueTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// ParseCue parses SRT or WebVTT content into timed segments. Every timestamp
// line opens a block whose following text lines form the segment text. Blocks
// with no text are discarded.
func ParseCue(data []byte) ([]Segment, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		current  *Segment
		parts    []string
	)
	// A blank line ends a cue's text; digit-only lines after it are SRT
	// indices, before it they are cue text.
	var blockEnded bool

	flush := func() {
		if current != nil {
			text := strings.TrimSpace(strings.Join(parts, " "))
			if text != "" {
				current.Text = text
				segments = append(segments, *current)
			}
		}
		current = nil
		parts = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			blockEnded = true
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			continue
		}

		if m := cueTimestampRegex.FindStringSubmatch(line); m != nil {
			flush()
			seg := TimedSegment(cueSeconds(m[1:5]), cueSeconds(m[5:9]), "")
			current = &seg
			blockEnded = false
			continue
		}

		if cueSpeakerHeaderRegex.MatchString(line) {
			continue
		}
		if cueIndexRegex.MatchString(line) && (current == nil || blockEnded) {
			continue
		}

		if current != nil {
			if text := strings.TrimSpace(cueTagRegex.ReplaceAllString(line, "")); text != "" {
				parts = append(parts, text)
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

// cueSeconds converts hh, mm, ss, fraction captures to seconds. The fraction
// is a decimal fraction of a second, so "5" is 500 ms.
func cueSeconds(parts []string) float64 {
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi((parts[3] + "00")[:3])
	return float64(hours*3600+minutes*60+seconds) + float64(ms)/1000
}
