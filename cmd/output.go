package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// ANSI colors for text output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// writeOutput encodes v as JSON or YAML, or calls text for human output.
func writeOutput(w io.Writer, format config.OutputFormat, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return text(w)
	}
}

// scoreColor picks green, yellow or red for a 0-100 score.
func scoreColor(score int) string {
	switch {
	case score >= 70:
		return colorGreen
	case score >= 40:
		return colorYellow
	default:
		return colorRed
	}
}

// printReport renders a report for the terminal.
func printReport(w io.Writer, r *analysis.Report) error {
	title := r.Title
	if title == "" {
		title = "Meeting"
	}
	fmt.Fprintf(w, "%s%s%s\n", colorBold, title, colorReset)
	fmt.Fprintf(w, "  Report:    %s\n", r.ID)
	if r.MeetingDurationMin != nil {
		fmt.Fprintf(w, "  Duration:  %.1f min\n", *r.MeetingDurationMin)
	} else {
		fmt.Fprintf(w, "  Duration:  %s(untimed, %d chunks)%s\n", colorDim, r.ChunkCount, colorReset)
	}
	fmt.Fprintf(w, "  Score:     %s%d/100%s\n", scoreColor(r.Score), r.Score, colorReset)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%sAgenda coverage%s\n", colorBold, colorReset)
	if len(r.Agenda) == 0 {
		fmt.Fprintln(w, "  (no agenda items)")
	}
	for _, item := range r.Agenda {
		fmt.Fprintf(w, "  %-36s planned %5.1f min  actual %5.1f %-6s %s%3.0f%%%s\n",
			truncateRunes(item.Title, 36), item.PlannedMin, item.ActualMin, item.Unit,
			coverageColor(item.Coverage), item.Coverage*100, colorReset)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%sTangents%s (%d", colorBold, colorReset, len(r.Tangents))
	if r.Timed {
		fmt.Fprintf(w, ", %.1f min", r.TangentMinutes())
	}
	fmt.Fprintln(w, ")")
	for _, t := range r.Tangents {
		fmt.Fprintf(w, "  %s  %s\n", spanLabel(t), truncateRunes(t.Snippet, 80))
	}

	printList(w, "Summary", r.Summary)
	printList(w, "Decisions", r.Decisions)

	if len(r.Actions) > 0 {
		fmt.Fprintf(w, "\n%sActions%s\n", colorBold, colorReset)
		for _, a := range r.Actions {
			line := "  - " + a.Text
			if a.Owner != nil {
				line += " (" + *a.Owner + ")"
			}
			if a.Due != nil {
				line += " due " + *a.Due
			}
			fmt.Fprintln(w, line)
		}
	}

	b := r.Breakdown
	fmt.Fprintf(w, "\n%sBreakdown:%s focus %.1f  adherence %.1f  actions %.1f  balance %.1f\n",
		colorDim, colorReset, b.FocusScore, b.AdherenceScore, b.ActionScore, b.BalanceScore)
	return nil
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s%s%s\n", colorBold, heading, colorReset)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func coverageColor(c float64) string {
	switch {
	case c >= 0.8 && c <= 1.25:
		return colorGreen
	case c >= 0.5:
		return colorYellow
	default:
		return colorRed
	}
}

// spanLabel formats a tangent as "mm:ss-mm:ss" or a chunk range when untimed.
func spanLabel(t analysis.TangentSpan) string {
	if t.StartSec == nil || t.EndSec == nil {
		if t.FirstChunk == t.LastChunk {
			return fmt.Sprintf("chunk %d", t.FirstChunk)
		}
		return fmt.Sprintf("chunks %d-%d", t.FirstChunk, t.LastChunk)
	}
	return clock(*t.StartSec) + "-" + clock(*t.EndSec)
}

func clock(sec float64) string {
	s := int(sec)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// printEntries renders a report listing.
func printEntries(w io.Writer, entries []reports.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No reports.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-5s  %-20s  %s\n", "ID", "SCORE", "CREATED", "TITLE")
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s  %s%5d%s  %-20s  %s\n",
			e.ID, scoreColor(e.Score), e.Score, colorReset,
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Title)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
