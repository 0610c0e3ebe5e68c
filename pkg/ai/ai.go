// Package ai defines the embedding and summarization services used by
// meeting analysis, and parses the summarizer's structured output.
package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// Embedder maps an ordered list of strings to an ordered list of
// equal-length vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer turns a meeting transcript into raw model output that
// ParseSummary understands.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// SummaryPrompt is the system instruction sent with every transcript.
const SummaryPrompt = `You are FocusFlow, a meeting coach. Read the meeting transcript and return JSON only: {"summary":[],"decisions":[],"actions":[{"owner":string|null,"text":string,"due":string|null}]}. ` +
	`"summary" holds short bullet sentences, "decisions" holds agreed outcomes, "actions" holds follow-up tasks with an owner and due date when stated.`

// Action is one follow-up task extracted from the meeting.
type Action struct {
	Owner *string `json:"owner" yaml:"owner"`
	Text  string  `json:"text" yaml:"text"`
	Due   *string `json:"due" yaml:"due"`
}

// Summary is the structured summarization result. Slices are never nil.
type Summary struct {
	Summary   []string `json:"summary" yaml:"summary"`
	Decisions []string `json:"decisions" yaml:"decisions"`
	Actions   []Action `json:"actions" yaml:"actions"`
}

// EmptySummary returns a summary with empty, non-nil slices.
func EmptySummary() Summary {
	return Summary{Summary: []string{}, Decisions: []string{}, Actions: []Action{}}
}

type rawSummary struct {
	Summary   json.RawMessage `json:"summary"`
	Decisions json.RawMessage `json:"decisions"`
	Actions   json.RawMessage `json:"actions"`
}

// ParseSummary parses model output into a Summary. Markdown code fences are
// stripped first. When the output is not a JSON object the result is empty
// and ok is false; fields with an unexpected shape are left empty.
func ParseSummary(raw string) (Summary, bool) {
	out := EmptySummary()

	text := stripCodeFence(raw)
	if text == "" {
		return out, false
	}

	var doc rawSummary
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return out, false
	}

	out.Summary = stringList(doc.Summary)
	out.Decisions = stringList(doc.Decisions)

	var actions []Action
	if len(doc.Actions) > 0 && json.Unmarshal(doc.Actions, &actions) == nil {
		for _, a := range actions {
			a.Text = strings.TrimSpace(a.Text)
			if a.Text == "" {
				continue
			}
			a.Owner = nonEmpty(a.Owner)
			a.Due = nonEmpty(a.Due)
			out.Actions = append(out.Actions, a)
		}
	}
	return out, true
}

func stringList(raw json.RawMessage) []string {
	out := []string{}
	var items []string
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
