// Package agenda parses free-text meeting agendas into ordered, duration-annotated items.
package agenda

import (
	"regexp"
	"strconv"
	"strings"

	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

// DefaultPlannedMinutes is used for items without a duration annotation.
const DefaultPlannedMinutes = 10.0

// Item is one planned agenda topic.
type Item struct {
	Title          string  `json:"title" yaml:"title"`
	PlannedMinutes float64 `json:"plannedMinutes" yaml:"planned_minutes"`
	// Order is the raw 0-based input line index.
	Order int `json:"order" yaml:"order"`
}

var (
	lineSplitRegex = regexp.MustCompile(`\r?\n`)
	bulletRegex    = regexp.MustCompile(`^[-*]\s*`)

	// "Topic (10m)", "Topic - 5m", "Topic – 5m", "Topic -5M-"
	itemRegex = regexp.MustCompile(`(?i)^(.+?)(?:\s*[-–(]\s*(\d+)\s*m\s*[)\-]?)?$`)
)

// Parse turns agenda text into items, one per non-blank line.
// It returns an error wrapping ErrEmptyAgenda when no line yields a title.
func Parse(text string) ([]Item, error) {
	var items []Item
	for i, raw := range lineSplitRegex.Split(text, -1) {
		item, ok := parseLine(raw)
		if !ok {
			continue
		}
		item.Order = i
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fferrors.Input(fferrors.ErrEmptyAgenda, "")
	}
	return items, nil
}

func parseLine(raw string) (Item, bool) {
	line := bulletRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if line == "" {
		return Item{}, false
	}

	m := itemRegex.FindStringSubmatch(line)
	if m == nil {
		return Item{}, false
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return Item{}, false
	}

	minutes := DefaultPlannedMinutes
	if m[2] != "" {
		// A zero annotation keeps the default so PlannedMinutes stays positive.
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			minutes = float64(n)
		}
	}
	return Item{Title: title, PlannedMinutes: minutes}, true
}

// Titles returns the item titles in order, ready for embedding.
func Titles(items []Item) []string {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	return titles
}

// TotalPlannedMinutes sums PlannedMinutes across items.
func TotalPlannedMinutes(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.PlannedMinutes
	}
	return total
}
