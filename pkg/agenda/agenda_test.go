package agenda

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

func TestParse_Line(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		title   string
		minutes float64
	}{
		{"parenthesized", "Standup (5m)", "Standup", 5},
		{"no annotation", "Roadmap review", "Roadmap review", 10},
		{"dash suffix", "Hiring - 15m", "Hiring", 15},
		{"en dash suffix", "Budget – 20m", "Budget", 20},
		{"uppercase M", "Retro (30M)", "Retro", 30},
		{"dash bullet", "- Demo (7m)", "Demo", 7},
		{"star bullet", "*   Q&A", "Q&A", 10},
		{"spaces inside parens", "Planning ( 12 m )", "Planning", 12},
		{"zero keeps default", "Intro (0m)", "Intro", 10},
		{"number without unit", "Top 5 risks", "Top 5 risks", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Parse(tt.line)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.title, items[0].Title)
			assert.Equal(t, tt.minutes, items[0].PlannedMinutes)
			assert.Equal(t, 0, items[0].Order)
		})
	}
}

func TestParse_OrderIsRawLineIndex(t *testing.T) {
	items, err := Parse("Roadmap (10m)\r\n\n  \n- Hiring (5m)\n-\nWrap up")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Roadmap", items[0].Title)
	assert.Equal(t, 0, items[0].Order)
	assert.Equal(t, "Hiring", items[1].Title)
	assert.Equal(t, 3, items[1].Order)
	assert.Equal(t, "Wrap up", items[2].Title)
	assert.Equal(t, 5, items[2].Order)

	for i := 1; i < len(items); i++ {
		assert.Greater(t, items[i].Order, items[i-1].Order)
		assert.NotEmpty(t, items[i].Title)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n", "-\n*\n"} {
		items, err := Parse(text)
		assert.Nil(t, items)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fferrors.ErrEmptyAgenda))
		assert.True(t, fferrors.IsValidation(err))
	}
}

func TestTitlesAndTotal(t *testing.T) {
	items, err := Parse("Roadmap (10m)\nHiring (5m)")
	require.NoError(t, err)
	assert.Equal(t, []string{"Roadmap", "Hiring"}, Titles(items))
	assert.Equal(t, 15.0, TotalPlannedMinutes(items))
}
