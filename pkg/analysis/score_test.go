package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulate_Timed(t *testing.T) {
	chunks := []Chunk{timedChunk(0, 300, "a"), timedChunk(300, 600, "b"), timedChunk(600, 660, "c")}
	cls := []Classification{
		{BestIndex: 0},
		{BestIndex: 0, OffTopic: true},
		{BestIndex: 1},
	}

	cov := Accumulate(chunks, cls, 2, true)
	assert.InDelta(t, 5.0, cov.PerItem[0], 1e-9)
	assert.InDelta(t, 1.0, cov.PerItem[1], 1e-9)
	assert.InDelta(t, 5.0, cov.Tangent, 1e-9)
	assert.InDelta(t, 11.0, cov.Total, 1e-9)
}

func TestAccumulate_UntimedCountsChunks(t *testing.T) {
	chunks := []Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	cls := []Classification{{BestIndex: 1}, {BestIndex: 1}, {BestIndex: -1, OffTopic: true}}

	cov := Accumulate(chunks, cls, 2, false)
	assert.Equal(t, []float64{0, 2}, cov.PerItem)
	assert.Equal(t, 1.0, cov.Tangent)
	assert.Equal(t, 3.0, cov.Total)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		cov     Coverage
		actions int
		timed   bool
		balance float64
		want    int
	}{
		{
			name:    "half focus, half adherence, dense actions",
			cov:     Coverage{PerItem: []float64{5, 0}, Total: 10, Tangent: 5},
			actions: 1,
			timed:   true,
			balance: DefaultBalanceScore,
			want:    60,
		},
		{
			name:    "no actions",
			cov:     Coverage{PerItem: []float64{5, 0}, Total: 10, Tangent: 5},
			timed:   true,
			balance: DefaultBalanceScore,
			want:    45,
		},
		{
			name:    "perfect meeting",
			cov:     Coverage{PerItem: []float64{10, 5}, Total: 15},
			actions: 3,
			timed:   true,
			balance: DefaultBalanceScore,
			want:    95,
		},
		{
			name:    "balance override reaches 100",
			cov:     Coverage{PerItem: []float64{10}, Total: 10},
			actions: 5,
			timed:   true,
			balance: 30,
			want:    100,
		},
		{
			name:    "untimed density uses five units",
			cov:     Coverage{PerItem: []float64{1, 1}, Total: 2},
			actions: 1,
			balance: DefaultBalanceScore,
			want:    83,
		},
		{
			name:    "empty meeting",
			cov:     Coverage{PerItem: []float64{0}},
			balance: DefaultBalanceScore,
			want:    10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, b := Score(tt.cov, tt.actions, tt.timed, tt.balance)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
			assert.GreaterOrEqual(t, b.FocusRatio, 0.0)
			assert.LessOrEqual(t, b.FocusRatio, 1.0)
			assert.GreaterOrEqual(t, b.AdherenceRatio, 0.0)
			assert.LessOrEqual(t, b.AdherenceRatio, 1.0)
		})
	}
}

func TestScore_Breakdown(t *testing.T) {
	_, b := Score(Coverage{PerItem: []float64{5, 0}, Total: 10, Tangent: 5}, 1, true, DefaultBalanceScore)
	assert.InDelta(t, 0.5, b.FocusRatio, 1e-9)
	assert.InDelta(t, 0.5, b.AdherenceRatio, 1e-9)
	assert.InDelta(t, 1.5, b.ActionDensity, 1e-9)
	assert.InDelta(t, 20.0, b.FocusScore, 1e-9)
	assert.InDelta(t, 15.0, b.AdherenceScore, 1e-9)
	assert.InDelta(t, 15.0, b.ActionScore, 1e-9)
	assert.Equal(t, 1, b.ActionCount)
}

func TestCoverageRatio(t *testing.T) {
	tests := []struct {
		actual, planned, want float64
	}{
		{5, 10, 0.5},
		{20, 10, 1},
		{0, 10, 0},
		{0, 0, 0},
		{3, 0, 1},
	}
	for _, tt := range tests {
		got := CoverageRatio(tt.actual, tt.planned)
		assert.InDelta(t, tt.want, got, 1e-9)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.2345))
	assert.Equal(t, 0.67, round2(2.0/3))
	assert.Equal(t, 10.0, round2(10))
}
