package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"empty", nil, []float32{1}, 0},
		{"shorter length wins", []float32{1, 0}, []float32{1, 0, 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5}
	b := []float32{2.2, 0.1, -0.7}
	assert.Equal(t, Cosine(a, b), Cosine(b, a))
	assert.LessOrEqual(t, math.Abs(Cosine(a, b)), 1.0)
}

func TestClassify(t *testing.T) {
	agenda := [][]float32{{1, 0, 0}, {0, 1, 0}}
	chunks := [][]float32{
		{0.9, 0.1, 0.42},
		{0.3, 0.2, 0.93},
		{0, 1, 0},
	}

	cls := Classify(chunks, agenda, DefaultThreshold)
	require.Len(t, cls, 3)

	assert.Equal(t, 0, cls[0].BestIndex)
	assert.False(t, cls[0].OffTopic)

	assert.Equal(t, 0, cls[1].BestIndex)
	assert.True(t, cls[1].OffTopic)

	assert.Equal(t, 1, cls[2].BestIndex)
	assert.InDelta(t, 1.0, cls[2].Similarity, 1e-9)
	assert.False(t, cls[2].OffTopic)
}

func TestClassify_TieGoesToLowestIndex(t *testing.T) {
	agenda := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	cls := Classify([][]float32{{1, 0}}, agenda, DefaultThreshold)
	require.Len(t, cls, 1)
	assert.Equal(t, 0, cls[0].BestIndex)
}

func TestClassify_ThresholdIsExclusiveBelow(t *testing.T) {
	cls := Classify([][]float32{{1, 0}}, [][]float32{{1, 0}}, 1)
	assert.False(t, cls[0].OffTopic, "similarity equal to threshold is on-topic")
}

func TestClassify_NoAgendaVectors(t *testing.T) {
	cls := Classify([][]float32{{1, 0}}, nil, DefaultThreshold)
	require.Len(t, cls, 1)
	assert.Equal(t, -1, cls[0].BestIndex)
	assert.True(t, cls[0].OffTopic)
}
