package analysis

import "math"

// Classification is the agenda match for one chunk.
type Classification struct {
	// BestIndex is the best-matching agenda index, or -1 when there is no agenda vector.
	BestIndex  int     `json:"bestIndex"`
	Similarity float64 `json:"similarity"`
	OffTopic   bool    `json:"offTopic"`
}

// Cosine returns the cosine similarity of a and b, or 0 when either norm is
// zero. Vectors of different length are compared over the shorter length.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Classify matches every chunk vector against every agenda vector. The best
// index is chosen with a strict greater-than, so ties go to the lowest agenda
// index. A chunk is off-topic when its best similarity is below threshold;
// neighbouring chunks do not influence each other.
func Classify(chunkVecs, agendaVecs [][]float32, threshold float64) []Classification {
	out := make([]Classification, len(chunkVecs))
	for i, cv := range chunkVecs {
		best, bestSim := -1, -1.0
		for j, av := range agendaVecs {
			if sim := Cosine(cv, av); sim > bestSim {
				best, bestSim = j, sim
			}
		}
		out[i] = Classification{
			BestIndex:  best,
			Similarity: bestSim,
			OffTopic:   bestSim < threshold,
		}
	}
	return out
}
