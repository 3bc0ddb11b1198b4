package index

import (
	"math"
	"sort"
)

// DefaultDiversityPool returns the candidate pool size used when the caller does not choose one
func DefaultDiversityPool(k int) int {
	if pool := 3 * k; pool > 10 {
		return pool
	}
	return 10
}

// cosine returns the cosine similarity of two equal-length vectors, 0 for zero vectors
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
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

type candidate struct {
	pos       int // position in the entries slice
	relevance float64
}

// nearest returns the positions of the pool vectors most similar to query,
// best first. Ties keep insertion order.
func nearest(query []float32, vectors [][]float32, pool int) []candidate {
	candidates := make([]candidate, len(vectors))
	for i, v := range vectors {
		candidates[i] = candidate{pos: i, relevance: cosine(query, v)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].relevance > candidates[j].relevance
	})
	if len(candidates) > pool {
		candidates = candidates[:pool]
	}
	return candidates
}

// maximalMarginalRelevance picks k candidates, each maximising
// lambda*relevance - (1-lambda)*max similarity to the already selected ones.
// The first pick is always the most relevant candidate.
func maximalMarginalRelevance(candidates []candidate, vectors [][]float32, k int, lambda float64) []candidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]candidate, 0, k)
	used := make([]bool, len(candidates))
	// redundancy[i] is the highest similarity of candidate i to anything selected so far
	redundancy := make([]float64, len(candidates))
	for i := range redundancy {
		redundancy[i] = math.Inf(-1)
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			score := c.relevance
			if len(selected) > 0 {
				score = lambda*c.relevance - (1-lambda)*redundancy[i]
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		used[best] = true
		chosen := candidates[best]
		selected = append(selected, chosen)

		for i, c := range candidates {
			if used[i] {
				continue
			}
			if sim := cosine(vectors[c.pos], vectors[chosen.pos]); sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}

	return selected
}
