package es

import "math"

// maximalMarginalRelevance greedily selects up to k candidates, each time
// picking the one maximizing relevance - lambda*maxSimilarityToAlreadyChosen.
// Candidates are expected in relevance order, so the first pick is the most
// relevant hit.
func maximalMarginalRelevance(query []float32, candidates []esDocument, k int, lambda float32) []esDocument {
	if len(candidates) <= 1 || k <= 1 {
		if len(candidates) > k {
			return candidates[:k]
		}
		return candidates
	}

	relevance := make([]float32, len(candidates))
	for i, c := range candidates {
		relevance[i] = cosineSimilarity(query, c.Vector)
	}

	selected := make([]esDocument, 0, k)
	chosen := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := float32(math.Inf(-1))
		for i, c := range candidates {
			if chosen[i] {
				continue
			}
			var maxSim float32
			for j, ok := range chosen {
				if !ok {
					continue
				}
				if sim := cosineSimilarity(c.Vector, candidates[j].Vector); sim > maxSim {
					maxSim = sim
				}
			}
			if score := relevance[i] - lambda*maxSim; score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}
		chosen[best] = true
		selected = append(selected, candidates[best])
	}
	return selected
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty or zero-length.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
