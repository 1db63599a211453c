package service

import (
	"math"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// RankedCandidate is one scored candidate plus the embedding MMR needs
// to compute pairwise similarity. Callers build this from a
// model.ScoredCandidate and the catalog entry for its product.
type RankedCandidate struct {
	model.ScoredCandidate
	Embedding []float32
}

// MMRReranker diversifies a relevance-sorted candidate list via
// Maximal Marginal Relevance, greedily selecting against a sliding
// window of recently selected items.
type MMRReranker struct {
	pureTopK   int
	returnSize int
	window     int
	lambda     float64
	minScore   float64
}

func NewMMRReranker(pureTopK, returnSize, window int, lambda, minScore float64) *MMRReranker {
	return &MMRReranker{
		pureTopK:   pureTopK,
		returnSize: returnSize,
		window:     window,
		lambda:     lambda,
		minScore:   minScore,
	}
}

// Rerank applies the two-phase MMR algorithm. ranked must already be
// sorted descending by Score; Rerank does not re-sort it.
func (m *MMRReranker) Rerank(ranked []RankedCandidate) []RankedCandidate {
	if len(ranked) == 0 {
		return ranked
	}

	topK := m.pureTopK
	if topK > len(ranked) {
		topK = len(ranked)
	}

	selected := make([]RankedCandidate, 0, m.returnSize)
	selected = append(selected, ranked[:topK]...)

	remaining := make([]int, 0, len(ranked)-topK)
	for i := topK; i < len(ranked); i++ {
		remaining = append(remaining, i)
	}

	simCache := make(map[simKey]float64)

	for len(selected) < m.returnSize && len(remaining) > 0 {
		window := selected
		if len(window) > m.window {
			window = window[len(window)-m.window:]
		}

		bestIdx := -1
		bestPos := -1
		bestMu := 0.0

		for pos, ri := range remaining {
			cand := ranked[ri]
			if cand.Score < m.minScore {
				continue
			}

			maxSim := 0.0
			for _, w := range window {
				sim := cachedCosine(simCache, cand.ProductID, cand.Embedding, w.ProductID, w.Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}

			mu := m.lambda*cand.Score - (1-m.lambda)*maxSim
			if bestIdx == -1 || mu > bestMu {
				bestIdx = ri
				bestPos = pos
				bestMu = mu
			}
		}

		if bestIdx == -1 {
			// Every remaining candidate is below the score floor: stop
			// early.
			break
		}

		selected = append(selected, ranked[bestIdx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

type simKey struct {
	a, b int64
}

func newSimKey(a, b int64) simKey {
	if a > b {
		a, b = b, a
	}
	return simKey{a, b}
}

func cachedCosine(cache map[simKey]float64, idA int64, embA []float32, idB int64, embB []float32) float64 {
	key := newSimKey(idA, idB)
	if v, ok := cache[key]; ok {
		return v
	}
	v := cosineSimilarity(embA, embB)
	cache[key] = v
	return v
}

// cosineSimilarity returns 0 if either embedding is missing or of
// mismatched dimension.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
