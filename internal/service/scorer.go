package service

import (
	"hash/fnv"
	"math"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// Scorer combines a fused candidate's retrieval score, a Thompson
// sample from the bandit state, and a price penalty into a single
// final score in [0,1].
type Scorer struct {
	bandit          *BanditState
	demoMode        bool
	baseWeightDemo  float64
	weightHalflife  float64
	priceThreshold  float64
	priceMaxPenalty float64
}

// NewScorer builds a Scorer. The combining weights are read at
// construction time from config and fixed per process since the mode
// never changes while serving.
func NewScorer(bandit *BanditState, demoMode bool, baseWeightDemo, weightHalflife, priceThreshold, priceMaxPenalty float64) *Scorer {
	return &Scorer{
		bandit:          bandit,
		demoMode:        demoMode,
		baseWeightDemo:  baseWeightDemo,
		weightHalflife:  weightHalflife,
		priceThreshold:  priceThreshold,
		priceMaxPenalty: priceMaxPenalty,
	}
}

// Score produces a ScoredCandidate for one FusedCandidate.
func (s *Scorer) Score(mainID int64, mainPrice *float64, candidatePrice *float64, c model.FusedCandidate) model.ScoredCandidate {
	baseScore, similarityPrior := s.baseAndPrior(mainID, c)
	priceFactor := s.priceFactor(mainPrice, candidatePrice)

	key := ArmKey{MainID: mainID, RecID: c.ProductID}
	thompsonWeight := s.bandit.Sample(key, similarityPrior)

	var combined float64
	if s.demoMode {
		combined = s.baseWeightDemo*baseScore + (1-s.baseWeightDemo)*thompsonWeight
	} else {
		n := float64(s.bandit.FeedbackCount(key))
		k := s.weightHalflife
		gamma := 0.0
		if n+k > 0 {
			gamma = n / (n + k)
		}
		combined = (1-gamma)*baseScore + gamma*thompsonWeight
	}

	final := clip01(combined * priceFactor)
	final = math.Round(final*1000) / 1000

	return model.ScoredCandidate{
		ProductID:      c.ProductID,
		Score:          final,
		BaseScore:      baseScore,
		ThompsonWeight: thompsonWeight,
		PriceFactor:    priceFactor,
		Padded:         c.Padded,
	}
}

// baseAndPrior derives base_score and similarity_prior: rrf_score
// when present, else vector similarity, else a deterministic
// hash-derived fallback. Padding candidates use the narrower
// [0.3, 0.5] fallback band instead of [0.1, 0.5].
func (s *Scorer) baseAndPrior(mainID int64, c model.FusedCandidate) (baseScore, similarityPrior float64) {
	switch {
	case c.VectorRank != nil || c.LLMRank != nil || c.RRFScore > 0:
		baseScore = c.RRFScore
	case c.Similarity != nil:
		baseScore = *c.Similarity
	default:
		lo, hi := 0.1, 0.5
		if c.Padded {
			lo, hi = 0.3, 0.5
		}
		baseScore = fallbackScore(mainID, c.ProductID, lo, hi)
	}

	switch {
	case c.Similarity != nil:
		similarityPrior = *c.Similarity
	case c.RRFScore > 0:
		similarityPrior = c.RRFScore
	default:
		similarityPrior = 0.1
	}

	return baseScore, similarityPrior
}

// priceFactor penalizes candidates priced well above the main
// product.
func (s *Scorer) priceFactor(mainPrice, candidatePrice *float64) float64 {
	if mainPrice == nil || candidatePrice == nil || *mainPrice <= 0 || *candidatePrice <= 0 {
		return 1.0
	}
	r := *candidatePrice / *mainPrice
	if r <= s.priceThreshold {
		return 1.0
	}
	penalty := s.priceMaxPenalty * (r - s.priceThreshold) / s.priceThreshold
	if penalty > s.priceMaxPenalty {
		penalty = s.priceMaxPenalty
	}
	return 1 - penalty
}

// fallbackScore maps hash(main_id, rec_id) deterministically into
// [lo, hi]. FNV-1a rather than the map-seeded hash/maphash keeps the
// result stable across process restarts.
func fallbackScore(mainID, recID int64, lo, hi float64) float64 {
	h := fnv.New64a()
	var buf [16]byte
	putInt64(buf[0:8], mainID)
	putInt64(buf[8:16], recID)
	h.Write(buf[:])
	frac := float64(h.Sum64()%1_000_000) / 1_000_000
	return lo + frac*(hi-lo)
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
