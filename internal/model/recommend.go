// Package model defines the core entities of the companion-product
// ranking engine: products, retrieval hits, fused candidates, and the
// scored items returned to callers.
package model

import "time"

// Role distinguishes a main product from a companion/accessory product.
type Role string

const (
	RoleMain      Role = "main"
	RoleAccessory Role = "accessory"
)

// Product is a catalog entry, either a main product or an accessory.
// Known attributes are explicit fields; the long tail of spec-sheet
// attributes lives in KeyParams.
type Product struct {
	ID             int64
	Name           string
	Role           Role
	Price          *float64
	CategoryName   string
	CategoryID     string
	Type           string
	Vendor         string
	ParentID       string
	ParentName     string
	URL            string
	PictureURL     string
	Description    string
	WeightKg       *float64
	ShippingKg     *float64
	VolumeL        *float64
	LengthMm       *float64
	KeyParams      map[string]string
	Embedding      []float32
	CreatedAt      time.Time
}

// HasEmbedding reports whether the product carries a usable embedding.
func (p Product) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// VectorHit is one result of a nearest-neighbor search against a main
// product's embedding.
type VectorHit struct {
	ProductID  int64
	Similarity float64 // in [0,1], 1 = identical
}

// LLMHit is one precomputed, offline-ranked candidate for a main
// product.
type LLMHit struct {
	ProductID    int64
	RecRank      int
	MatchScore   *float64
	ResolvedRank int
}

// ChannelRank records a candidate's best rank in one retrieval channel.
type ChannelRank struct {
	Rank int
}

// FusedCandidate is one deduplicated candidate after rank fusion,
// carrying whatever per-channel metadata survived fusion.
type FusedCandidate struct {
	ProductID   int64
	RRFScore    float64
	VectorRank  *int
	LLMRank     *int
	Similarity  *float64 // best-available vector similarity, if known
	Padded      bool     // true if added by the deterministic fallback/padding step
}

// ScoredCandidate is a FusedCandidate after scoring, ready for sorting
// and MMR reranking.
type ScoredCandidate struct {
	ProductID       int64
	Score           float64
	BaseScore       float64
	ThompsonWeight  float64
	PriceFactor     float64
	Padded          bool
}

// Feedback is an append-only record of a relevance judgment on one
// (main, recommended) pair.
type Feedback struct {
	ID                   int64
	ProductID            int64
	RecommendedProductID int64
	IsRelevant           bool
	CreatedAt            time.Time
}

// RecommendationItem is one row of the public ranking response.
type RecommendationItem struct {
	ID                 int64
	SimilarityScore    float64
	CreatedAt          time.Time
	RecommendedProduct Product
}
