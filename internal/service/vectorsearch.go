package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/connexus-ai/companion-rank/internal/catalog"
	"github.com/connexus-ai/companion-rank/internal/model"
)

// RawNeighborFinder runs the pgvector nearest-neighbor query and
// returns raw cosine distances, letting VectorSearch own the
// distance-to-similarity conversion. Implemented by
// repository.VectorRepo.
type RawNeighborFinder interface {
	NearestRaw(ctx context.Context, mainID int64, limit int) ([]RawNeighbor, error)
}

// RawNeighbor is one nearest-neighbor row: a product id and its raw
// cosine distance. repository.RawNeighbor is an alias of this type, so
// service never imports the repository package.
type RawNeighbor struct {
	ProductID int64
	Distance  float64
}

// VectorSearch finds a main product's nearest accessories by cosine
// similarity. It implements the Pipeline's VectorSearcher interface.
type VectorSearch struct {
	catalog *catalog.Store
	finder  RawNeighborFinder
}

func NewVectorSearch(cat *catalog.Store, finder RawNeighborFinder) *VectorSearch {
	return &VectorSearch{catalog: cat, finder: finder}
}

// Search returns up to limit accessories ordered by descending
// similarity to mainID's embedding. Returns an empty list (not an
// error) if mainID has no embedding, checked against the in-memory
// catalog snapshot rather than round-tripping to Postgres.
func (v *VectorSearch) Search(ctx context.Context, mainID int64, limit int) ([]model.VectorHit, error) {
	main, ok := v.catalog.Get(mainID)
	if !ok || !main.HasEmbedding() {
		return nil, nil
	}

	raw, err := v.finder.NearestRaw(ctx, mainID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.VectorSearch.Search: %w", err)
	}

	hits := make([]model.VectorHit, 0, len(raw))
	for _, n := range raw {
		hits = append(hits, model.VectorHit{
			ProductID:  n.ProductID,
			Similarity: distanceToSimilarity(n.Distance),
		})
	}

	// The repository already orders by distance ascending, but
	// re-sorting here keeps the contract explicit and robust to a
	// finder implementation (e.g. a test fake) that doesn't bother.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	return hits, nil
}

// distanceToSimilarity normalizes a cosine distance in [0,2] to a
// similarity in [0,1] as 1 - distance/2, clipped against
// floating-point overshoot at the extremes.
func distanceToSimilarity(distance float64) float64 {
	return clip01(1 - distance/2)
}
