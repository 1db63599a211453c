package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connexus-ai/companion-rank/internal/service"
)

// RawNeighbor is one row of a pgvector nearest-neighbor query: a
// candidate product id and its raw cosine *distance* from the query
// product, in [0,2]. Similarity is derived from this by the caller
// rather than by the SQL, so the 1 - distance/2 formula stays
// auditable in one place (internal/service/vectorsearch.go). It is an
// alias of service.RawNeighbor so NearestRaw satisfies
// service.RawNeighborFinder.
type RawNeighbor = service.RawNeighbor

// VectorRepo runs pgvector nearest-neighbor queries against the
// products table. It implements service.RawNeighborFinder.
type VectorRepo struct {
	pool *pgxpool.Pool
}

func NewVectorRepo(pool *pgxpool.Pool) *VectorRepo {
	return &VectorRepo{pool: pool}
}

// NearestRaw returns the limit closest accessory products to
// mainID's embedding by pgvector cosine distance (ascending), skipping
// the main product itself and any product without an embedding.
func (r *VectorRepo) NearestRaw(ctx context.Context, mainID int64, limit int) ([]RawNeighbor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p2.id, (p1.embedding <=> p2.embedding) AS distance
		FROM products p1, products p2
		WHERE p1.id = $1
		  AND p2.id != $1
		  AND p1.embedding IS NOT NULL
		  AND p2.embedding IS NOT NULL
		  AND p2.role = 'accessory'
		ORDER BY p1.embedding <=> p2.embedding
		LIMIT $2
	`, mainID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.NearestRaw: query: %w", err)
	}
	defer rows.Close()

	var out []RawNeighbor
	for rows.Next() {
		var n RawNeighbor
		if err := rows.Scan(&n.ProductID, &n.Distance); err != nil {
			return nil, fmt.Errorf("repository.NearestRaw: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.NearestRaw: rows: %w", err)
	}
	return out, nil
}
