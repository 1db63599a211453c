package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// FeedbackRepo appends relevance-judgment rows to the durable feedback
// table. It implements service.FeedbackWriter.
type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

// Insert appends one feedback row and returns its server-assigned id.
// feedback is append-only: there is no Update here.
func (r *FeedbackRepo) Insert(ctx context.Context, f model.Feedback) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO feedback (product_id, recommended_product_id, is_relevant, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, f.ProductID, f.RecommendedProductID, f.IsRelevant, f.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("repository.Insert: %w", err)
	}
	return id, nil
}
