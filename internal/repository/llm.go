package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// LLMRepo reads precomputed offline candidate lists from
// llm_recommendations. It implements service.LLMSource.
type LLMRepo struct {
	pool *pgxpool.Pool
}

func NewLLMRepo(pool *pgxpool.Pool) *LLMRepo {
	return &LLMRepo{pool: pool}
}

// Candidates returns mainID's LLM-ranked accessories ordered by
// (rec_rank, resolved_rank). Rows whose matched_product_id is null
// (the LLM proposed free text that never resolved to a catalog id)
// are excluded; the ranking pipeline drops any remaining id that no
// longer exists in the catalog snapshot, which this query cannot know
// about.
func (r *LLMRepo) Candidates(ctx context.Context, mainID int64) ([]model.LLMHit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT matched_product_id, rec_rank, match_score, resolved_rank
		FROM llm_recommendations
		WHERE main_product_id = $1 AND matched_product_id IS NOT NULL
		ORDER BY rec_rank, resolved_rank
	`, mainID)
	if err != nil {
		return nil, fmt.Errorf("repository.Candidates: query: %w", err)
	}
	defer rows.Close()

	var out []model.LLMHit
	for rows.Next() {
		var (
			hit        model.LLMHit
			matchScore *float64
		)
		if err := rows.Scan(&hit.ProductID, &hit.RecRank, &matchScore, &hit.ResolvedRank); err != nil {
			return nil, fmt.Errorf("repository.Candidates: scan: %w", err)
		}
		hit.MatchScore = matchScore
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.Candidates: rows: %w", err)
	}
	return out, nil
}
