package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connexus-ai/companion-rank/internal/service"
)

// ArmRepo is the durable backing for the Bandit State: it reads the
// full arm_stats table at startup and upserts one row per feedback. It
// implements service.ArmStore.
type ArmRepo struct {
	pool *pgxpool.Pool
}

func NewArmRepo(pool *pgxpool.Pool) *ArmRepo {
	return &ArmRepo{pool: pool}
}

// LoadAll scans every row of arm_stats, used by BanditState.ReloadFromStore
// both at startup and after a publisher notification.
func (r *ArmRepo) LoadAll(ctx context.Context) ([]service.Arm, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, recommended_product_id, alpha, beta, updated_at
		FROM arm_stats
	`)
	if err != nil {
		return nil, fmt.Errorf("repository.LoadAll: query: %w", err)
	}
	defer rows.Close()

	var out []service.Arm
	for rows.Next() {
		var a service.Arm
		if err := rows.Scan(&a.MainID, &a.RecID, &a.Alpha, &a.Beta, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository.LoadAll: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.LoadAll: rows: %w", err)
	}
	return out, nil
}

// Upsert writes the post-update (alpha, beta) for one arm by primary
// key (product_id, recommended_product_id).
func (r *ArmRepo) Upsert(ctx context.Context, a service.Arm) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO arm_stats (product_id, recommended_product_id, alpha, beta, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, recommended_product_id)
		DO UPDATE SET alpha = $3, beta = $4, updated_at = $5
	`, a.MainID, a.RecID, a.Alpha, a.Beta, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.Upsert: %w", err)
	}
	return nil
}
