package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/connexus-ai/companion-rank/internal/service"
)

func TestArmRepo_LoadAllAndUpsert(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	defer pool.Close()

	repo := NewArmRepo(pool)
	if err := repo.Upsert(ctx, service.Arm{MainID: 1, RecID: 2, Alpha: 2, Beta: 3, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	arms, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	found := false
	for _, a := range arms {
		if a.MainID == 1 && a.RecID == 2 {
			found = true
		}
	}
	if !found {
		t.Error("LoadAll() did not return the upserted arm")
	}
}
