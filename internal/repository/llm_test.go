package repository

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLLMRepo_Candidates(t *testing.T) {
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

	repo := NewLLMRepo(pool)
	_, err = repo.Candidates(ctx, 1)
	if err != nil {
		t.Fatalf("Candidates() error: %v", err)
	}
}
