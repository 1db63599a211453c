package migrations

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping migration integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return pool
}

func runSQL(t *testing.T, pool *pgxpool.Pool, filename string) {
	t.Helper()
	sql, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = pool.Exec(ctx, string(sql))
	if err != nil {
		t.Fatalf("failed to execute %s: %v", filename, err)
	}
}

var expectedTables = []string{"products", "feedback", "arm_stats", "llm_recommendations"}

func tableExists(t *testing.T, pool *pgxpool.Pool, table string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return exists
}

func TestMigration_UpCreatesAllTables(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "0001_init.up.sql")

	for _, table := range expectedTables {
		if !tableExists(t, pool, table) {
			t.Errorf("table %s does not exist after up migration", table)
		}
	}
}

func TestMigration_UpIsIdempotent(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	// CREATE TABLE/INDEX IF NOT EXISTS must tolerate a second run
	// against an already-migrated database.
	runSQL(t, pool, "0001_init.up.sql")
	runSQL(t, pool, "0001_init.up.sql")
}

func TestMigration_DownAndUpCycle(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	// We don't check table absence between down/up because concurrent
	// test packages (repository) share this database and may recreate
	// tables mid-run.
	runSQL(t, pool, "0001_init.down.sql")
	runSQL(t, pool, "0001_init.up.sql")

	for _, table := range expectedTables {
		if !tableExists(t, pool, table) {
			t.Errorf("table %s does not exist after down+up cycle", table)
		}
	}
}

func TestMigration_EmbeddingColumnIsVector(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "0001_init.up.sql")

	var dataType string
	err := pool.QueryRow(context.Background(), `
		SELECT udt_name FROM information_schema.columns
		WHERE table_name = 'products' AND column_name = 'embedding'
	`).Scan(&dataType)
	if err != nil {
		t.Fatalf("failed to check embedding column: %v", err)
	}
	if dataType != "vector" {
		t.Errorf("embedding column type = %q, want %q", dataType, "vector")
	}
}

func TestMigration_ArmStatsPrimaryKey(t *testing.T) {
	pool := getTestPool(t)
	defer pool.Close()

	runSQL(t, pool, "0001_init.up.sql")

	var count int
	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM information_schema.key_column_usage
		WHERE table_name = 'arm_stats' AND constraint_name LIKE '%pkey%'
	`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check arm_stats primary key: %v", err)
	}
	if count != 2 {
		t.Errorf("arm_stats primary key column count = %d, want 2 (product_id, recommended_product_id)", count)
	}
}
