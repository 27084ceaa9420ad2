// README: Postgres helpers for DB-backed package tests (skipped without FRIENDUS_TEST_DSN).
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"friendus/internal/infra"
)

// NewPool connects to FRIENDUS_TEST_DSN (a postgres:// URL), migrates it up and truncates
// the given tables. The test is skipped when the variable is not set.
func NewPool(t *testing.T, truncate ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("FRIENDUS_TEST_DSN")
	if dsn == "" {
		t.Skip("FRIENDUS_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := infra.RunMigrations(dsn, zap.NewNop()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range truncate {
		if _, err := db.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return db
}
