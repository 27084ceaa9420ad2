package aiusage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles ai_usage persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Consume atomically checks the monthly quota and deducts one credit.
// It resets the counter to credits when last_reset_month is behind month.
// Returns ErrQuotaExceeded when 0 rows are updated (quota exhausted or user absent).
func (s *Store) Consume(ctx context.Context, uid, month string, credits int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			credits_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE credits_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR credits_remaining > 0)
	`, month, credits, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

// Refund adds one credit back for month, never above credits. Rows from an
// older month are left alone: they reset on the next Consume.
func (s *Store) Refund(ctx context.Context, uid, month string, credits int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET credits_remaining = credits_remaining + 1
		WHERE uid = $1 AND last_reset_month = $2 AND credits_remaining < $3
	`, uid, month, credits)
	return err
}

// EnsureUser inserts a new ai_usage row for uid with the given allowance.
// If the row already exists the insert is silently skipped (ON CONFLICT DO NOTHING).
func (s *Store) EnsureUser(ctx context.Context, uid, month string, credits int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, credits_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, credits, month)
	return err
}

// Get returns the stored balance. A user without a row reports ok=false.
func (s *Store) Get(ctx context.Context, uid string) (Usage, bool, error) {
	u := Usage{UserID: uid}
	err := s.db.QueryRow(ctx,
		`SELECT credits_remaining, last_reset_month FROM ai_usage WHERE uid = $1`, uid,
	).Scan(&u.CreditsRemaining, &u.Month)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usage{}, false, nil
	}
	if err != nil {
		return Usage{}, false, err
	}
	return u, true, nil
}
