// README: AI-usage module tests (lazy reset and quota boundary logic).
package aiusage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"friendus/internal/testutil"
)

// TestConsumeCrossMonthReset verifies that a user with 0 credits left from a previous month
// is automatically reset and the request succeeds.
func TestConsumeCrossMonthReset(t *testing.T) {
	svc, db := setupTestService(t, 10)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO ai_usage VALUES ('user_reset', 0, '2000-01')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Consume(ctx, "user_reset"); err != nil {
		t.Fatalf("Consume after cross-month reset: %v", err)
	}
	if got := remaining(t, db, "user_reset"); got != 9 {
		t.Fatalf("expected 9 credits remaining, got %d", got)
	}
}

// TestConsumeExhausted verifies that a user with 0 credits in the current month is blocked.
func TestConsumeExhausted(t *testing.T) {
	svc, db := setupTestService(t, 10)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO ai_usage (uid, credits_remaining, last_reset_month) VALUES ('user_zero', 0, $1)", svc.month()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Consume(ctx, "user_zero"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

// TestConsumeNewUser verifies that a user absent from the table is initialised on first call.
func TestConsumeNewUser(t *testing.T) {
	svc, db := setupTestService(t, 0)
	ctx := context.Background()

	if err := svc.Consume(ctx, "user_new"); err != nil {
		t.Fatalf("Consume for new user: %v", err)
	}
	if got := remaining(t, db, "user_new"); got != DefaultMonthlyCredits-1 {
		t.Fatalf("expected %d credits remaining after first use, got %d", DefaultMonthlyCredits-1, got)
	}
}

// TestConsumeUntilExhausted spends a small allowance to the boundary.
func TestConsumeUntilExhausted(t *testing.T) {
	svc, _ := setupTestService(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.Consume(ctx, "user_small"); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	if err := svc.Consume(ctx, "user_small"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	u, err := svc.Remaining(ctx, "user_small")
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if u.CreditsRemaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", u.CreditsRemaining)
	}
}

func TestRemainingForUnknownUser(t *testing.T) {
	svc, _ := setupTestService(t, 7)
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) }

	u, err := svc.Remaining(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if u.CreditsRemaining != 7 || u.Month != "2026-10" {
		t.Fatalf("unexpected usage %+v", u)
	}
}

func setupTestService(t *testing.T, credits int) (*Service, *pgxpool.Pool) {
	t.Helper()
	db := testutil.NewPool(t, "ai_usage")
	return NewService(NewStore(db), credits), db
}

func remaining(t *testing.T, db *pgxpool.Pool, uid string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(context.Background(), "SELECT credits_remaining FROM ai_usage WHERE uid = $1", uid).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	return n
}

// TestRefund gives back a charged credit but never exceeds the allowance.
func TestRefund(t *testing.T) {
	svc, db := setupTestService(t, 3)
	ctx := context.Background()

	if err := svc.Consume(ctx, "user_refund"); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := svc.Refund(ctx, "user_refund"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if got := remaining(t, db, "user_refund"); got != 3 {
		t.Fatalf("expected 3 credits after refund, got %d", got)
	}
	if err := svc.Refund(ctx, "user_refund"); err != nil {
		t.Fatalf("second Refund: %v", err)
	}
	if got := remaining(t, db, "user_refund"); got != 3 {
		t.Fatalf("refund must not exceed the allowance, got %d", got)
	}
}
