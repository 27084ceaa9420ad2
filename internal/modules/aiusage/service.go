// README: AI credit service enforcing a monthly per-user quota on planning requests.
package aiusage

import (
	"context"
	"errors"
	"time"
)

type Service struct {
	store   *Store
	credits int
	now     func() time.Time
}

// NewService creates a Service granting monthlyCredits per user per month.
func NewService(store *Store, monthlyCredits int) *Service {
	if monthlyCredits <= 0 {
		monthlyCredits = DefaultMonthlyCredits
	}
	return &Service{store: store, credits: monthlyCredits, now: time.Now}
}

func (s *Service) month() string {
	return s.now().Format("2006-01")
}

// Consume deducts one credit from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the credit is immediately consumed.
// Returns ErrQuotaExceeded when the quota for the current month is exhausted.
func (s *Service) Consume(ctx context.Context, uid string) error {
	month := s.month()
	err := s.store.Consume(ctx, uid, month, s.credits)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid, month, s.credits); initErr != nil {
		return initErr
	}
	return s.store.Consume(ctx, uid, month, s.credits)
}

// Refund returns one credit to the user's current month, up to the allowance.
func (s *Service) Refund(ctx context.Context, uid string) error {
	return s.store.Refund(ctx, uid, s.month(), s.credits)
}

// Remaining reports the user's balance for the current month without charging.
func (s *Service) Remaining(ctx context.Context, uid string) (Usage, error) {
	month := s.month()
	u, ok, err := s.store.Get(ctx, uid)
	if err != nil {
		return Usage{}, err
	}
	if !ok || u.Month < month {
		return Usage{UserID: uid, CreditsRemaining: s.credits, Month: month}, nil
	}
	return u, nil
}
