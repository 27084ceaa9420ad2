package aiusage

import "errors"

// ErrQuotaExceeded is returned when a user has no credits remaining for the current month.
var ErrQuotaExceeded = errors.New("monthly ai credits exhausted")

// DefaultMonthlyCredits is the number of planning credits granted per month.
const DefaultMonthlyCredits = 100

// Usage is a user's credit balance for a month ("2006-01").
type Usage struct {
	UserID           string `json:"user_id"`
	CreditsRemaining int    `json:"credits_remaining"`
	Month            string `json:"month"`
}
