// README: Plan job aggregate and status definitions.
package planjob

import (
	"errors"
	"time"

	"friendus/internal/geo"
	"friendus/internal/planner"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the job state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusCancelled, StatusFailed},
	StatusRunning: {StatusDone, StatusFailed, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

type Job struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id,omitempty"`
	Status      Status              `json:"status"`
	Message     string              `json:"message"`
	Anchor      geo.Point           `json:"anchor"`
	Preferences planner.Preferences `json:"preferences"`
	Result      *planner.PlanResult `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// SubmitRequest is what a caller sends to start planning. Lat/Lon are optional;
// without them the planner's default anchor is used.
type SubmitRequest struct {
	UserID      string              `json:"-"`
	Message     string              `json:"message" validate:"required,max=2000"`
	Lat         *float64            `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon         *float64            `json:"lon" validate:"omitempty,min=-180,max=180"`
	Preferences planner.Preferences `json:"preferences"`
}

func (r SubmitRequest) anchor() geo.Point {
	if r.Lat == nil || r.Lon == nil {
		return geo.Point{}
	}
	return geo.Point{Lat: *r.Lat, Lon: *r.Lon}
}

var (
	ErrNotFound     = errors.New("plan job not found")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidState = errors.New("invalid job state transition")
	ErrShuttingDown = errors.New("plan job service is shutting down")
)
