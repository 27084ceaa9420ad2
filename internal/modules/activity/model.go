// README: Room activities, member constraints and conflict levels.
package activity

import (
	"errors"
	"time"
)

const (
	SourceManual = "manual"
	SourceAIPlan = "ai_plan"
)

// Constraint types and intensities.
const (
	ConstraintPrice = "price"
	ConstraintTime  = "time"

	IntensityRough = "rough"
	IntensitySoft  = "soft"
)

const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
)

type Activity struct {
	ID       int64   `json:"id"`
	RoomID   string  `json:"room_id"`
	Name     string  `json:"name" validate:"required,max=200"`
	Location string  `json:"location" validate:"max=300"`
	Price    float64 `json:"price" validate:"min=0"`
	// StartTime and EndTime are "2006-01-02 15:04:05" or "15:04".
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Rating    float64   `json:"rating" validate:"min=0,max=5"`
	Source    string    `json:"source"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Constraint struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type" validate:"required,oneof=price time"`
	Intensity string `json:"intensity" validate:"required,oneof=rough soft"`
	Value     string `json:"value" validate:"required,max=50"`
}

// Conflict is one constraint an activity violates.
type Conflict struct {
	Message string `json:"msg"`
	Level   string `json:"level"`
}

// RoomPlan is a room's activities with the conflicts keyed by activity id.
type RoomPlan struct {
	Activities  []Activity           `json:"activities"`
	Constraints []Constraint         `json:"constraints"`
	Conflicts   map[int64][]Conflict `json:"conflicts"`
}

var (
	ErrNotFound   = errors.New("activity not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("only the owner may change this constraint")
)
