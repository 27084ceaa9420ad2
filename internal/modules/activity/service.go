package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"friendus/internal/planner"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	InsertActivities(ctx context.Context, acts []Activity) error
	ListActivities(ctx context.Context, roomID string) ([]Activity, error)
	DeleteActivity(ctx context.Context, roomID string, id int64) error
	InsertConstraint(ctx context.Context, c *Constraint) error
	ListConstraints(ctx context.Context, roomID string) ([]Constraint, error)
	GetConstraint(ctx context.Context, roomID string, id int64) (Constraint, error)
	DeleteConstraint(ctx context.Context, roomID, userID string, id int64) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validate = validator.New()

// AcceptPlan stores the selected steps of plan as room activities. selected
// holds 1-based step numbers; empty means every step. Nothing is written when
// any selection is invalid.
func (s *Service) AcceptPlan(ctx context.Context, roomID, userID string, plan planner.PlanResult, selected []int) ([]Activity, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, fmt.Errorf("%w: room id is required", ErrBadRequest)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("%w: plan has no steps", ErrBadRequest)
	}

	steps := plan.Steps
	if len(selected) > 0 {
		byNumber := make(map[int]planner.StepRecord, len(plan.Steps))
		for _, st := range plan.Steps {
			byNumber[st.StepNumber] = st
		}
		seen := map[int]bool{}
		steps = steps[:0:0]
		for _, n := range selected {
			st, ok := byNumber[n]
			if !ok {
				return nil, fmt.Errorf("%w: plan has no step %d", ErrBadRequest, n)
			}
			if seen[n] {
				continue
			}
			seen[n] = true
			steps = append(steps, st)
		}
	}

	acts := make([]Activity, 0, len(steps))
	for _, st := range steps {
		acts = append(acts, Activity{
			RoomID:    roomID,
			Name:      st.Place.Name,
			Location:  st.Place.Address,
			StartTime: st.StartFull,
			EndTime:   st.EndFull,
			Source:    SourceAIPlan,
			CreatedBy: userID,
		})
	}
	if err := s.repo.InsertActivities(ctx, acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// AddActivity stores one manually entered activity.
func (s *Service) AddActivity(ctx context.Context, a Activity) (Activity, error) {
	if err := validate.Struct(a); err != nil {
		return Activity{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if strings.TrimSpace(a.RoomID) == "" {
		return Activity{}, fmt.Errorf("%w: room id is required", ErrBadRequest)
	}
	a.Source = SourceManual
	acts := []Activity{a}
	if err := s.repo.InsertActivities(ctx, acts); err != nil {
		return Activity{}, err
	}
	return acts[0], nil
}

func (s *Service) DeleteActivity(ctx context.Context, roomID string, id int64) error {
	return s.repo.DeleteActivity(ctx, roomID, id)
}

func (s *Service) AddConstraint(ctx context.Context, c Constraint) (Constraint, error) {
	if err := validate.Struct(c); err != nil {
		return Constraint{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if c.RoomID == "" || c.UserID == "" {
		return Constraint{}, fmt.Errorf("%w: room and user are required", ErrBadRequest)
	}
	if err := s.repo.InsertConstraint(ctx, &c); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// DeleteConstraint removes a constraint. Only the member who added it may.
func (s *Service) DeleteConstraint(ctx context.Context, roomID, userID string, id int64) error {
	c, err := s.repo.GetConstraint(ctx, roomID, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrForbidden
	}
	return s.repo.DeleteConstraint(ctx, roomID, userID, id)
}

// List returns the room's activities and constraints with their conflicts.
func (s *Service) List(ctx context.Context, roomID string) (RoomPlan, error) {
	acts, err := s.repo.ListActivities(ctx, roomID)
	if err != nil {
		return RoomPlan{}, err
	}
	cons, err := s.repo.ListConstraints(ctx, roomID)
	if err != nil {
		return RoomPlan{}, err
	}
	if acts == nil {
		acts = []Activity{}
	}
	if cons == nil {
		cons = []Constraint{}
	}
	return RoomPlan{Activities: acts, Constraints: cons, Conflicts: CheckConflicts(acts, cons)}, nil
}
