// README: Plan job service runs planning in the background and tracks job state.
package planjob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"friendus/internal/geo"
	"friendus/internal/planner"
	"friendus/internal/weather"
)

type Planner interface {
	GeneratePlan(ctx context.Context, message string, uc planner.UserContext) (planner.PlanResult, error)
}

type WeatherSource interface {
	Hourly(ctx context.Context, at geo.Point) ([]weather.Sample, error)
}

// Quota charges one credit per planning request. Refund returns a credit
// charged for a job that was never created.
type Quota interface {
	Consume(ctx context.Context, userID string) error
	Refund(ctx context.Context, userID string) error
}

type Options struct {
	MaxConcurrent int
	Timeout       time.Duration
	Weather       WeatherSource
	Quota         Quota
	Logger        *zap.Logger
}

type Service struct {
	store   *Store
	planner Planner
	weather WeatherSource
	quota   Quota
	timeout time.Duration
	logger  *zap.Logger
	sem     chan struct{}
	now     func() time.Time

	// mu serializes state transitions so a cancel and a finishing worker
	// cannot both win.
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	subs    map[string][]chan Job
	closed  bool
	wg      sync.WaitGroup
}

var validate = validator.New()

// storeTimeout bounds store calls made outside a request context.
const storeTimeout = 5 * time.Second

func NewService(store *Store, p Planner, opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		planner: p,
		weather: opts.Weather,
		quota:   opts.Quota,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		sem:     make(chan struct{}, opts.MaxConcurrent),
		now:     time.Now,
		cancels: map[string]context.CancelFunc{},
		subs:    map[string][]chan Job{},
	}
}

// Submit validates req, charges the caller's quota and queues a job. Planning
// continues after ctx ends; use Cancel to stop it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Job, error) {
	if s.isClosed() {
		return Job{}, ErrShuttingDown
	}
	if err := s.check(ctx, req); err != nil {
		return Job{}, err
	}

	now := s.now()
	job := Job{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Status:      StatusQueued,
		Message:     req.Message,
		Anchor:      req.anchor(),
		Preferences: req.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.refund(ctx, req.UserID)
		return Job{}, ErrShuttingDown
	}
	if err := s.store.Save(ctx, job); err != nil {
		s.mu.Unlock()
		s.refund(ctx, req.UserID)
		return Job{}, fmt.Errorf("save job: %w", err)
	}
	jobCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancels[job.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(jobCtx, job)

	s.logger.Info("plan job queued", zap.String("job_id", job.ID), zap.String("user_id", job.UserID))
	return job, nil
}

// Generate plans synchronously within ctx.
func (s *Service) Generate(ctx context.Context, req SubmitRequest) (planner.PlanResult, error) {
	if err := s.check(ctx, req); err != nil {
		return planner.PlanResult{}, err
	}
	return s.planner.GeneratePlan(ctx, req.Message, s.userContext(ctx, req.anchor(), req.Preferences))
}

func (s *Service) check(ctx context.Context, req SubmitRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if s.quota == nil {
		return nil
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrBadRequest)
	}
	return s.quota.Consume(ctx, req.UserID)
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// refund gives back the credit check charged. It outlives ctx so a cancelled
// request still gets its credit back.
func (s *Service) refund(ctx context.Context, userID string) {
	if s.quota == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := s.quota.Refund(ctx, userID); err != nil {
		s.logger.Warn("credit refund failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.store.Get(ctx, id)
}

// Cancel stops a queued or running job. Cancelling a finished job returns
// ErrInvalidState with the job unchanged.
func (s *Service) Cancel(ctx context.Context, id string) (Job, error) {
	job, err := s.transition(ctx, id, StatusCancelled, nil)
	if err != nil {
		return job, err
	}
	s.logger.Info("plan job cancelled", zap.String("job_id", id))
	return job, nil
}

// Subscribe returns a channel that receives the job once it reaches a terminal
// state. A job that already finished is delivered immediately. The returned
// func releases the subscription.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Job, func(), error) {
	ch := make(chan Job, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status.Terminal() {
		ch <- job
		return ch, func() {}, nil
	}
	s.subs[id] = append(s.subs[id], ch)

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[id]
		for i, c := range list {
			if c == ch {
				s.subs[id] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(s.subs[id]) == 0 {
			delete(s.subs, id)
		}
	}
	return ch, unsubscribe, nil
}

// Shutdown stops accepting jobs, cancels running ones and waits for workers.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(ctx context.Context, job Job) {
	defer s.wg.Done()
	defer s.release(job.ID)

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.fail(job.ID, ctx.Err())
		return
	}

	if _, err := s.transition(ctx, job.ID, StatusRunning, nil); err != nil {
		s.logger.Debug("plan job not started", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	started := s.now()
	result, err := s.planner.GeneratePlan(ctx, job.Message, s.userContext(ctx, job.Anchor, job.Preferences))
	if err != nil {
		s.fail(job.ID, err)
		return
	}

	// A job cancelled while planning keeps its cancelled status; the result is dropped.
	if _, err := s.transition(ctx, job.ID, StatusDone, func(j *Job) { j.Result = &result }); err != nil {
		s.logger.Info("dropping plan result", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.logger.Info("plan job done",
		zap.String("job_id", job.ID),
		zap.Int("steps", len(result.Steps)),
		zap.Duration("elapsed", s.now().Sub(started)))
}

func (s *Service) fail(id string, cause error) {
	msg := failureMessage(cause)
	if _, err := s.transition(context.Background(), id, StatusFailed, func(j *Job) { j.Error = msg }); err != nil {
		return
	}
	s.logger.Warn("plan job failed", zap.String("job_id", id), zap.Error(cause))
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, planner.ErrIntentUnavailable):
		return "could not understand the request"
	case errors.Is(err, context.DeadlineExceeded):
		return "planning timed out"
	case errors.Is(err, context.Canceled):
		return "planning was interrupted"
	default:
		return "planning failed"
	}
}

// transition moves job id to the given status, applying mutate first. Terminal
// jobs are delivered to subscribers while mu is held, so a subscriber never
// misses the final state.
func (s *Service) transition(ctx context.Context, id string, to Status, mutate func(*Job)) (Job, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if !CanTransition(job.Status, to) {
		return job, fmt.Errorf("%w: %s -> %s", ErrInvalidState, job.Status, to)
	}
	if mutate != nil {
		mutate(&job)
	}
	job.Status = to
	job.UpdatedAt = s.now()
	if err := s.store.Save(ctx, job); err != nil {
		return Job{}, fmt.Errorf("save job: %w", err)
	}

	if to.Terminal() {
		if cancelJob, ok := s.cancels[id]; ok {
			cancelJob()
		}
		for _, ch := range s.subs[id] {
			ch <- job
		}
		delete(s.subs, id)
	}
	return job, nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

// userContext attaches the forecast at the anchor. Weather is optional: on
// failure the plan is scored without it.
func (s *Service) userContext(ctx context.Context, anchor geo.Point, prefs planner.Preferences) planner.UserContext {
	uc := planner.UserContext{Anchor: anchor, Preferences: prefs}
	if s.weather == nil || !anchor.Valid() {
		return uc
	}
	samples, err := s.weather.Hourly(ctx, anchor)
	if err != nil {
		s.logger.Warn("weather unavailable", zap.Error(err))
		return uc
	}
	uc.Weather = samples
	return uc
}
