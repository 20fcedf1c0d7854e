package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/nodeflow/pkg/eventbus"
	"github.com/dukex/nodeflow/pkg/events"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/persistence"
)

// Service owns schedule lifecycle: it persists configurations, keeps one
// armed timer per enabled schedule and publishes a trigger event on each fire.
type Service struct {
	persistence Persistence
	timers      Timers
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time

	// serializes cancel-then-arm sequences
	mu sync.Mutex
}

// fireSlack absorbs the drift between a timer's monotonic wait and the wall clock.
const fireSlack = time.Second

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	persistence Persistence,
	timers Timers,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		persistence: persistence,
		timers:      timers,
		publisher:   publisher,
		logger:      logger.With("module", "schedule"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Save creates or replaces the schedule of (cfg.WorkflowID, cfg.NodeID). The
// stored id and creation time survive a replace.
func (s *Service) Save(ctx context.Context, cfg *models.Schedule) (*models.Schedule, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: schedule is required", ErrInvalidSchedule)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	if cfg.EndDate != nil && !cfg.EndDate.After(now) {
		return nil, fmt.Errorf("%w: end date %s has already passed", ErrInvalidSchedule, cfg.EndDate.Format(time.RFC3339))
	}

	saved := *cfg
	saved.ID = uuid.NewString()
	saved.CreatedAt = now

	existing, err := s.persistence.ByNode(ctx, cfg.WorkflowID, cfg.NodeID)

	switch {
	case err == nil:
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	case !persistence.IsScheduleNotFound(err):
		return nil, err
	}

	saved.UpdatedAt = now
	saved.LastRunAt = nil

	if existing != nil {
		saved.LastRunAt = existing.LastRunAt
	}

	if err := nodeconfig.Validator().Struct(&saved); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	// The armed timer stays in place until the replacement is planned and stored.
	if err := s.plan(&saved, now); err != nil {
		return nil, err
	}

	if err := s.persistence.Upsert(ctx, &saved); err != nil {
		return nil, err
	}

	s.timers.Cancel(saved.ID)
	s.arm(&saved)

	s.logger.InfoContext(ctx, "schedule saved",
		"schedule_id", saved.ID,
		"workflow_id", saved.WorkflowID,
		"node_id", saved.NodeID,
		"next_run_at", saved.NextRunAt,
	)

	return &saved, nil
}

func (s *Service) Get(ctx context.Context, workflowID, nodeID string) (*models.Schedule, error) {
	return s.persistence.ByNode(ctx, workflowID, nodeID)
}

// SetEnabled toggles a schedule. Enabling recomputes the next run from now;
// disabling cancels the armed timer.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.persistence.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !enabled {
		if err := s.persistence.SetEnabled(ctx, id, false); err != nil {
			return nil, err
		}

		s.timers.Cancel(id)

		current.Enabled = false
		current.NextRunAt = nil

		return current, nil
	}

	now := s.now().UTC()
	current.Enabled = true
	current.UpdatedAt = now

	if err := s.plan(current, now); err != nil {
		return nil, err
	}

	if err := s.persistence.Upsert(ctx, current); err != nil {
		return nil, err
	}

	s.timers.Cancel(id)
	s.arm(current)

	return current, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers.Cancel(id)

	return s.persistence.Delete(ctx, id)
}

// Restore arms every enabled schedule at its stored next run. Fires missed
// while nothing was running are skipped: an elapsed next run is recomputed
// from now. Restore is idempotent and doubles as a periodic resync.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.persistence.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled schedules: %w", err)
	}

	now := s.now().UTC()

	var errs []error

	for _, sched := range schedules {
		if sched.NextRunAt == nil || !sched.NextRunAt.After(now) {
			if err := s.plan(sched, now); err != nil {
				errs = append(errs, fmt.Errorf("schedule %s: %w", sched.ID, err))

				continue
			}

			sched.UpdatedAt = now

			if err := s.persistence.Upsert(ctx, sched); err != nil {
				errs = append(errs, fmt.Errorf("schedule %s: %w", sched.ID, err))

				continue
			}
		}

		s.timers.Cancel(sched.ID)
		s.arm(sched)
	}

	s.logger.InfoContext(ctx, "schedules restored", "count", len(schedules), "failed", len(errs))

	return errors.Join(errs...)
}

// Fire publishes the trigger event of schedule id, records the run and arms
// the next one. Disabled or deleted schedules are ignored.
func (s *Service) Fire(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := s.persistence.ByID(ctx, id)
	if persistence.IsScheduleNotFound(err) {
		return nil
	}

	if err != nil {
		return err
	}

	if !sched.Enabled {
		return nil
	}

	now := s.now().UTC()

	// A timer that ran while Save or SetEnabled re-planned the schedule is stale.
	if sched.NextRunAt != nil && sched.NextRunAt.After(now.Add(fireSlack)) {
		s.logger.DebugContext(ctx, "skipping early fire", "schedule_id", id, "next_run_at", sched.NextRunAt)

		return nil
	}

	scheduledAt := now
	if sched.NextRunAt != nil {
		scheduledAt = *sched.NextRunAt
	}

	event := events.WorkflowTriggered{
		BaseEvent:     events.NewBaseEvent(events.WorkflowTriggeredEvent, sched.WorkflowID),
		TriggerNodeID: sched.NodeID,
		ScheduleID:    sched.ID,
		TriggerData: map[string]any{
			"scheduleId":  sched.ID,
			"scheduledAt": scheduledAt.Format(time.RFC3339),
			"firedAt":     now.Format(time.RFC3339),
		},
	}

	if err := s.publisher.Publish(ctx, sched.WorkflowID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish scheduled trigger", "schedule_id", id, "error", err)
	}

	sched.LastRunAt = &now
	sched.UpdatedAt = now

	if err := s.plan(sched, now); err != nil {
		return err
	}

	if err := s.persistence.Upsert(ctx, sched); err != nil {
		return err
	}

	s.arm(sched)

	return nil
}

// plan computes NextRunAt from now. A schedule past its end date is disabled.
func (s *Service) plan(sched *models.Schedule, now time.Time) error {
	sched.NextRunAt = nil

	if !sched.Enabled {
		return nil
	}

	next, err := NextRunAt(sched, now)
	if errors.Is(err, ErrScheduleEnded) {
		sched.Enabled = false

		return nil
	}

	if err != nil {
		return err
	}

	sched.NextRunAt = &next

	return nil
}

func (s *Service) arm(sched *models.Schedule) {
	if !sched.Enabled || sched.NextRunAt == nil {
		return
	}

	id := sched.ID

	s.timers.Arm(id, *sched.NextRunAt, func() {
		if err := s.Fire(context.Background(), id); err != nil {
			s.logger.Error("scheduled fire failed", "schedule_id", id, "error", err)
		}
	})
}
