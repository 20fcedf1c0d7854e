// Package step provides a durable step runtime: step results are journaled per run
// so a replayed run returns recorded results instead of repeating side effects.
package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/protocol"
)

const (
	defaultMaxRetries = 3
	wakeSuffix        = ":wake"
)

// Journal stores step results keyed by run and step name.
type Journal interface {
	Load(ctx context.Context, runID, name string) ([]byte, bool, error)
	Save(ctx context.Context, runID, name string, payload []byte) error
}

type record struct {
	Value any `json:"value"`
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger.With("module", "step")
	}
}

// WithMaxRetries sets how many times an unclassified failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(r *Runner) {
		r.maxRetries = n
	}
}

// WithBackOff sets the delay policy between retries.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(r *Runner) {
		r.newBackOff = newBackOff
	}
}

// Runner implements protocol.StepRunner for one run.
type Runner struct {
	journal    Journal
	runID      string
	logger     *slog.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

var _ protocol.StepRunner = (*Runner)(nil)

func NewRunner(journal Journal, runID string, opts ...Option) *Runner {
	r := &Runner{
		journal:    journal,
		runID:      runID,
		logger:     slog.Default().With("module", "step"),
		maxRetries: defaultMaxRetries,
		newBackOff: defaultBackOff,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// NewFactory returns a constructor of per-run runners sharing one journal.
func NewFactory(journal Journal, opts ...Option) func(runID string) protocol.StepRunner {
	return func(runID string) protocol.StepRunner {
		return NewRunner(journal, runID, opts...)
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	return b
}

// Run executes fn once per (run, name). Failures that are not structured
// failures are retried with backoff; structured failures are final.
func (r *Runner) Run(ctx context.Context, name string, fn protocol.StepFunc) (any, error) {
	return r.run(ctx, name, fn, r.maxRetries)
}

// Generate is Run without retries.
func (r *Runner) Generate(ctx context.Context, name string, fn protocol.StepFunc) (any, error) {
	return r.run(ctx, name, fn, 0)
}

func (r *Runner) run(ctx context.Context, name string, fn protocol.StepFunc, retries uint64) (any, error) {
	if value, ok, err := r.replay(ctx, name); err != nil || ok {
		return value, err
	}

	var (
		result  any
		attempt int
	)

	operation := func() error {
		attempt++

		out, err := fn(ctx)
		if err != nil {
			if failure.IsPermanent(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			return err
		}

		result = out

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), retries), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "Step failed, retrying",
			"run_id", r.runID,
			"step", name,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}

	return r.record(ctx, name, result)
}

// Sleep pauses durably: the wake-up time is journaled first so a replay only
// waits for the remainder.
func (r *Runner) Sleep(ctx context.Context, name string, d time.Duration) error {
	if _, ok, err := r.replay(ctx, name); err != nil || ok {
		return err
	}

	wake := r.now().Add(d)

	if value, ok, err := r.replay(ctx, name+wakeSuffix); err != nil {
		return err
	} else if ok {
		if s, isString := value.(string); isString {
			if parsed, perr := time.Parse(time.RFC3339Nano, s); perr == nil {
				wake = parsed
			}
		}
	} else if _, err := r.record(ctx, name+wakeSuffix, wake.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if remaining := wake.Sub(r.now()); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	_, err := r.record(ctx, name, true)

	return err
}

func (r *Runner) replay(ctx context.Context, name string) (any, bool, error) {
	payload, ok, err := r.journal.Load(ctx, r.runID, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load step %s: %w", name, err)
	}

	if !ok {
		return nil, false, nil
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("corrupt journal entry for step %s: %w", name, err)
	}

	r.logger.DebugContext(ctx, "Replayed step", "run_id", r.runID, "step", name)

	return rec.Value, true, nil
}

// record journals value and returns it as it will be seen on replay.
func (r *Runner) record(ctx context.Context, name string, value any) (any, error) {
	payload, err := json.Marshal(record{Value: value})
	if err != nil {
		return nil, fmt.Errorf("step %s result is not serializable: %w", name, err)
	}

	if err := r.journal.Save(ctx, r.runID, name, payload); err != nil {
		return nil, fmt.Errorf("failed to save step %s: %w", name, err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}

	return rec.Value, nil
}
