package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/nodeflow/pkg/cmd"
	"github.com/dukex/nodeflow/pkg/eventbus"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/otelhelper"
	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/registry"
	"github.com/dukex/nodeflow/pkg/schedule"
	"github.com/dukex/nodeflow/pkg/step"
	"github.com/dukex/nodeflow/pkg/workflow"
)

// runtime holds the components a command wires together. Fields are nil when
// the command did not ask for them.
type runtime struct {
	logger      *slog.Logger
	registry    *registry.Registry
	persistence persistence.Persistence
	schedules   schedule.Persistence
	bus         eventbus.EventBus
	status      *eventbus.StatusPublisher
	workflows   *workflow.Repository
	executor    *workflow.Executor
	validate    *validator.Validate

	closers []func(context.Context) error
}

type needs struct {
	bus       bool
	executor  bool
	schedules bool
}

func newRuntime(ctx context.Context, command *cli.Command, logger *slog.Logger, n needs) (*runtime, error) {
	rt := &runtime{logger: logger, validate: nodeconfig.Validator()}

	reg, err := cmd.NewRegistry(logger, command.String("plugins-path"))
	if err != nil {
		return nil, err
	}

	rt.registry = reg

	if command.Bool("tracing") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "nodeflow")
		if err != nil {
			return nil, err
		}

		reg.SetTracer(tracer)
		rt.closers = append(rt.closers, shutdown)
	}

	p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, rt.fail(ctx, err)
	}

	rt.persistence = p
	rt.closers = append(rt.closers, p.Close)
	rt.workflows = workflow.NewRepository(p, reg)

	if n.schedules {
		schedules, err := cmd.NewSchedulePersistence(ctx, logger, command.String("database-url"))
		if err != nil {
			return nil, rt.fail(ctx, err)
		}

		rt.schedules = schedules
		rt.closers = append(rt.closers, func(context.Context) error { return schedules.Close() })
	}

	if n.bus {
		bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
		if err != nil {
			return nil, rt.fail(ctx, err)
		}

		rt.bus = bus
		rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })
	}

	if n.executor {
		journal, closeJournal, err := cmd.NewStepJournal(ctx, command.String("step-journal"))
		if err != nil {
			return nil, rt.fail(ctx, err)
		}

		rt.closers = append(rt.closers, func(context.Context) error { return closeJournal() })

		opts := []workflow.Option{
			workflow.WithLogger(logger),
			workflow.WithStepRunners(step.NewFactory(journal, step.WithLogger(logger))),
		}

		if rt.bus != nil {
			rt.status = eventbus.NewStatusPublisher(rt.bus, logger, 256)
			// Flushed before the bus closes.
			rt.closers = append(rt.closers, func(context.Context) error {
				rt.status.Close()

				return nil
			})
			opts = append(opts, workflow.WithPublisher(rt.status))
		}

		rt.executor = workflow.NewExecutor(reg, opts...)
	}

	return rt, nil
}

func (rt *runtime) fail(ctx context.Context, err error) error {
	return errors.Join(err, rt.Close(ctx))
}

// Close releases components in reverse creation order.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
