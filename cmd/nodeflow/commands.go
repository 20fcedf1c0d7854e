package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/nodeflow/pkg/log"
	"github.com/dukex/nodeflow/pkg/schedule"
	"github.com/dukex/nodeflow/pkg/web"
	"github.com/dukex/nodeflow/pkg/workflow"
)

func apiCommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve the HTTP API",
		Flags: withFlags(
			[]cli.Flag{
				portFlag(),
				databaseFlag(),
				&cli.BoolFlag{
					Name:    "scheduler",
					Usage:   "Fire schedules from this process; disable when a scheduler command runs",
					Value:   true,
					Sources: cli.EnvVars("API_SCHEDULER"),
				},
			},
			eventBusFlags(),
			executionFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("api")

			rt, err := newRuntime(ctx, command, logger, needs{bus: true, executor: true, schedules: true})
			if err != nil {
				return err
			}

			defer closeRuntime(rt)

			var timers schedule.Timers = schedule.NoTimers{}

			if command.Bool("scheduler") {
				local := schedule.NewLocalTimers()
				defer local.Stop()

				timers = local
			}

			schedules := schedule.NewService(rt.schedules, timers, rt.bus, logger)

			if command.Bool("scheduler") {
				if err := schedules.Restore(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to restore some schedules", "error", err)
				}
			}

			handlers := web.NewAPIHandlers(rt.workflows, rt.executor, schedules, rt.registry, rt.validate, logger)

			logger.InfoContext(ctx, "Starting API", "port", command.Int("port"))

			return NewAPI(logger, handlers).Start(ctx, int(command.Int("port")))
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run workflows requested through trigger events",
		Flags: withFlags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "worker-id",
					Aliases: []string{"id"},
					Usage:   "Custom worker ID (auto-generated if not provided)",
					Sources: cli.EnvVars("WORKER_ID"),
				},
				databaseFlag(),
			},
			eventBusFlags(),
			executionFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.NewString()[:8]
			}

			logger := log.WithModule("worker")

			rt, err := newRuntime(ctx, command, logger, needs{bus: true, executor: true})
			if err != nil {
				return err
			}

			defer closeRuntime(rt)

			worker := NewWorker(workerID, rt.workflows, rt.executor, rt.bus, logger)
			if err := worker.Register(); err != nil {
				return err
			}

			if err := rt.bus.Subscribe(ctx); err != nil {
				return fmt.Errorf("failed to subscribe to event bus: %w", err)
			}

			logger.InfoContext(ctx, "Worker started", "worker_id", workerID)
			<-ctx.Done()
			logger.InfoContext(ctx, "Shutting down worker")

			return nil
		},
	}
}

func schedulerCommand() *cli.Command {
	return &cli.Command{
		Name:  "scheduler",
		Usage: "Fire stored schedules as trigger events",
		Flags: withFlags(
			[]cli.Flag{
				databaseFlag(),
				&cli.DurationFlag{
					Name:    "resync-interval",
					Usage:   "How often stored schedules are re-read",
					Value:   time.Minute,
					Sources: cli.EnvVars("SCHEDULER_RESYNC_INTERVAL"),
				},
			},
			eventBusFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("scheduler")

			rt, err := newRuntime(ctx, command, logger, needs{bus: true, schedules: true})
			if err != nil {
				return err
			}

			defer closeRuntime(rt)

			timers := schedule.NewLocalTimers()
			defer timers.Stop()

			return runScheduler(ctx, schedule.NewService(rt.schedules, timers, rt.bus, logger), command.Duration("resync-interval"))
		},
	}
}

// runScheduler restores schedules and re-reads them every interval until ctx
// is canceled, so schedules saved by the API are picked up.
func runScheduler(ctx context.Context, service *schedule.Service, interval time.Duration) error {
	logger := log.WithModule("scheduler")

	if interval <= 0 {
		interval = time.Minute
	}

	if err := service.Restore(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to restore some schedules", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := service.Restore(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to resync schedules", "error", err)
			}
		}
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a stored workflow once and print the result",
		Flags: withFlags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:     "workflow-id",
					Usage:    "Workflow to run",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "trigger",
					Usage: "Trigger node id (first trigger when empty)",
				},
				&cli.StringFlag{
					Name:  "data",
					Usage: "Trigger payload as a JSON object",
					Value: "{}",
				},
				&cli.BoolFlag{
					Name:  "allow-draft",
					Usage: "Run the workflow even when it is not published",
				},
				databaseFlag(),
			},
			executionFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("run")

			var data map[string]any
			if err := json.Unmarshal([]byte(command.String("data")), &data); err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}

			rt, err := newRuntime(ctx, command, logger, needs{executor: true})
			if err != nil {
				return err
			}

			defer closeRuntime(rt)

			wf, err := rt.workflows.FetchByID(ctx, command.String("workflow-id"))
			if err != nil {
				return err
			}

			if !command.Bool("allow-draft") {
				if err := workflow.Executable(wf); err != nil {
					return err
				}
			}

			result, runErr := rt.executor.Run(ctx, wf, workflow.RunRequest{
				TriggerNodeID: command.String("trigger"),
				TriggerData:   data,
			})

			if result != nil {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				if err := encoder.Encode(result); err != nil {
					return err
				}
			}

			return runErr
		},
	}
}

func standaloneCommand() *cli.Command {
	return &cli.Command{
		Name:  "standalone",
		Usage: "Serve the API and run a worker in one process over an in-process event bus",
		Flags: withFlags(
			[]cli.Flag{portFlag(), databaseFlag()},
			executionFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("standalone")

			rt, err := newRuntime(ctx, command, logger, needs{bus: true, executor: true, schedules: true})
			if err != nil {
				return err
			}

			defer closeRuntime(rt)

			worker := NewWorker("standalone", rt.workflows, rt.executor, rt.bus, logger)
			if err := worker.Register(); err != nil {
				return err
			}

			if err := rt.bus.Subscribe(ctx); err != nil {
				return err
			}

			timers := schedule.NewLocalTimers()
			defer timers.Stop()

			schedules := schedule.NewService(rt.schedules, timers, rt.bus, logger)
			if err := schedules.Restore(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to restore some schedules", "error", err)
			}

			handlers := web.NewAPIHandlers(rt.workflows, rt.executor, schedules, rt.registry, rt.validate, logger)

			return NewAPI(logger, handlers).Start(ctx, int(command.Int("port")))
		},
	}
}

func closeRuntime(rt *runtime) {
	// The command context is already canceled on shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rt.Close(ctx); err != nil {
		rt.logger.Error("Failed to close runtime", "error", err)
	}
}
