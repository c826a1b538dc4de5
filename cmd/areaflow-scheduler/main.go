package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/areaflow/areaflow/pkg/cmd"
	"github.com/areaflow/areaflow/pkg/engine"
	"github.com/areaflow/areaflow/pkg/log"
	"github.com/areaflow/areaflow/pkg/otelhelper"
	"github.com/areaflow/areaflow/pkg/runner"
)

func main() {
	command := &cli.Command{
		Name:                  "areaflow-scheduler",
		Usage:                 "Poll triggers and run enabled areas",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "worker-id",
				Usage:   "Stable identifier for this scheduler instance",
				Value:   "scheduler",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for shared dedup markers (empty keeps markers in memory)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("scheduler")
			logger.InfoContext(ctx, "Initializing Areaflow scheduler")

			registry, err := cmd.NewRegistry(logger)
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "areaflow-scheduler", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer, err := otelhelper.NewTracer(ctx, "areaflow-scheduler")
			if err != nil {
				return err
			}

			markers, err := newMarkerStore(ctx, command.String("redis-addr"))
			if err != nil {
				return err
			}

			defer func() {
				if err := markers.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close marker store", "error", err)
				}
			}()

			workerID := command.String("worker-id")
			eng := engine.New(registry, logger)
			run := runner.New(eng, store, eventBus, tracer, workerID, logger)

			manager := NewManager(store, run, markers, logger)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := manager.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("Shutting down scheduler")

			return manager.Stop(context.Background())
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func newMarkerStore(ctx context.Context, redisAddr string) (runner.MarkerStore, error) {
	if redisAddr == "" {
		return runner.NewMemoryMarkerStore(0), nil
	}

	return runner.NewRedisMarkerStore(ctx, redisAddr, os.Getenv("REDIS_PASSWORD"), 0, 0)
}
