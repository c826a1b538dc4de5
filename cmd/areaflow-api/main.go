package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/areaflow/areaflow/pkg/cmd"
	"github.com/areaflow/areaflow/pkg/engine"
	"github.com/areaflow/areaflow/pkg/log"
	"github.com/areaflow/areaflow/pkg/otelhelper"
	"github.com/areaflow/areaflow/pkg/runner"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "areaflow-api",
		Usage:                 "Create and manage areas",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML file with area definitions loaded at startup",
				Sources: cli.EnvVars("SEED_FILE"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Areaflow API")

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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "areaflow-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if seedFile := command.String("seed-file"); seedFile != "" {
				if err := seedAreas(ctx, logger, store, seedFile); err != nil {
					return err
				}
			}

			tracer, err := otelhelper.NewTracer(ctx, "areaflow-api")
			if err != nil {
				return err
			}

			eng := engine.New(registry, logger)
			run := runner.New(eng, store, eventBus, tracer, "api", logger)

			api := NewAPI(logger, store, registry, run)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
