package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/gustolabs/fluxo/pkg/cmd"
	"github.com/gustolabs/fluxo/pkg/engine"
	"github.com/gustolabs/fluxo/pkg/log"
	"github.com/gustolabs/fluxo/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxo-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker that executes marketing automation flows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://path or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for distributed run locks (optional)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				Value:   0,
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.StringFlag{
				Name:    "delivery-endpoint",
				Usage:   "Message delivery provider endpoint (optional, log backend when unset)",
				Value:   "",
				Sources: cli.EnvVars("DELIVERY_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "delivery-api-key",
				Usage:   "Message delivery provider API key",
				Value:   "",
				Sources: cli.EnvVars("DELIVERY_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "profile-api-url",
				Usage:   "Customer profile API base URL (optional, log backend when unset)",
				Value:   "",
				Sources: cli.EnvVars("PROFILE_API_URL"),
			},
			&cli.StringFlag{
				Name:    "profile-api-key",
				Usage:   "Customer profile API key",
				Value:   "",
				Sources: cli.EnvVars("PROFILE_API_KEY"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("fluxo-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Fluxo Worker")

			tracer, err := otelhelper.NewTracer(ctx, "fluxo-worker")
			if err != nil {
				logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)

				tracer = nil
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persist := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			locker := cmd.NewLocker(ctx, logger,
				command.String("redis-addr"),
				command.String("redis-password"),
				int(command.Int("redis-db")))

			sender := cmd.NewSender(ctx, logger,
				command.String("delivery-endpoint"),
				command.String("delivery-api-key"))

			profiles := cmd.NewProfileService(ctx, logger,
				command.String("profile-api-url"),
				command.String("profile-api-key"))

			executor := engine.NewExecutor(logger, persist, sender, profiles, locker, eventBus)

			worker := NewWorkerManager(workerID, persist, eventBus, executor, tracer, logger)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
