// Package main provides the flowcore worker: it consumes command events from the bus
// and fires due timers.
package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/flowcore/pkg/cmd"
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/log"
	"github.com/dukex/flowcore/pkg/otelhelper"
	"github.com/dukex/flowcore/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const defaultTimerInterval = 10 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "flowcore-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume workflow commands and fire due timers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (gochannel, kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "consumer-group",
				Usage:   "Kafka consumer group shared by every worker",
				Value:   "flowcore-workers",
				Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
			},
			&cli.DurationFlag{
				Name:    "timer-interval",
				Usage:   "How often due timers are dispatched (0 disables the poller)",
				Value:   defaultTimerInterval,
				Sources: cli.EnvVars("TIMER_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowcore-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing flowcore worker")

			tracer, shutdown, err := otelhelper.NewTracer(ctx, "flowcore-worker", command.Bool("otel-enabled"))
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(
				command.String("event-bus"),
				cmd.SplitBrokers(command.String("kafka-brokers")),
				command.String("consumer-group"),
				logger,
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			evaluator := expression.NewEvaluator()
			registry := cmd.NewRegistry(logger, evaluator)
			runtime := services.NewRuntime(persistence, eventBus, registry, evaluator, tracer, logger)

			var timers *TimerPoller
			if interval := command.Duration("timer-interval"); interval > 0 {
				timers = NewTimerPoller(runtime, interval, logger)
			}

			worker := NewWorker(workerID, runtime, eventBus, timers, logger)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
