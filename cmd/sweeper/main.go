package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/nomnomnow-orders/internal/aws"
	"github.com/imrishuroy/nomnomnow-orders/internal/config"
	"github.com/imrishuroy/nomnomnow-orders/internal/observability"
	"github.com/imrishuroy/nomnomnow-orders/internal/orders"
	"github.com/imrishuroy/nomnomnow-orders/internal/sweeper"
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

const serviceName = "nomnomnow-sweeper"

// runLoop sweeps once immediately and then every interval until ctx is done.
func runLoop(ctx context.Context, sw *sweeper.Sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("sweeping locally", slog.String("interval", interval.String()))
	sw.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			sw.Run(ctx)
		}
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	inst, shutdown, err := observability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to init observability: %v", err)
	}
	logger := inst.Logger
	flush := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}

	var (
		table   tablestore.Gateway
		metrics sweeper.Counter
	)
	if cfg.TableBackend == config.BackendMemory {
		table = tablestore.NewMemoryTable()
	} else {
		clients, err := aws.NewAWSClients(ctx, cfg.Region, cfg.EndpointOverride)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
		table = tablestore.NewTable(clients.DynamoDB, cfg.OrdersTable)
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}

	sw := sweeper.New(orders.NewStore(table), metrics, logger,
		sweeper.WithTracer(inst.Tracer("internal.sweeper")),
		sweeper.WithMeter(inst.Meter("internal.sweeper")),
	)

	if cfg.RunLocal {
		defer flush()
		loopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		runLoop(loopCtx, sw, cfg.SweepInterval, logger)
		return
	}

	lambda.StartWithOptions(func(ctx context.Context, ev events.CloudWatchEvent) error {
		logger.Info("scheduled sweep", slog.String("event_id", ev.ID), slog.String("rule_time", ev.Time.Format(time.RFC3339)))
		sw.Run(ctx)
		if err := inst.Flush(ctx); err != nil {
			logger.Warn("flush spans", slog.String("error", err.Error()))
		}
		return nil
	}, lambda.WithEnableSIGTERM(flush))
}
