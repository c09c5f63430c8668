package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/nomnomnow-orders/internal/aws"
	"github.com/imrishuroy/nomnomnow-orders/internal/config"
	"github.com/imrishuroy/nomnomnow-orders/internal/observability"
)

const serviceName = "nomnomnow-invalid-order-auditor"

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

	var metrics Counter
	if cfg.TableBackend != config.BackendMemory {
		clients, err := aws.NewAWSClients(ctx, cfg.Region, cfg.EndpointOverride)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	p := NewProcessor(metrics, logger)

	// With RUN_LOCAL, audit one simulated message built from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		defer flush()
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"timestamp":"2025-11-26T10:00:00Z","validationErrors":["Missing 'dishesOrdered' field"],"originalRequest":{"area":"North","orderId":"local-order-1"},"requestInfo":{"method":"POST"}}`
		}
		resp, err := p.Handle(ctx, events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Error("local audit failed", slog.Int("failures", len(resp.BatchItemFailures)))
			os.Exit(1)
		}
		return
	}

	lambda.StartWithOptions(p.Handle, lambda.WithEnableSIGTERM(flush))
}
