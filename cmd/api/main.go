package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/imrishuroy/nomnomnow-orders/internal/aws"
	"github.com/imrishuroy/nomnomnow-orders/internal/config"
	"github.com/imrishuroy/nomnomnow-orders/internal/handlers"
	"github.com/imrishuroy/nomnomnow-orders/internal/invalidorders"
	"github.com/imrishuroy/nomnomnow-orders/internal/observability"
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

const serviceName = "nomnomnow-api"

func newHandlerConfig(cfg config.Config, clients *aws.AWSClients, logger *slog.Logger) handlers.HandlerConfig {
	table := func(name string) tablestore.Gateway {
		if cfg.TableBackend == config.BackendMemory {
			return tablestore.NewMemoryTable()
		}
		return tablestore.NewTable(clients.DynamoDB, name)
	}

	return handlers.HandlerConfig{
		Orders:      table(cfg.OrdersTable),
		Customers:   table(cfg.CustomersTable),
		Menu:        table(cfg.MenuTable),
		Restaurants: table(cfg.RestaurantsTable),
		Sink:        invalidorders.NewSink(aws.NewPublisher(clients.SQS, cfg.InvalidOrdersQueueURL), logger),
		Logger:      logger,
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

	clients, err := aws.NewAWSClients(ctx, cfg.Region, cfg.EndpointOverride)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	r := handlers.NewRouter(
		newHandlerConfig(cfg, clients, logger),
		otelgin.Middleware(serviceName, otelgin.WithTracerProvider(inst.TracerProvider)),
	)

	if cfg.RunLocal {
		defer flush()
		addr := ":" + cfg.Port
		logger.Info("running local server", slog.String("addr", addr), slog.String("backend", cfg.TableBackend))
		if err := r.Run(addr); err != nil {
			logger.Error("local server exited", slog.String("error", err.Error()))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.StartWithOptions(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		if ferr := inst.Flush(ctx); ferr != nil {
			logger.Warn("flush spans", slog.String("error", ferr.Error()))
		}
		return resp, err
	}, lambda.WithEnableSIGTERM(flush))
}
