package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/nomnomnow-orders/internal/invalidorders"
)

// MetricInvalidOrders counts audited invalid-order messages per batch.
const MetricInvalidOrders = "InvalidOrders"

var errMalformedRecord = errors.New("malformed invalid-order record")

// Counter records a named count. aws.Metrics implements it.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dims map[string]string) error
}

// Processor audits messages from the invalid-orders queue.
type Processor struct {
	metrics Counter
	logger  *slog.Logger
}

// NewProcessor returns a Processor. metrics may be nil.
func NewProcessor(metrics Counter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{metrics: metrics, logger: logger}
}

// Handle logs every record of the batch. Messages that cannot be decoded are
// reported as batch item failures so only they are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	audited := 0

	for _, msg := range ev.Records {
		if err := p.processMessage(msg); err != nil {
			p.logger.Error("audit message",
				slog.String("message_id", msg.MessageId),
				slog.String("error", err.Error()),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
			continue
		}
		audited++
	}

	if audited > 0 && p.metrics != nil {
		dims := map[string]string{"Source": invalidorders.Source}
		if err := p.metrics.Count(ctx, MetricInvalidOrders, float64(audited), dims); err != nil {
			p.logger.Warn("put audit metric", slog.String("error", err.Error()))
		}
	}
	p.logger.Info("batch audited",
		slog.Int("received", len(ev.Records)),
		slog.Int("audited", audited),
		slog.Int("failed", len(resp.BatchItemFailures)),
	)
	return resp, nil
}

func (p *Processor) processMessage(msg events.SQSMessage) error {
	var rec invalidorders.Record
	if err := json.Unmarshal([]byte(msg.Body), &rec); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if _, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q", errMalformedRecord, rec.Timestamp)
	}
	if len(rec.ValidationErrors) == 0 {
		return fmt.Errorf("%w: no validation errors", errMalformedRecord)
	}

	attrs := []any{
		slog.String("message_id", msg.MessageId),
		slog.String("rejected_at", rec.Timestamp),
		slog.Any("violations", rec.ValidationErrors),
		slog.String("source", attribute(msg, "source")),
	}
	if id, ok := rec.RequestInfo["requestId"].(string); ok {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if payload, ok := rec.OriginalRequest.(map[string]interface{}); ok {
		if orderID, ok := payload["orderId"].(string); ok {
			attrs = append(attrs, slog.String("order_id", orderID))
		}
		if area, ok := payload["area"].(string); ok {
			attrs = append(attrs, slog.String("area", area))
		}
	} else if raw, ok := rec.RequestInfo["raw_body"].(string); ok {
		attrs = append(attrs, slog.Int("raw_body_bytes", len(raw)))
	}

	p.logger.Warn("invalid order", attrs...)
	return nil
}

func attribute(msg events.SQSMessage, name string) string {
	if a, ok := msg.MessageAttributes[name]; ok && a.StringValue != nil {
		return *a.StringValue
	}
	return ""
}
