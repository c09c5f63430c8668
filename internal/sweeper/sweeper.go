// Package sweeper promotes pending orders to delivered once their estimated
// preparation time has elapsed.
package sweeper

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/imrishuroy/nomnomnow-orders/internal/orders"
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

// MetricOrdersDelivered is the CloudWatch metric put after every run.
const MetricOrdersDelivered = "OrdersDelivered"

// maxMinutes is the largest estimate that still fits in a time.Duration.
const maxMinutes = math.MaxInt64 / int64(time.Minute)

// zone-less layouts are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Counter records a named count. aws.Metrics implements it.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dims map[string]string) error
}

// Sweeper runs one promotion pass per Run call.
type Sweeper struct {
	store     *orders.Store
	metrics   Counter
	logger    *slog.Logger
	tracer    trace.Tracer
	delivered metric.Int64Counter
	nowFunc   func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithTracer sets the tracer used for the per-run span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Sweeper) { s.tracer = t }
}

// WithMeter registers the orders.delivered counter on m.
func WithMeter(m metric.Meter) Option {
	return func(s *Sweeper) {
		if c, err := m.Int64Counter("orders.delivered",
			metric.WithDescription("Orders promoted to delivered by the sweeper")); err == nil {
			s.delivered = c
		}
	}
}

// New returns a Sweeper over store. metrics may be nil.
func New(store *orders.Store, metrics Counter, logger *slog.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	noopCounter, _ := metricnoop.NewMeterProvider().Meter("sweeper").Int64Counter("orders.delivered")
	s := &Sweeper{
		store:     store,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("internal.sweeper"),
		delivered: noopCounter,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans every order once. Failures are logged; nothing is returned to the caller.
func (s *Sweeper) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "sweeper.Run")
	defer span.End()

	now := s.nowFunc().UTC()
	rows, err := s.store.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list orders")
		s.logger.Error("sweep aborted", slog.String("error", err.Error()))
		return
	}

	updated := 0
	for _, row := range rows {
		if s.sweepRow(ctx, row, now) {
			updated++
		}
	}

	span.SetAttributes(
		attribute.Int("orders.scanned", len(rows)),
		attribute.Int("orders.updated", updated),
	)
	s.delivered.Add(ctx, int64(updated))
	s.logger.Info("sweep finished", slog.Int("scanned", len(rows)), slog.Int("updated", updated))

	if s.metrics != nil {
		if err := s.metrics.Count(ctx, MetricOrdersDelivered, float64(updated), nil); err != nil {
			s.logger.Warn("put sweep metric", slog.String("error", err.Error()))
		}
	}
}

// sweepRow reports whether the row was promoted.
func (s *Sweeper) sweepRow(ctx context.Context, row tablestore.Entity, now time.Time) bool {
	if !orders.IsPending(statusOf(row)) {
		return false
	}

	area, orderID := row.PartitionKey(), row.RowKey()
	log := s.logger.With(slog.String("area", area), slog.String("order_id", orderID))

	created, ok := parseTimestamp(row[tablestore.Timestamp])
	if !ok {
		log.Warn("skip order: no valid creation timestamp")
		return false
	}
	minutes, ok := estimatedMinutes(row)
	if !ok {
		log.Warn("skip order: estimated time missing or not an integer")
		return false
	}
	if int64(minutes) > maxMinutes || int64(minutes) < -maxMinutes {
		log.Warn("skip order: estimated time out of range", slog.Int("estimated_time", minutes))
		return false
	}

	deadline := created.Add(time.Duration(minutes) * time.Minute)
	if now.Before(deadline) {
		return false
	}

	if err := s.store.MarkDelivered(ctx, area, orderID); err != nil {
		log.Error("mark delivered", slog.String("error", err.Error()))
		return false
	}
	log.Info("order delivered", slog.String("deadline", deadline.Format(time.RFC3339)))
	return true
}

func statusOf(row tablestore.Entity) string {
	if v, ok := row[orders.ColStatus]; ok && v != nil {
		s, _ := v.(string)
		return s
	}
	s, _ := row[orders.FieldStatus].(string)
	return s
}

func estimatedMinutes(row tablestore.Entity) (int, bool) {
	v, ok := row[orders.ColEstimatedTime]
	if !ok || v == nil {
		v = row[orders.FieldEstimatedTime]
	}
	if v == nil {
		return 0, false
	}
	return orders.AsInt(v)
}

// parseTimestamp reads an RFC 3339 instant, or a zone-less one as UTC.
func parseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		raw := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts.UTC(), true
		}
		for _, layout := range naiveLayouts {
			if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
