package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/imrishuroy/nomnomnow-orders/internal/orders"
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

var now = time.Date(2025, 11, 26, 12, 0, 0, 0, time.UTC)

type countCall struct {
	name  string
	value float64
}

type fakeCounter struct {
	calls []countCall
	err   error
}

func (f *fakeCounter) Count(_ context.Context, name string, value float64, _ map[string]string) error {
	f.calls = append(f.calls, countCall{name: name, value: value})
	return f.err
}

// flakyTable fails Merge for one row key and List when listErr is set.
type flakyTable struct {
	*tablestore.MemoryTable
	failRow string
	listErr error
}

func (f *flakyTable) Merge(ctx context.Context, e tablestore.Entity) error {
	if e.RowKey() == f.failRow {
		return errors.New("throttled")
	}
	return f.MemoryTable.Merge(ctx, e)
}

func (f *flakyTable) List(ctx context.Context) ([]tablestore.Entity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryTable.List(ctx)
}

func seed(t *testing.T, tbl tablestore.Gateway, rows ...tablestore.Entity) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, tbl.Upsert(context.Background(), row))
	}
}

func order(area, id string, created time.Time, cols map[string]interface{}) tablestore.Entity {
	e := tablestore.Entity{
		tablestore.PartitionKey: area,
		tablestore.RowKey:       id,
		tablestore.Timestamp:    created.Format(time.RFC3339Nano),
		orders.ColOrderID:       id,
		orders.ColCustomerID:    "C001",
	}
	for k, v := range cols {
		e[k] = v
	}
	return e
}

func newTestSweeper(tbl tablestore.Gateway, counter Counter, opts ...Option) *Sweeper {
	s := New(orders.NewStore(tbl), counter, slog.New(slog.NewJSONHandler(io.Discard, nil)), opts...)
	s.nowFunc = func() time.Time { return now }
	return s
}

func statuses(t *testing.T, tbl tablestore.Gateway) map[string]interface{} {
	t.Helper()
	rows, err := tbl.List(context.Background())
	require.NoError(t, err)
	out := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		if v, ok := row[orders.ColStatus]; ok {
			out[row.RowKey()] = v
		} else {
			out[row.RowKey()] = row[orders.FieldStatus]
		}
	}
	return out
}

func TestRun_PromotesDueOrders(t *testing.T) {
	tbl := tablestore.NewMemoryTable()
	seed(t, tbl,
		order("North", "due", now.Add(-40*time.Minute), map[string]interface{}{"Status": "Pending", "EstimatedTime": 35}),
		order("North", "early", now.Add(-40*time.Minute), map[string]interface{}{"Status": "Pending", "EstimatedTime": 45}),
		order("North", "exact", now.Add(-30*time.Minute), map[string]interface{}{"Status": "pending", "EstimatedTime": 30}),
		order("South", "done", now.Add(-48*time.Hour), map[string]interface{}{"Status": "delivered", "EstimatedTime": 5}),
		order("South", "shouty", now.Add(-20*time.Minute), map[string]interface{}{"Status": "PENDING", "EstimatedTime": "10"}),
		order("South", "lower", now.Add(-time.Minute), map[string]interface{}{"status": "pending", "estimatedTime": 0}),
		order("West", "cancelled", now.Add(-48*time.Hour), map[string]interface{}{"Status": "cancelled", "EstimatedTime": 5}),
	)
	counter := &fakeCounter{}

	newTestSweeper(tbl, counter).Run(context.Background())

	require.Equal(t, map[string]interface{}{
		"due":       "delivered",
		"early":     "Pending",
		"exact":     "delivered",
		"done":      "delivered",
		"shouty":    "delivered",
		"lower":     "delivered",
		"cancelled": "cancelled",
	}, statuses(t, tbl))
	require.Equal(t, []countCall{{name: MetricOrdersDelivered, value: 4}}, counter.calls)
}

func TestRun_KeepsOtherColumns(t *testing.T) {
	tbl := tablestore.NewMemoryTable()
	created := now.Add(-time.Hour)
	seed(t, tbl, order("North", "O1", created, map[string]interface{}{
		"Status":        "Pending",
		"EstimatedTime": 35,
		"DishesOrdered": `["D007"]`,
		"TotalCost":     "19.80€",
	}))

	newTestSweeper(tbl, nil).Run(context.Background())

	rows, err := tbl.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, "delivered", rows[0]["Status"])
	require.Equal(t, `["D007"]`, rows[0]["DishesOrdered"])
	require.Equal(t, "19.80€", rows[0]["TotalCost"])
	require.Equal(t, created.Format(time.RFC3339Nano), rows[0][tablestore.Timestamp])
}

func TestRun_Idempotent(t *testing.T) {
	tbl := tablestore.NewMemoryTable()
	seed(t, tbl, order("North", "O1", now.Add(-time.Hour), map[string]interface{}{"Status": "Pending", "EstimatedTime": 35}))
	counter := &fakeCounter{}
	s := newTestSweeper(tbl, counter)

	s.Run(context.Background())
	first := statuses(t, tbl)
	s.Run(context.Background())

	require.Equal(t, first, statuses(t, tbl))
	require.Equal(t, []countCall{
		{name: MetricOrdersDelivered, value: 1},
		{name: MetricOrdersDelivered, value: 0},
	}, counter.calls)
}

func TestRun_SkipsUnevaluableRows(t *testing.T) {
	tbl := tablestore.NewMemoryTable()
	old := now.Add(-48 * time.Hour)
	seed(t, tbl,
		order("North", "no-estimate", old, map[string]interface{}{"Status": "Pending"}),
		order("North", "bad-estimate", old, map[string]interface{}{"Status": "Pending", "EstimatedTime": "soon"}),
		order("North", "bad-ts", old, map[string]interface{}{"Status": "Pending", "EstimatedTime": 5, tablestore.Timestamp: "yesterday"}),
		order("North", "huge", old, map[string]interface{}{"Status": "Pending", "EstimatedTime": "9223372036854775807"}),
	)

	newTestSweeper(tbl, nil).Run(context.Background())

	for id, status := range statuses(t, tbl) {
		require.Equal(t, "Pending", status, id)
	}
}

func TestRun_RowFailureDoesNotStopPass(t *testing.T) {
	tbl := &flakyTable{MemoryTable: tablestore.NewMemoryTable(), failRow: "A"}
	seed(t, tbl,
		order("North", "A", now.Add(-time.Hour), map[string]interface{}{"Status": "Pending", "EstimatedTime": 1}),
		order("North", "B", now.Add(-time.Hour), map[string]interface{}{"Status": "Pending", "EstimatedTime": 1}),
	)
	counter := &fakeCounter{err: errors.New("cloudwatch down")}

	require.NotPanics(t, func() { newTestSweeper(tbl, counter).Run(context.Background()) })

	require.Equal(t, map[string]interface{}{"A": "Pending", "B": "delivered"}, statuses(t, tbl))
	require.Equal(t, []countCall{{name: MetricOrdersDelivered, value: 1}}, counter.calls)
}

func TestRun_ListFailureEndsRun(t *testing.T) {
	tbl := &flakyTable{MemoryTable: tablestore.NewMemoryTable(), listErr: errors.New("scan failed")}
	counter := &fakeCounter{}

	newTestSweeper(tbl, counter).Run(context.Background())

	require.Empty(t, counter.calls)
}

func TestRun_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tbl := tablestore.NewMemoryTable()
	seed(t, tbl,
		order("North", "O1", now.Add(-time.Hour), map[string]interface{}{"Status": "Pending", "EstimatedTime": 35}),
		order("North", "O2", now, map[string]interface{}{"Status": "Pending", "EstimatedTime": 35}),
	)

	newTestSweeper(tbl, nil, WithTracer(provider.Tracer("test"))).Run(context.Background())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "sweeper.Run", spans[0].Name())
	require.ElementsMatch(t, []attribute.KeyValue{
		attribute.Int("orders.scanned", 2),
		attribute.Int("orders.updated", 1),
	}, spans[0].Attributes())
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2025-11-26T10:00:00Z":          time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC),
		"2025-11-26T11:00:00+01:00":     time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC),
		"2025-11-26T10:00:00.123456789Z": time.Date(2025, 11, 26, 10, 0, 0, 123456789, time.UTC),
		"2025-11-26T10:00:00":           time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC),
		"2025-11-26 10:00:00.5":         time.Date(2025, 11, 26, 10, 0, 0, 500000000, time.UTC),
	}
	for raw, want := range cases {
		got, ok := parseTimestamp(raw)
		require.True(t, ok, raw)
		require.True(t, want.Equal(got), raw)
	}

	for _, bad := range []interface{}{nil, "", "yesterday", 1764150000, time.Time{}} {
		_, ok := parseTimestamp(bad)
		require.False(t, ok, bad)
	}
}
