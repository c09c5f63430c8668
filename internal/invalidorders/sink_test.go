package invalidorders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	bodies []string
	attrs  []map[string]string
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, body string, attributes map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	f.attrs = append(f.attrs, attributes)
	return nil
}

func newTestSink(sender Sender, buf *bytes.Buffer) *Sink {
	s := NewSink(sender, slog.New(slog.NewJSONHandler(buf, nil)))
	s.nowFunc = func() time.Time { return time.Date(2025, 11, 26, 10, 0, 0, 0, time.FixedZone("CET", 3600)) }
	return s
}

func TestPublish_WritesRecord(t *testing.T) {
	sender := &fakeSender{}
	var logs bytes.Buffer
	s := newTestSink(sender, &logs)

	payload := map[string]interface{}{"orderId": "O009"}
	s.Publish(context.Background(), payload, []string{"Missing or invalid 'area' field"}, map[string]interface{}{
		"method":    "POST",
		"requestId": "req-1",
	})

	require.Len(t, sender.bodies, 1)
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(sender.bodies[0]), &rec))
	require.Equal(t, "2025-11-26T09:00:00Z", rec.Timestamp)
	require.Equal(t, []string{"Missing or invalid 'area' field"}, rec.ValidationErrors)
	require.Equal(t, map[string]interface{}{"orderId": "O009"}, rec.OriginalRequest)
	require.Equal(t, "req-1", rec.RequestInfo["requestId"])

	require.Equal(t, map[string]string{"source": "order-api", "violation_count": "1"}, sender.attrs[0])
}

func TestPublish_NilPayloadIsNull(t *testing.T) {
	sender := &fakeSender{}
	s := newTestSink(sender, &bytes.Buffer{})

	s.Publish(context.Background(), nil, []string{"Invalid JSON body"}, map[string]interface{}{"raw_body": "{oops"})

	require.Len(t, sender.bodies, 1)
	require.Contains(t, sender.bodies[0], `"originalRequest":null`)
	require.Contains(t, sender.bodies[0], `"raw_body":"{oops"`)
}

func TestPublish_SwallowsSendFailure(t *testing.T) {
	var logs bytes.Buffer
	s := newTestSink(&fakeSender{err: errors.New("queue down")}, &logs)

	require.NotPanics(t, func() {
		s.Publish(context.Background(), map[string]interface{}{}, []string{"a", "b"}, nil)
	})
	require.Contains(t, logs.String(), "queue invalid order")
	require.Contains(t, logs.String(), "queue down")
}

func TestPublish_SwallowsMarshalFailure(t *testing.T) {
	sender := &fakeSender{}
	var logs bytes.Buffer
	s := newTestSink(sender, &logs)

	s.Publish(context.Background(), map[string]interface{}{"bad": make(chan int)}, []string{"x"}, nil)

	require.Empty(t, sender.bodies)
	require.Contains(t, logs.String(), "marshal invalid order")
}
