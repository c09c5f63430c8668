// Package invalidorders forwards rejected order submissions to a queue for review.
package invalidorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// Source is the value of the "source" message attribute.
const Source = "order-api"

// Record is the JSON body of one invalid-order message.
type Record struct {
	Timestamp        string                 `json:"timestamp"`
	ValidationErrors []string               `json:"validationErrors"`
	OriginalRequest  interface{}            `json:"originalRequest"`
	RequestInfo      map[string]interface{} `json:"requestInfo"`
}

// Sender appends one message with string attributes to a queue.
type Sender interface {
	SendMessage(ctx context.Context, body string, attributes map[string]string) error
}

// Sink publishes invalid-order records. It never reports failure to the caller.
type Sink struct {
	sender  Sender
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewSink returns a Sink writing through sender.
func NewSink(sender Sender, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{sender: sender, logger: logger, nowFunc: time.Now}
}

// Publish sends one record for payload. Marshal and send failures are logged
// and dropped; there is no retry.
func (s *Sink) Publish(ctx context.Context, payload interface{}, violations []string, info map[string]interface{}) {
	if violations == nil {
		violations = []string{}
	}
	if info == nil {
		info = map[string]interface{}{}
	}
	rec := Record{
		Timestamp:        s.nowFunc().UTC().Format(time.RFC3339),
		ValidationErrors: violations,
		OriginalRequest:  payload,
		RequestInfo:      info,
	}

	body, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("marshal invalid order", slog.String("error", err.Error()))
		return
	}

	attrs := map[string]string{
		"source":          Source,
		"violation_count": strconv.Itoa(len(violations)),
	}
	if err := s.sender.SendMessage(ctx, string(body), attrs); err != nil {
		s.logger.Error("queue invalid order",
			slog.String("error", err.Error()),
			slog.Int("violations", len(violations)),
		)
		return
	}
	s.logger.Info("invalid order queued", slog.Int("violations", len(violations)))
}
