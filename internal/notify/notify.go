// ABOUTME: Outbound notification contract and the log and fan-out sinks
// ABOUTME: Concrete transports live in smtp.go and matrix.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sink delivers messages.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// LogSink writes messages to a logger instead of delivering them.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "notify")}
}

// Send logs msg at info level.
func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// Multi delivers every message to each sink in order. All sinks are tried;
// their errors are joined.
type Multi []Sink

// Send implements Sink.
func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for i, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
