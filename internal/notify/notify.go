package notify

import (
	"context"
	"time"

	"medregistry.org/internal/obs"
)

// Sender delivers an out-of-band message to an account holder. Delivery is
// fire-and-forget from the core's perspective; failures are logged, never
// propagated into lifecycle decisions.
type Sender interface {
	Send(ctx context.Context, accountID, message string) error
}

// LogSender emits notifications as structured log lines. It stands in for a
// real delivery channel (email/SMS) in local and test environments.
type LogSender struct{}

// NewLogSender constructs a LogSender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send writes the notification to the shared logger.
func (s *LogSender) Send(ctx context.Context, accountID, message string) error {
	obs.LogEntry(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"type":       "notify",
		"account_id": accountID,
		"message":    message,
	})
	return nil
}
