package mailer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogProvider writes messages to the logger instead of delivering them.
// Used in development and whenever no Resend key is configured.
type LogProvider struct {
	Logger *slog.Logger
}

// NewLogProvider creates a new log-only provider.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{Logger: logger}
}

// Name returns the provider name.
func (l *LogProvider) Name() string {
	return "log"
}

// Send logs the email message and returns a generated message ID.
func (l *LogProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	id := "log-" + uuid.NewString()
	l.Logger.InfoContext(ctx, "mailer: email logged (not sent)",
		"provider", "log",
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"message_id", id,
	)
	if msg.Text != "" {
		l.Logger.InfoContext(ctx, "mailer: email text body", "message_id", id, "text", msg.Text)
	}
	return SendResult{ProviderMessageID: id}, nil
}
