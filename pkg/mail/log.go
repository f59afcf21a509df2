package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer records deliveries in the application log instead of sending them.
// Message bodies are never logged.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer returns a mailer that only logs message metadata.
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{from: from, logger: logger}
}

func (m *LogMailer) Name() string { return "log" }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if _, err := prepare(msg, m.from, ""); err != nil {
		return err
	}
	m.logger.Info("email delivery skipped (log transport)",
		zap.Int("recipients", len(uniqueAddresses(msg.To))),
		zap.String("subject", msg.Subject),
		zap.Int("text_bytes", len(msg.TextBody)),
		zap.Bool("html", msg.HTMLBody != ""),
	)
	return nil
}
