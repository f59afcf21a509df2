package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/storefront/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
// The SMTP username doubles as the sender when no explicit from address is set.
func (c EmailConfig) SMTPSettings(senderName string) mail.SMTPSettings {
	from := strings.TrimSpace(c.SMTP.From)
	if from == "" {
		from = strings.TrimSpace(c.SMTP.Username)
	}
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     from,
		FromName: senderName,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// GmailSettings converts EmailConfig to the Gmail API transport settings.
func (c EmailConfig) GmailSettings(senderName string) mail.GmailSettings {
	return mail.GmailSettings{
		ClientID:     c.Gmail.ClientID,
		ClientSecret: c.Gmail.ClientSecret,
		RefreshToken: c.Gmail.RefreshToken,
		From:         c.Gmail.From,
		FromName:     senderName,
	}
}

// NewMailer builds the configured email transport.
func (c EmailConfig) NewMailer(ctx context.Context, senderName string, log *zap.Logger) (mail.Mailer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(c.Transport)) {
	case "", TransportSMTP:
		settings := c.SMTPSettings(senderName)
		if settings.Enabled && strings.TrimSpace(settings.Username) == "" {
			log.Warn("smtp transport has no credentials configured; deliveries will likely fail")
		}
		mailer, err := mail.NewSMTPMailer(settings)
		if err != nil {
			return nil, err
		}
		if c.VerifyOnStartup {
			if err := mailer.Verify(ctx); err != nil {
				return nil, fmt.Errorf("smtp verify: %w", err)
			}
			log.Info("smtp relay verified", zap.String("host", settings.Host), zap.Int("port", settings.Port))
		}
		return mailer, nil
	case TransportGmail:
		mailer, err := mail.NewGmailMailer(ctx, c.GmailSettings(senderName))
		if err != nil {
			return nil, err
		}
		return mailer, nil
	case TransportLog:
		return mail.NewLogMailer(c.SMTP.From, log), nil
	default:
		return nil, fmt.Errorf("unsupported email transport %q", c.Transport)
	}
}
