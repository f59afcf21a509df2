package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
	Timeout  time.Duration
}

type smtpDialFunc func(d *gomail.Dialer) (gomail.SendCloser, error)

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPSettings
	dialer *gomail.Dialer
	dialFn smtpDialFunc
}

// NewSMTPMailer constructs a mailer delivering through an SMTP relay.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
func NewSMTPMailer(cfg SMTPSettings) (*SMTPMailer, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	if cfg.UseTLS {
		dialer.SSL = true
	}

	return &SMTPMailer{
		cfg:    cfg,
		dialer: dialer,
		dialFn: defaultDialFunc,
	}, nil
}

func (m *SMTPMailer) Name() string { return "smtp" }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}

	message, err := prepare(msg, m.cfg.From, m.cfg.FromName)
	if err != nil {
		return err
	}

	return m.withTimeout(ctx, func() error {
		sender, err := m.dialFn(m.dialer)
		if err != nil {
			return fmt.Errorf("smtp: dial %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
		}
		defer sender.Close()

		if err := gomail.Send(sender, message); err != nil {
			return fmt.Errorf("smtp: send: %w", err)
		}
		return nil
	})
}

// Verify dials the relay and authenticates without sending anything.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}

	return m.withTimeout(ctx, func() error {
		sender, err := m.dialFn(m.dialer)
		if err != nil {
			return fmt.Errorf("smtp: dial %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
		}
		return sender.Close()
	})
}

// withTimeout runs fn in the background and gives up once ctx or the configured
// timeout expires. gomail has no context support so the dial may outlive the call.
func (m *SMTPMailer) withTimeout(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp: %w", ctx.Err())
	}
}

func validateSMTPConfig(cfg SMTPSettings) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if cfg.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

func defaultDialFunc(d *gomail.Dialer) (gomail.SendCloser, error) {
	return d.Dial()
}
