package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSettings configure delivery through the Gmail REST API using an OAuth2
// refresh token issued for the sending account.
type GmailSettings struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
	FromName     string
}

type gmailSendFunc func(ctx context.Context, raw string) error

// GmailMailer sends messages as the authenticated Gmail user.
type GmailMailer struct {
	cfg    GmailSettings
	sendFn gmailSendFunc
}

// NewGmailMailer builds a Gmail API client authorised with the refresh token.
func NewGmailMailer(ctx context.Context, cfg GmailSettings) (*GmailMailer, error) {
	if err := validateGmailConfig(cfg); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	tokens := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokens))
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}

	return &GmailMailer{
		cfg: cfg,
		sendFn: func(ctx context.Context, raw string) error {
			_, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
			return err
		},
	}, nil
}

func (m *GmailMailer) Name() string { return "gmail" }

func (m *GmailMailer) Send(ctx context.Context, msg Message) error {
	message, err := prepare(msg, m.cfg.From, m.cfg.FromName)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := message.WriteTo(&buf); err != nil {
		return fmt.Errorf("gmail: encode message: %w", err)
	}

	raw := base64.URLEncoding.EncodeToString(buf.Bytes())
	if err := m.sendFn(ctx, raw); err != nil {
		return fmt.Errorf("gmail: send: %w", err)
	}
	return nil
}

func validateGmailConfig(cfg GmailSettings) error {
	switch {
	case strings.TrimSpace(cfg.ClientID) == "":
		return errors.New("gmail: client id is required")
	case strings.TrimSpace(cfg.ClientSecret) == "":
		return errors.New("gmail: client secret is required")
	case strings.TrimSpace(cfg.RefreshToken) == "":
		return errors.New("gmail: refresh token is required")
	case strings.TrimSpace(cfg.From) == "":
		return errors.New("gmail: sender address is required")
	}
	return nil
}
