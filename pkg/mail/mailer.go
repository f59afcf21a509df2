package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gopkg.in/gomail.v2"
)

var (
	// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
	ErrSMTPDisabled = errors.New("smtp: delivery disabled")
	// ErrNoRecipients is returned when a message has no usable recipient.
	ErrNoRecipients = errors.New("mail: at least one recipient is required")
	// ErrNoSender is returned when neither the message nor the transport provides a sender.
	ErrNoSender = errors.New("mail: sender address is required")
)

// Message represents an outbound email. TextBody is always sent; HTMLBody, when
// present, is attached as a multipart/alternative part.
type Message struct {
	From     string
	FromName string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Name reports the transport label of a mailer, falling back to "custom".
func Name(m Mailer) string {
	if named, ok := m.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "custom"
}

func prepare(msg Message, defaultFrom, defaultName string) (*gomail.Message, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return nil, ErrNoSender
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return nil, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}

	name := strings.TrimSpace(msg.FromName)
	if name == "" {
		name = strings.TrimSpace(defaultName)
	}

	m := gomail.NewMessage()
	if name != "" {
		m.SetAddressHeader("From", from, name)
	} else {
		m.SetHeader("From", from)
	}
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", escapeHeader(msg.Subject))
	m.SetBody("text/plain", msg.TextBody)
	if strings.TrimSpace(msg.HTMLBody) != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	return m, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
