package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	from   string
	to     []string
	body   bytes.Buffer
	closed bool
	err    error
}

func (f *fakeSender) Send(from string, to []string, msg io.WriterTo) error {
	if f.err != nil {
		return f.err
	}
	f.from = from
	f.to = to
	_, err := msg.WriteTo(&f.body)
	return err
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func newTestSMTPMailer(t *testing.T, sender *fakeSender) *SMTPMailer {
	t.Helper()
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		From:     "no-reply@example.com",
		FromName: "Watch Store",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}
	mailer.dialFn = func(*gomail.Dialer) (gomail.SendCloser, error) {
		return sender, nil
	}
	return mailer
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
	})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	_, err = NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
	})
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Fatalf("expected port validation error, got %v", err)
	}

	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected disabled configuration to succeed: %v", err)
	}

	if mailer == nil {
		t.Fatal("expected mailer to be returned")
	}
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:       []string{"test@example.com"},
		Subject:  "Test",
		TextBody: "Hello",
	})
	if !errors.Is(err, ErrSMTPDisabled) {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
	if err := mailer.Verify(context.Background()); !errors.Is(err, ErrSMTPDisabled) {
		t.Fatalf("expected ErrSMTPDisabled from Verify, got %v", err)
	}
}

func TestSMTPMailerDefaults(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    465,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	if mailer.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout to be 10s, got %v", mailer.cfg.Timeout)
	}
	if !mailer.dialer.SSL {
		t.Fatal("expected implicit TLS on port 465")
	}
	if Name(mailer) != "smtp" {
		t.Fatalf("unexpected transport name %q", Name(mailer))
	}
}

func TestSMTPMailerSendWritesMultipartMessage(t *testing.T) {
	sender := &fakeSender{}
	mailer := newTestSMTPMailer(t, sender)

	err := mailer.Send(context.Background(), Message{
		To:       []string{"user@gmail.com", " user@gmail.com "},
		Subject:  "Your code\r\nBcc: evil@example.com",
		TextBody: "plain body",
		HTMLBody: "<p>html body</p>",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if sender.from != "no-reply@example.com" {
		t.Fatalf("unexpected envelope sender %q", sender.from)
	}
	if len(sender.to) != 1 || sender.to[0] != "user@gmail.com" {
		t.Fatalf("unexpected envelope recipients %v", sender.to)
	}
	if !sender.closed {
		t.Fatal("expected connection to be closed")
	}

	content := sender.body.String()
	for _, want := range []string{"Watch Store", "multipart/alternative", "plain body", "html body"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected message to contain %q, got %q", want, content)
		}
	}
	if strings.Contains(content, "\r\nBcc:") {
		t.Fatalf("expected subject header injection to be neutralised, got %q", content)
	}
}

func TestSMTPMailerSendWrapsTransportErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("550 mailbox unavailable")}
	mailer := newTestSMTPMailer(t, sender)

	err := mailer.Send(context.Background(), Message{To: []string{"user@gmail.com"}, TextBody: "x"})
	if err == nil || !strings.Contains(err.Error(), "smtp: send") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestSMTPMailerSendHonoursContext(t *testing.T) {
	mailer := newTestSMTPMailer(t, &fakeSender{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	mailer.dialFn = func(*gomail.Dialer) (gomail.SendCloser, error) {
		<-release
		return nil, errors.New("released")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mailer.Send(ctx, Message{To: []string{"user@gmail.com"}, TextBody: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSMTPMailerVerifyDialsRelay(t *testing.T) {
	sender := &fakeSender{}
	mailer := newTestSMTPMailer(t, sender)

	if err := mailer.Verify(context.Background()); err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if !sender.closed {
		t.Fatal("expected verify to close the connection")
	}

	mailer.dialFn = func(*gomail.Dialer) (gomail.SendCloser, error) {
		return nil, errors.New("535 authentication failed")
	}
	if err := mailer.Verify(context.Background()); err == nil || !strings.Contains(err.Error(), "535") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	mailer := newTestSMTPMailer(t, &fakeSender{})

	err := mailer.Send(context.Background(), Message{
		To:       []string{"   ", "\t"},
		Subject:  "No recipients",
		TextBody: "Body",
	})
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
}

func TestSendValidatesAddresses(t *testing.T) {
	mailer := newTestSMTPMailer(t, &fakeSender{})

	err := mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("expected invalid from error, got %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To: []string{"user@example.com", "bad-address"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient address") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestGmailMailerEncodesRawMessage(t *testing.T) {
	var raw string
	mailer := &GmailMailer{
		cfg: GmailSettings{From: "store@gmail.com", FromName: "Watch Store"},
		sendFn: func(_ context.Context, r string) error {
			raw = r
			return nil
		},
	}

	err := mailer.Send(context.Background(), Message{
		To:       []string{"user@gmail.com"},
		Subject:  "Your Gmail Verification Code",
		TextBody: "code inside",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("expected base64url payload: %v", err)
	}
	if !strings.Contains(string(decoded), "Subject: Your Gmail Verification Code") {
		t.Fatalf("unexpected raw message %q", decoded)
	}
	if Name(mailer) != "gmail" {
		t.Fatalf("unexpected transport name %q", Name(mailer))
	}
}

func TestGmailMailerWrapsAPIErrors(t *testing.T) {
	mailer := &GmailMailer{
		cfg: GmailSettings{From: "store@gmail.com"},
		sendFn: func(context.Context, string) error {
			return errors.New("invalid_grant")
		},
	}

	err := mailer.Send(context.Background(), Message{To: []string{"user@gmail.com"}, TextBody: "x"})
	if err == nil || !strings.Contains(err.Error(), "gmail: send") {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
}

func TestNewGmailMailerValidatesConfig(t *testing.T) {
	_, err := NewGmailMailer(context.Background(), GmailSettings{ClientID: "id", ClientSecret: "secret"})
	if err == nil || !strings.Contains(err.Error(), "refresh token is required") {
		t.Fatalf("expected refresh token validation error, got %v", err)
	}
}

func TestLogMailerOmitsBodies(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	mailer := NewLogMailer("store@gmail.com", zap.New(core))

	err := mailer.Send(context.Background(), Message{
		To:       []string{"user@gmail.com"},
		Subject:  "Subject",
		TextBody: "secret 123456",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if recorded.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", recorded.Len())
	}
	for _, value := range recorded.All()[0].ContextMap() {
		if s, ok := value.(string); ok && strings.Contains(s, "123456") {
			t.Fatalf("expected message body to stay out of logs, got %v", value)
		}
	}
}

func TestMemoryMailerRecordsAndFails(t *testing.T) {
	mailer := &MemoryMailer{}
	if _, ok := mailer.Last(); ok {
		t.Fatal("expected no messages initially")
	}

	if err := mailer.Send(context.Background(), Message{Subject: "one"}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	last, ok := mailer.Last()
	if !ok || last.Subject != "one" {
		t.Fatalf("unexpected last message %+v", last)
	}

	boom := errors.New("boom")
	mailer.SetErr(boom)
	if err := mailer.Send(context.Background(), Message{Subject: "two"}); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if len(mailer.Messages()) != 1 {
		t.Fatalf("expected failed send to be skipped, got %d messages", len(mailer.Messages()))
	}
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"}
	result := uniqueAddresses(addresses)
	if len(result) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(result), result)
	}
	if result[0] != "alice@example.com" || result[1] != "bob@example.com" {
		t.Fatalf("unexpected result order/content: %v", result)
	}
}
