package verification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/storefront/pkg/logger"
	mailer "github.com/charlesng35/storefront/pkg/mail"
	"github.com/charlesng35/storefront/pkg/metrics"
)

// Issued acknowledges a delivered code. Code is only populated in debug builds
// with code exposure enabled.
type Issued struct {
	MaskedEmail string
	ExpiresAt   time.Time
	Code        string
}

// SweepResult reports what a Sweep removed.
type SweepResult struct {
	Records     int
	RateEntries int
}

// Option customises the Manager.
type Option func(*Manager)

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newCode = gen
		}
	}
}

// Manager owns pending verification records and the request rate limits.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	mailer  mailer.Mailer
	records *recordStore
	limiter *rateLimiter
	hasher  *codeHasher
	now     func() time.Time
	newCode func() (string, error)
	log     *zap.Logger
}

// NewManager constructs a Manager delivering codes through m.
func NewManager(cfg Config, m mailer.Mailer, opts ...Option) (*Manager, error) {
	if m == nil {
		return nil, errors.New("verification: mailer is required")
	}

	cfg = cfg.withDefaults()

	key := cfg.HashKey
	if len(key) == 0 {
		generated, err := GenerateHashKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}
	hasher, err := newCodeHasher(key)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		cfg:     cfg,
		mailer:  m,
		records: newRecordStore(),
		limiter: newRateLimiter(cfg.RateWindow, cfg.IPLimit, cfg.EmailLimit),
		hasher:  hasher,
		now:     time.Now,
		newCode: generateCode,
		log:     logger.WithModule("verification"),
	}

	for _, opt := range opts {
		opt(manager)
	}

	if cfg.ExposeCodes {
		if exposeCodes {
			manager.log.Warn("verification codes are returned to callers; never enable this in production")
		} else {
			manager.log.Warn("code exposure requested but ignored; binary was built without the verifydebug tag")
		}
	}

	return manager, nil
}

// RequestCode issues a new code for email and hands it to the mail transport.
// Any previously pending code for the address is replaced.
func (m *Manager) RequestCode(ctx context.Context, email, clientIP string) (*Issued, error) {
	email, err := m.normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	now := m.now()
	defer m.sweepRateEntries()

	if err := m.limiter.reserve(clientIP, email, now); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			metrics.RateLimited.WithLabelValues(string(rl.Scope)).Inc()
		}
		m.log.Info("verification code request rate limited",
			zap.String("email", MaskEmail(email)),
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return nil, err
	}

	code, err := m.newCode()
	if err != nil {
		return nil, fmt.Errorf("verification: generate code: %w", err)
	}

	expiresAt := now.Add(m.cfg.CodeTTL)
	m.records.put(email, &record{
		codeHash:    m.hasher.sum(email, code),
		expiresAt:   expiresAt,
		maxAttempts: m.cfg.MaxAttempts,
	})
	metrics.CodesIssued.Inc()
	metrics.PendingVerifications.Set(float64(m.records.len()))

	masked := MaskEmail(email)
	msg, err := renderMessage(m.cfg, email, code, m.cfg.CodeTTL)
	if err != nil {
		return nil, err
	}

	transport := mailer.Name(m.mailer)
	if err := m.mailer.Send(ctx, msg); err != nil {
		metrics.MailDeliveries.WithLabelValues(transport, "failure").Inc()
		m.log.Error("verification email delivery failed",
			zap.String("email", masked),
			zap.String("transport", transport),
			zap.Error(err),
		)
		return nil, &DeliveryError{Err: err}
	}
	metrics.MailDeliveries.WithLabelValues(transport, "success").Inc()

	m.log.Info("verification code sent",
		zap.String("email", masked),
		zap.String("transport", transport),
		zap.Time("expires_at", expiresAt),
	)

	issued := &Issued{MaskedEmail: masked, ExpiresAt: expiresAt}
	if exposeCodes && m.cfg.ExposeCodes {
		issued.Code = code
	}
	return issued, nil
}

// CheckCode evaluates a submitted code. A nil error means the address is verified.
func (m *Manager) CheckCode(_ context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	err := m.records.check(email, m.now(), func(digest []byte) bool {
		return m.hasher.matches(digest, email, code)
	})

	result := Outcome(err)
	if err == nil {
		result = "verified"
	}
	metrics.CodeChecks.WithLabelValues(result).Inc()
	metrics.PendingVerifications.Set(float64(m.records.len()))
	m.log.Debug("verification code checked",
		zap.String("email", MaskEmail(email)),
		zap.String("result", result),
	)
	return err
}

// CodeTTL reports how long an issued code stays valid.
func (m *Manager) CodeTTL() time.Duration {
	return m.cfg.CodeTTL
}

// Pending reports the number of addresses awaiting verification.
func (m *Manager) Pending() int {
	return m.records.len()
}

// Sweep drops expired records and rate entries whose window has elapsed.
func (m *Manager) Sweep() SweepResult {
	now := m.now()
	res := SweepResult{
		Records:     m.records.sweepExpired(now),
		RateEntries: m.limiter.sweep(now),
	}
	metrics.PendingVerifications.Set(float64(m.records.len()))
	return res
}

func (m *Manager) sweepRateEntries() {
	if removed := m.limiter.sweep(m.now()); removed > 0 {
		m.log.Debug("rate limit entries swept", zap.Int("removed", removed))
	}
}

func (m *Manager) normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "", ErrInvalidEmail
	}

	if len(m.cfg.AllowedDomains) == 0 {
		return email, nil
	}
	domain := email[at+1:]
	for _, allowed := range m.cfg.AllowedDomains {
		if domain == allowed {
			return email, nil
		}
	}
	return "", ErrInvalidEmail
}

// Outcome labels a Manager error for metrics and audit records. A nil error
// is reported as "ok".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
