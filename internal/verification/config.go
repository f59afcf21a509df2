package verification

import (
	"strings"
	"time"
)

const (
	DefaultCodeTTL     = 10 * time.Minute
	DefaultMaxAttempts = 3
	DefaultIPLimit     = 5
	DefaultEmailLimit  = 3
	DefaultRateWindow  = time.Hour
	DefaultSubject     = "Your Gmail Verification Code"
	DefaultSenderName  = "Watch Store"
)

// Config controls code lifetime, attempt cap and rate ceilings.
type Config struct {
	// AllowedDomains restricts which address domains may request codes.
	// An empty list accepts any domain.
	AllowedDomains []string
	CodeTTL        time.Duration
	MaxAttempts    int
	// IPLimit and EmailLimit are requests per RateWindow. Zero disables the ceiling.
	IPLimit        int
	EmailLimit     int
	RateWindow     time.Duration
	// HashKey keys the code digest. A random key is generated when empty,
	// which invalidates pending codes on restart.
	HashKey    []byte
	Subject    string
	SenderName string
	// ExposeCodes returns plaintext codes to callers. Only honoured in
	// binaries built with the verifydebug tag.
	ExposeCodes bool
}

// DefaultConfig returns the storefront defaults: gmail.com only, 10 minute
// codes, 3 attempts, 5 requests per IP and 3 per email each hour.
func DefaultConfig() Config {
	return Config{
		AllowedDomains: []string{"gmail.com"},
		CodeTTL:        DefaultCodeTTL,
		MaxAttempts:    DefaultMaxAttempts,
		IPLimit:        DefaultIPLimit,
		EmailLimit:     DefaultEmailLimit,
		RateWindow:     DefaultRateWindow,
		Subject:        DefaultSubject,
		SenderName:     DefaultSenderName,
	}
}

func (c Config) withDefaults() Config {
	if c.CodeTTL <= 0 {
		c.CodeTTL = DefaultCodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RateWindow <= 0 {
		c.RateWindow = DefaultRateWindow
	}
	if strings.TrimSpace(c.Subject) == "" {
		c.Subject = DefaultSubject
	}
	domains := make([]string, 0, len(c.AllowedDomains))
	for _, d := range c.AllowedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	c.AllowedDomains = domains
	return c
}
