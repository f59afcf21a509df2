package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/storefront/internal/verification"
)

// maxHashKeyBytes is the largest key the code digest accepts.
const maxHashKeyBytes = 64

// ManagerConfig converts VerificationConfig into verification.Config.
func (c VerificationConfig) ManagerConfig() (verification.Config, error) {
	cfg := verification.DefaultConfig()

	if c.AllowedDomains != nil {
		cfg.AllowedDomains = c.AllowedDomains
	}
	if c.CodeTTL > 0 {
		cfg.CodeTTL = c.CodeTTL
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.RateWindow > 0 {
		cfg.RateWindow = c.RateWindow
	}
	cfg.IPLimit = c.IPLimit
	cfg.EmailLimit = c.EmailLimit
	if s := strings.TrimSpace(c.Subject); s != "" {
		cfg.Subject = s
	}
	if s := strings.TrimSpace(c.SenderName); s != "" {
		cfg.SenderName = s
	}
	cfg.ExposeCodes = c.ExposeCodes

	if strings.TrimSpace(c.HashKey) != "" {
		key, err := DecodeKey(c.HashKey)
		if err != nil {
			return verification.Config{}, fmt.Errorf("decode verification hash key: %w", err)
		}
		cfg.HashKey = key
	}

	return cfg, nil
}
