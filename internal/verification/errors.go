package verification

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEmail indicates the address is malformed or outside the accepted domains.
	ErrInvalidEmail = errors.New("verification: invalid email address")
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("verification: rate limited")
	// ErrDeliveryFailed is matched by every *DeliveryError.
	ErrDeliveryFailed = errors.New("verification: delivery failed")
	// ErrNotFound indicates there is no pending code for the address.
	ErrNotFound = errors.New("verification: no pending code")
	// ErrExpired indicates the pending code outlived its lifetime. The record is gone.
	ErrExpired = errors.New("verification: code expired")
	// ErrTooManyAttempts indicates the attempt cap was reached. The record is gone.
	ErrTooManyAttempts = errors.New("verification: too many attempts")
	// ErrInvalidCode is matched by every *InvalidCodeError.
	ErrInvalidCode = errors.New("verification: invalid code")
)

// Scope names the identity a rate limit applies to.
type Scope string

const (
	ScopeIP    Scope = "ip"
	ScopeEmail Scope = "email"
)

// RateLimitError reports which ceiling rejected a code request and when the
// current window for that key closes.
type RateLimitError struct {
	Scope      Scope
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("verification: rate limited by %s", e.Scope)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// InvalidCodeError reports a mismatched code that still leaves attempts on the record.
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("verification: invalid code, %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// DeliveryError wraps the transport failure that prevented a code from being sent.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("verification: delivery failed: %v", e.Err)
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
