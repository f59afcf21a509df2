package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/storefront/internal/middleware"
	"github.com/charlesng35/storefront/internal/services"
	"github.com/charlesng35/storefront/internal/verification"
	appErrors "github.com/charlesng35/storefront/pkg/errors"
	"github.com/charlesng35/storefront/pkg/logger"
	"github.com/charlesng35/storefront/pkg/response"
)

// Client-facing errors for the verification endpoints.
var (
	errInvalidEmail = appErrors.New("INVALID_EMAIL", "Please provide a valid Gmail address", http.StatusBadRequest)
	errDelivery     = appErrors.New("DELIVERY_FAILED", "Failed to send verification code. Please try again later.", http.StatusInternalServerError)
	errCodeNotFound = appErrors.New("CODE_NOT_FOUND", "No verification code found for this email. Please request a new code.", http.StatusBadRequest)
	errCodeExpired  = appErrors.New("CODE_EXPIRED", "Verification code has expired. Please request a new code.", http.StatusBadRequest)
	errTooMany      = appErrors.New("TOO_MANY_ATTEMPTS", "Too many failed attempts. Please request a new code.", http.StatusBadRequest)
	errInvalidCode  = appErrors.New("INVALID_CODE", "Invalid verification code", http.StatusBadRequest)
)

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,notblank,max=320"`
}

type checkCodeRequest struct {
	Email string `json:"email" validate:"required,notblank,max=320"`
	Code  string `json:"code" validate:"required,notblank,max=32"`
}

// SendCodeResponse is returned by POST /verify/send.
type SendCodeResponse struct {
	MaskedEmail string `json:"maskedEmail"`
	Message     string `json:"message"`
	ExpiresIn   int    `json:"expiresIn"`
	Code        string `json:"code,omitempty"`
}

// CheckCodeResponse is returned by POST /verify/check.
type CheckCodeResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// VerificationHandler exposes the email verification endpoints.
type VerificationHandler struct {
	manager *verification.Manager
	audit   *services.AuditService
	log     *zap.Logger
}

// NewVerificationHandler wires the handler. audit may be nil when the audit trail is disabled.
func NewVerificationHandler(manager *verification.Manager, audit *services.AuditService) (*VerificationHandler, error) {
	if manager == nil {
		return nil, errors.New("verification handler: manager is required")
	}
	return &VerificationHandler{
		manager: manager,
		audit:   audit,
		log:     logger.WithModule("handlers"),
	}, nil
}

// Send issues a code for the submitted address.
// POST /verify/send
func (h *VerificationHandler) Send(c *gin.Context) {
	var req sendCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	clientIP := c.ClientIP()
	issued, err := h.manager.RequestCode(c.Request.Context(), req.Email, clientIP)

	result := "issued"
	if err != nil {
		result = verification.Outcome(err)
	}
	h.record(c, services.AuditActionSend, result, req.Email, nil)

	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, SendCodeResponse{
		MaskedEmail: issued.MaskedEmail,
		Message:     fmt.Sprintf("Verification code sent to %s", issued.MaskedEmail),
		ExpiresIn:   int(h.manager.CodeTTL() / time.Second),
		Code:        issued.Code,
	})
}

// Check evaluates a submitted code.
// POST /verify/check
func (h *VerificationHandler) Check(c *gin.Context) {
	var req checkCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.manager.CheckCode(c.Request.Context(), req.Email, req.Code)

	result := "verified"
	var metadata map[string]any
	if err != nil {
		result = verification.Outcome(err)
		var invalid *verification.InvalidCodeError
		if errors.As(err, &invalid) {
			metadata = map[string]any{"attemptsRemaining": invalid.AttemptsRemaining}
		}
	}
	h.record(c, services.AuditActionCheck, result, req.Email, metadata)

	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, CheckCodeResponse{
		Verified: true,
		Message:  "Email verified successfully",
	})
}

func (h *VerificationHandler) writeError(c *gin.Context, err error) {
	var (
		rateErr    *verification.RateLimitError
		invalidErr *verification.InvalidCodeError
	)

	switch {
	case errors.Is(err, verification.ErrInvalidEmail):
		response.Error(c, errInvalidEmail)
	case errors.As(err, &rateErr):
		retryAfter := retryAfterSeconds(rateErr.RetryAfter)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		response.Error(c, appErrors.ErrRateLimit.WithDetails(map[string]any{
			"scope":      string(rateErr.Scope),
			"retryAfter": retryAfter,
		}))
	case errors.Is(err, verification.ErrDeliveryFailed):
		response.Error(c, errDelivery.WithInternal(err))
	case errors.As(err, &invalidErr):
		response.Error(c, errInvalidCode.WithDetails(map[string]any{
			"attemptsRemaining": invalidErr.AttemptsRemaining,
		}))
	case errors.Is(err, verification.ErrExpired):
		response.Error(c, errCodeExpired)
	case errors.Is(err, verification.ErrTooManyAttempts):
		response.Error(c, errTooMany)
	case errors.Is(err, verification.ErrNotFound):
		response.Error(c, errCodeNotFound)
	default:
		h.log.Error("verification request failed", zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}

func (h *VerificationHandler) record(c *gin.Context, action, result, email string, metadata map[string]any) {
	services.RecordAudit(c.Request.Context(), h.audit, services.AuditEntry{
		Action:      action,
		Result:      result,
		MaskedEmail: verification.MaskEmail(email),
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		RequestID:   middleware.GetRequestID(c),
		Metadata:    metadata,
	})
}

// retryAfterSeconds rounds up to whole seconds as Retry-After requires.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
