package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/storefront/internal/app"
	"github.com/charlesng35/storefront/internal/handlers"
	"github.com/charlesng35/storefront/internal/handlers/testutil"
	"github.com/charlesng35/storefront/internal/services"
)

const clientIP = "203.0.113.7"

func send(env *testutil.Env, email, ip string) (int, handlers.SendCodeResponse, *testutil.Envelope) {
	w := env.PostJSON("/verify/send", map[string]string{"email": email}, ip)
	var data handlers.SendCodeResponse
	resp := testutil.Decode(env.T, w, &data)
	return w.Code, data, &testutil.Envelope{Response: resp, Header: w.Header()}
}

func check(env *testutil.Env, email, code string) (int, *testutil.Envelope) {
	status, envelope, _ := checkVerified(env, email, code)
	return status, envelope
}

func checkVerified(env *testutil.Env, email, code string) (int, *testutil.Envelope, bool) {
	w := env.PostJSON("/verify/check", map[string]string{"email": email, "code": code}, clientIP)
	var data handlers.CheckCodeResponse
	resp := testutil.Decode(env.T, w, &data)
	return w.Code, &testutil.Envelope{Response: resp, Header: w.Header()}, data.Verified
}

func TestSendCodeSuccess(t *testing.T) {
	env := testutil.NewEnv(t)

	status, data, envelope := send(env, "  Alice@Gmail.com ", clientIP)
	require.Equal(t, http.StatusOK, status)
	require.True(t, envelope.Success)
	require.Equal(t, "al***@gmail.com", data.MaskedEmail)
	require.Equal(t, 600, data.ExpiresIn)
	require.Contains(t, data.Message, "al***@gmail.com")
	require.Empty(t, data.Code)

	msg, ok := env.Mailer.Last()
	require.True(t, ok)
	require.Equal(t, []string{"alice@gmail.com"}, msg.To)
	require.Len(t, env.LastCode(), 6)
}

func TestSendCodeRejectsInvalidEmail(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, email := range []string{"not-an-email", "bob@yahoo.com", "a@b@gmail.com"} {
		status, _, envelope := send(env, email, clientIP)
		require.Equal(t, http.StatusBadRequest, status, email)
		require.Equal(t, "INVALID_EMAIL", envelope.Error.Code, email)
	}

	status, _, envelope := send(env, "   ", clientIP)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "BAD_REQUEST", envelope.Error.Code)
	require.Contains(t, envelope.Error.Message, "email is required")

	require.Empty(t, env.Mailer.Messages())
}

func TestSendCodeRejectsMalformedJSON(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.PostJSON("/verify/send", "just a string", clientIP)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := testutil.Decode(t, w, nil)
	require.Equal(t, "invalid JSON payload", resp.Error.Message)
}

func TestSendCodeIPRateLimit(t *testing.T) {
	env := testutil.NewEnv(t)

	for i := 0; i < 5; i++ {
		status, _, _ := send(env, fmt.Sprintf("user%d@gmail.com", i), clientIP)
		require.Equal(t, http.StatusOK, status)
	}

	status, _, envelope := send(env, "user5@gmail.com", clientIP)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", envelope.Error.Code)
	require.Equal(t, "ip", envelope.Error.Details["scope"])
	require.EqualValues(t, 3600, envelope.Error.Details["retryAfter"])
	require.Equal(t, "3600", envelope.Header.Get("Retry-After"))
	require.Len(t, env.Mailer.Messages(), 5)

	status, _, _ = send(env, "user5@gmail.com", "198.51.100.1")
	require.Equal(t, http.StatusOK, status)
}

func TestSendCodeEmailRateLimit(t *testing.T) {
	env := testutil.NewEnv(t)

	for i := 0; i < 3; i++ {
		status, _, _ := send(env, "alice@gmail.com", fmt.Sprintf("198.51.100.%d", i+1))
		require.Equal(t, http.StatusOK, status)
		env.Advance(time.Minute)
	}

	status, _, envelope := send(env, "alice@gmail.com", "198.51.100.9")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "email", envelope.Error.Details["scope"])
	require.Equal(t, "3420", envelope.Header.Get("Retry-After"))

	env.Advance(time.Hour)
	status, _, _ = send(env, "alice@gmail.com", "198.51.100.9")
	require.Equal(t, http.StatusOK, status)
}

func TestSendCodeDeliveryFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Mailer.SetErr(errors.New("535 authentication failed for smtp-user"))

	status, _, envelope := send(env, "alice@gmail.com", clientIP)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "DELIVERY_FAILED", envelope.Error.Code)
	require.NotContains(t, envelope.Error.Message, "smtp-user")
}

func TestCheckCodeVerifiesOnce(t *testing.T) {
	env := testutil.NewEnv(t)

	status, _, _ := send(env, "alice@gmail.com", clientIP)
	require.Equal(t, http.StatusOK, status)
	code := env.LastCode()

	status, envelope, verified := checkVerified(env, "ALICE@gmail.com", code)
	require.Equal(t, http.StatusOK, status)
	require.True(t, envelope.Success)
	require.True(t, verified)

	status, envelope = check(env, "alice@gmail.com", code)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "CODE_NOT_FOUND", envelope.Error.Code)
}

func TestCheckCodeAttemptsExhaust(t *testing.T) {
	env := testutil.NewEnv(t)

	send(env, "alice@gmail.com", clientIP)
	wrong := wrongCode(env.LastCode())

	status, envelope := check(env, "alice@gmail.com", wrong)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_CODE", envelope.Error.Code)
	require.EqualValues(t, 2, envelope.Error.Details["attemptsRemaining"])

	_, envelope = check(env, "alice@gmail.com", wrong)
	require.EqualValues(t, 1, envelope.Error.Details["attemptsRemaining"])

	status, envelope = check(env, "alice@gmail.com", wrong)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "TOO_MANY_ATTEMPTS", envelope.Error.Code)

	_, envelope = check(env, "alice@gmail.com", wrong)
	require.Equal(t, "CODE_NOT_FOUND", envelope.Error.Code)
}

func TestCheckCodeMalformedCodeConsumesAttempt(t *testing.T) {
	env := testutil.NewEnv(t)

	send(env, "alice@gmail.com", clientIP)

	_, envelope := check(env, "alice@gmail.com", "12ab")
	require.Equal(t, "INVALID_CODE", envelope.Error.Code)
	require.EqualValues(t, 2, envelope.Error.Details["attemptsRemaining"])

	status, envelope := check(env, "alice@gmail.com", "  ")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "BAD_REQUEST", envelope.Error.Code)
}

func TestCheckCodeExpired(t *testing.T) {
	env := testutil.NewEnv(t)

	send(env, "alice@gmail.com", clientIP)
	code := env.LastCode()

	env.Advance(10*time.Minute + time.Second)

	status, envelope := check(env, "alice@gmail.com", code)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "CODE_EXPIRED", envelope.Error.Code)

	_, envelope = check(env, "alice@gmail.com", code)
	require.Equal(t, "CODE_NOT_FOUND", envelope.Error.Code)
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	env := testutil.NewEnv(t)

	send(env, "alice@gmail.com", clientIP)
	first := env.LastCode()
	send(env, "alice@gmail.com", clientIP)
	second := env.LastCode()

	if first != second {
		_, envelope := check(env, "alice@gmail.com", first)
		require.Equal(t, "INVALID_CODE", envelope.Error.Code)
	}

	status, _ := check(env, "alice@gmail.com", second)
	require.Equal(t, http.StatusOK, status)
}

func TestClientIPFromTrustedProxy(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithAppConfig(func(cfg *app.Config) {
		cfg.Server.TrustedProxies = []string{"192.0.2.1"}
	}))

	for i := 0; i < 6; i++ {
		w := env.PostJSONWithHeaders("/verify/send",
			map[string]string{"email": fmt.Sprintf("user%d@gmail.com", i)},
			"192.0.2.1",
			map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i+1)},
		)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientIPIgnoresUntrustedForwardedFor(t *testing.T) {
	env := testutil.NewEnv(t)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		w := env.PostJSONWithHeaders("/verify/send",
			map[string]string{"email": fmt.Sprintf("user%d@gmail.com", i)},
			clientIP,
			map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i+1)},
		)
		codes = append(codes, w.Code)
	}
	require.Equal(t, http.StatusTooManyRequests, codes[5])
}

func TestVerificationAuditTrail(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithAudit())

	send(env, "alice@gmail.com", clientIP)
	code := env.LastCode()
	check(env, "alice@gmail.com", wrongCode(code))
	check(env, "alice@gmail.com", code)
	send(env, "bob@yahoo.com", clientIP)

	logs, total, err := env.Audit.List(context.Background(), services.AuditListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)

	results := map[string]int{}
	for _, entry := range logs {
		results[entry.Action+":"+entry.Result]++
		require.Equal(t, clientIP, entry.IPAddress)
		require.NotEmpty(t, entry.RequestID)
		require.False(t, strings.Contains(entry.MaskedEmail, "alice"), entry.MaskedEmail)
	}
	require.Equal(t, map[string]int{
		"verification.send:issued":        1,
		"verification.check:invalid_code": 1,
		"verification.check:verified":     1,
		"verification.send:invalid_email": 1,
	}, results)
}

func TestHealthReportsPending(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithAudit())
	send(env, "alice@gmail.com", clientIP)

	w := env.Get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"up"`)
	require.Contains(t, w.Body.String(), "1 pending")

	w = env.Get("/api/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"component":"audit_store"`)
}

func TestReadinessDegradesOverPendingThreshold(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithAppConfig(func(cfg *app.Config) {
		cfg.Monitoring.Health.PendingThreshold = 1
	}))
	send(env, "alice@gmail.com", clientIP)
	send(env, "bob@gmail.com", clientIP)

	w := env.Get("/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}
