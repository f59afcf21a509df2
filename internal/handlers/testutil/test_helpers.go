package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/storefront/internal/api"
	"github.com/charlesng35/storefront/internal/app"
	sharedtestutil "github.com/charlesng35/storefront/internal/database/testutil"
	"github.com/charlesng35/storefront/internal/services"
	"github.com/charlesng35/storefront/internal/verification"
	"github.com/charlesng35/storefront/pkg/mail"
	"github.com/charlesng35/storefront/pkg/response"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// Env encapsulates a fully-wired API instance backed by an in-memory transport for handler tests.
type Env struct {
	T       *testing.T
	Router  *gin.Engine
	Manager *verification.Manager
	Mailer  *mail.MemoryMailer
	DB      *gorm.DB
	Audit   *services.AuditService

	mu  sync.Mutex
	now time.Time
}

type envConfig struct {
	audit  bool
	mutate func(*verification.Config)
	app    func(*app.Config)
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

// WithAudit backs the environment with an in-memory SQLite audit trail.
func WithAudit() EnvOption {
	return func(cfg *envConfig) { cfg.audit = true }
}

// WithVerificationConfig adjusts the manager configuration before construction.
func WithVerificationConfig(fn func(*verification.Config)) EnvOption {
	return func(cfg *envConfig) { cfg.mutate = fn }
}

// WithAppConfig adjusts the router configuration before construction.
func WithAppConfig(fn func(*app.Config)) EnvOption {
	return func(cfg *envConfig) { cfg.app = fn }
}

// NewEnv provisions a fresh handler test environment with a fixed clock.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var settings envConfig
	for _, opt := range opts {
		opt(&settings)
	}

	env := &Env{
		T:      t,
		Mailer: &mail.MemoryMailer{},
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	vcfg := verification.DefaultConfig()
	if settings.mutate != nil {
		settings.mutate(&vcfg)
	}

	manager, err := verification.NewManager(vcfg, env.Mailer, verification.WithClock(env.Now))
	require.NoError(t, err)
	env.Manager = manager

	if settings.audit {
		env.DB = sharedtestutil.OpenAuditDB(t)
		env.Audit, err = services.NewAuditService(env.DB, services.WithAuditClock(env.Now))
		require.NoError(t, err)
	}

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	if settings.app != nil {
		settings.app(cfg)
	}

	env.Router, err = api.NewRouter(cfg, manager, env.Audit)
	require.NoError(t, err)

	return env
}

// Now returns the environment clock.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the environment clock forward.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// Envelope bundles a decoded response with its headers.
type Envelope struct {
	response.Response
	Header http.Header
}

// PostJSON sends body as JSON from the given client address.
func (e *Env) PostJSON(path string, body any, remoteIP string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.PostJSONWithHeaders(path, body, remoteIP, nil)
}

// PostJSONWithHeaders is PostJSON with extra request headers.
func (e *Env) PostJSONWithHeaders(path string, body any, remoteIP string, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	payload, err := json.Marshal(body)
	require.NoError(e.T, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if remoteIP != "" {
		req.RemoteAddr = remoteIP + ":40000"
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Get issues a GET request.
func (e *Env) Get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// LastCode extracts the code from the most recently delivered message.
func (e *Env) LastCode() string {
	e.T.Helper()

	msg, ok := e.Mailer.Last()
	require.True(e.T, ok, "no message delivered")
	match := codePattern.FindStringSubmatch(msg.TextBody)
	require.Len(e.T, match, 2, "no code in message body")
	return match[1]
}

// Decode unmarshals the response envelope and, when dest is non-nil, its data payload.
func Decode(t *testing.T, w *httptest.ResponseRecorder, dest any) response.Response {
	t.Helper()

	var envelope struct {
		Success bool                `json:"success"`
		Data    json.RawMessage     `json:"data"`
		Error   *response.ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	if dest != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}

	return response.Response{Success: envelope.Success, Error: envelope.Error}
}
