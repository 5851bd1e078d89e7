package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tracker/internal/infrastructure/config"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Task Manager Pro API", Version: "1.0.0", Environment: "test"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 5000, RequestTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{
			Driver: config.DriverMemory,
		},
		JWT:  config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "test"},
		Auth: config.AuthConfig{BcryptCost: 4},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "http://localhost:5173, http://example.com",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, stores *Stores) http.Handler {
	t.Helper()

	srv, err := New(cfg, stores, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.Handler()
}

func request(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootDescribesAPI(t *testing.T) {
	h := newTestServer(t, testConfig(), NewMemoryStores())

	rec := request(h, http.MethodGet, "/", "", "")
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)

	if rec.Code != http.StatusOK || body["message"] != "Task Manager Pro API" || body["version"] != "1.0.0" || body["success"] != true {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestEndToEndTaskFlow(t *testing.T) {
	h := newTestServer(t, testConfig(), NewMemoryStores())

	rec := request(h, http.MethodPost, "/auth/register", "", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	var reg struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &reg)

	rec = request(h, http.MethodPost, "/tasks", reg.Data.Token, `{"title":"Ship it","priority":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}

	rec = request(h, http.MethodGet, "/tasks?priority=high", reg.Data.Token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Ship it"`) {
		t.Errorf("list: %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("request id header missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, testConfig(), NewMemoryStores())

	request(h, http.MethodGet, "/tasks", "", "")
	rec := request(h, http.MethodGet, "/metrics", "", "")
	body, _ := io.ReadAll(rec.Body)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(string(body), `http_requests_total{method="GET",path="/tasks",status="401"}`) {
		t.Errorf("request counter missing:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	h := newTestServer(t, cfg, NewMemoryStores())

	if rec := request(h, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("metrics served while disabled: %d", rec.Code)
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestReadiness(t *testing.T) {
	h := newTestServer(t, testConfig(), NewMemoryStores())
	if rec := request(h, http.MethodGet, "/ready", "", ""); rec.Code != http.StatusOK {
		t.Errorf("ready: %d %s", rec.Code, rec.Body)
	}

	stores := NewMemoryStores()
	stores.Checks = map[string]ports.HealthChecker{"database": failingCheck{}}
	h = newTestServer(t, testConfig(), stores)

	rec := request(h, http.MethodGet, "/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"database":"error"`) {
		t.Errorf("not ready: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("readiness leaks error detail")
	}

	if rec := request(h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := newTestServer(t, testConfig(), NewMemoryStores())

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimitRequests = 2
	cfg.Security.RateLimitWindow = time.Hour
	h := newTestServer(t, cfg, NewMemoryStores())

	var last int
	for i := 0; i < 3; i++ {
		last = request(h, http.MethodGet, "/health", "", "").Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", last)
	}
}

func TestRateFor(t *testing.T) {
	if got := rateFor(60, time.Minute); float64(got) != 1 {
		t.Errorf("rateFor(60, 1m) = %v, want 1", got)
	}
}

func TestRequestTimeoutRendersEnvelope(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 20 * time.Millisecond

	srv, err := New(cfg, NewMemoryStores(), logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.echo.GET("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	rec := request(srv.Handler(), http.MethodGet, "/slow", "", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("content type = %q", ct)
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Success || body.Message != "Request timed out" {
		t.Errorf("body = %s (%v)", rec.Body, err)
	}
}
