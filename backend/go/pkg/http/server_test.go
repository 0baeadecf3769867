package http

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/httpmiddleware"
	"DocQA/backend/go/pkg/logger"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

// helper function to create a mock config for testing
func newTestConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.App.Debug = true
	cfg.Server.RateLimit = config.RateLimitConfig{
		Enabled: true,
		Rate:    1,
		Burst:   2,
	}
	return cfg
}

func TestNewServer_WithAddress(t *testing.T) {
	cfg := newTestConfig()
	addr := ":9999"

	srv := NewServer(cfg, logger.New("test"), WithAddress(addr))

	if srv.httpServer.Addr != addr {
		t.Errorf("Expected server address to be %s, but got %s", addr, srv.httpServer.Addr)
	}
}

func TestNewServer_DefaultsFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Address = ":7001"

	srv := NewServer(cfg, logger.New("test"))

	if srv.httpServer.Addr != ":7001" {
		t.Errorf("Expected server address :7001, got %s", srv.httpServer.Addr)
	}
	if srv.httpServer.WriteTimeout != cfg.Server.WriteTimeout {
		t.Errorf("Expected write timeout %v, got %v", cfg.Server.WriteTimeout, srv.httpServer.WriteTimeout)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	cfg := newTestConfig()

	srv := NewServer(cfg, logger.New("test"))
	srv.Engine().GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	// First 2 requests should pass (equal to burst)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(testServer.URL)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status OK on request %d, got %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// The 3rd request should be rate limited
	resp, err := http.Get(testServer.URL)
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status TooManyRequests on request 3, got %d", resp.StatusCode)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.RateLimit.Enabled = false

	srv := NewServer(cfg, logger.New("test"))
	srv.Engine().GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status InternalServerError, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Errorf("Expected a detail body, got '%s'", rec.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.RateLimit.Enabled = false

	srv := NewServer(cfg, logger.New("test"))
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(httpmiddleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(httpmiddleware.RequestIDHeader); got != "req-123" {
		t.Errorf("Expected request id req-123, got %q", got)
	}
}
