package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/middleware"
)

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(mw)
	e.GET("/api/v1/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/api/v1/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/api/v1/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	return e
}

func get(e *gin.Engine, path string, header ...string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w.Code
}

func TestRateLimit(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   1,
		Key:     "global",
		Exempt:  []string{"/api/v1/events"},
	}))

	if code := get(e, "/api/v1/ok"); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}

	if code := get(e, "/api/v1/ok"); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}

	for range 3 {
		if code := get(e, "/api/v1/events"); code != http.StatusOK {
			t.Errorf("exempt path = %d, want 200", code)
		}
	}
}

func TestRateLimitByHeader(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   1,
		Key:     "header:X-Client",
	}))

	if code := get(e, "/api/v1/ok", "X-Client", "a"); code != http.StatusOK {
		t.Fatalf("client a = %d", code)
	}

	if code := get(e, "/api/v1/ok", "X-Client", "b"); code != http.StatusOK {
		t.Errorf("client b = %d, want its own bucket", code)
	}

	if code := get(e, "/api/v1/ok", "X-Client", "a"); code != http.StatusTooManyRequests {
		t.Errorf("client a again = %d, want 429", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{RPS: 0.001, Burst: 1}))

	for range 3 {
		if code := get(e, "/api/v1/ok"); code != http.StatusOK {
			t.Fatalf("disabled limiter rejected: %d", code)
		}
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	e := newEngine(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}, "/api/v1/events"))

	for range 2 {
		if code := get(e, "/api/v1/fail"); code != http.StatusInternalServerError {
			t.Fatalf("failing handler = %d", code)
		}
	}

	if code := get(e, "/api/v1/ok"); code != http.StatusServiceUnavailable {
		t.Errorf("open breaker = %d, want 503", code)
	}

	if code := get(e, "/api/v1/events"); code != http.StatusOK {
		t.Errorf("exempt path = %d, want 200", code)
	}
}
