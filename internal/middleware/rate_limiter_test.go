package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0.001, 2)

	r := gin.New()
	r.POST("/click", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/click", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusNoContent {
		t.Errorf("other IPs must not share the bucket, got %d", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	start := time.Now()
	limiter.allow("10.0.0.1", start)
	limiter.allow("10.0.0.2", start.Add(9*time.Minute))

	if removed := limiter.Cleanup(start.Add(11 * time.Minute)); removed != 1 {
		t.Errorf("expected 1 idle bucket removed, got %d", removed)
	}
	if len(limiter.visitors) != 1 {
		t.Errorf("expected 1 bucket left, got %d", len(limiter.visitors))
	}
}
