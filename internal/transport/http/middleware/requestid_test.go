package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/requestid"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/transport/http/middleware"
)

func newRequestIDEngine(seen *string) *gin.Engine {
	r := gin.New()
	r.GET("/ping", middleware.RequestID(), func(c *gin.Context) {
		*seen = requestid.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	newRequestIDEngine(&seen).ServeHTTP(w, req)

	header := w.Header().Get("X-Request-ID")
	if header == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if seen != header {
		t.Errorf("context id = %q, header = %q, want equal", seen, header)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var seen string
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	newRequestIDEngine(&seen).ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-abc-123" {
		t.Errorf("header = %q, want req-abc-123", got)
	}
	if seen != "req-abc-123" {
		t.Errorf("context id = %q, want req-abc-123", seen)
	}
}
