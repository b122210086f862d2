package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestServerServesRouterAndShutsDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := NewRouter(RouterConfig{})
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	s := NewServer(engine, "127.0.0.1:0")
	if s.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr got=%q", s.Addr())
	}

	rec := httptest.NewRecorder()
	s.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("ping got=%d %q", rec.Code, rec.Body.String())
	}

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Shutdown")
	}
}
