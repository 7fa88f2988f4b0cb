package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	middlewarePkg "github.com/zhouzirui/legalease/backend/internal/middleware"
	legalModel "github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	limiter, err := middlewarePkg.NewRateLimiter(0.001, 1)
	if err != nil {
		t.Fatalf("NewRateLimiter: %v", err)
	}
	return NewRouter(Services{
		Catalog:   legalModel.NewMemoryStore(legalModel.MustSeed()),
		Chat:      chatService.NewService(mem),
		Machine:   appstate.NewMachine(mem),
		Formatter: render.NewFormatter(render.WithPolicy(render.NewPolicy())),
		Limiter:   limiter,
	})
}

func TestRouterServesCatalogAndHealth(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/healthz", "/api/disclaimer", "/api/templates", "/api/glossary", "/api/categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestRouterLimitsModelRoutes(t *testing.T) {
	r := newTestRouter(t)

	post := func(path string) int {
		payload, _ := json.Marshal(map[string]string{"message": "hi", "text": "hi"})
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
		req.RemoteAddr = "192.0.2.1:5000"
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	// First request passes the limiter and fails the disclaimer gate.
	if code := post("/api/chat"); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := post("/api/chat"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	// Pure routes are not limited.
	for i := 0; i < 3; i++ {
		if code := post("/api/render"); code != http.StatusOK {
			t.Fatalf("expected 200 for render, got %d", code)
		}
	}
}
