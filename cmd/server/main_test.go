package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kosarica/rule-resolver/config"
	"github.com/kosarica/rule-resolver/internal/handlers"
	"github.com/kosarica/rule-resolver/internal/resolver"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, code string) (*resolver.Result, error) {
	return nil, resolver.ErrNotFound
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handlers.InitRules(stubResolver{})
	t.Cleanup(func() { handlers.InitRules(nil) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Auth:      config.AuthConfig{InternalAPIKey: "k3y"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
	return setupRouter(ctx, cfg)
}

func serve(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	router := testRouter(t)
	auth := map[string]string{"X-Internal-API-Key": "k3y"}

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{"public health", "/health", nil, http.StatusOK},
		{"metrics", "/metrics", nil, http.StatusOK},
		{"internal health needs auth", "/internal/health", nil, http.StatusUnauthorized},
		{"internal health", "/internal/health", auth, http.StatusOK},
		{"rules lookup", "/internal/products/4006381333931/rules", auth, http.StatusNotFound},
		{"rules lookup needs auth", "/internal/products/4006381333931/rules", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.path, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSwaggerRouteRegistered(t *testing.T) {
	router := testRouter(t)

	found := false
	for _, route := range router.Routes() {
		if route.Path == "/swagger/*any" && route.Method == http.MethodGet {
			found = true
			break
		}
	}
	assert.True(t, found, "swagger route should be registered")
}
