package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/rule-resolver/internal/resilience"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

type mockResolver struct {
	result *resolver.Result
	err    error
	codes  []string
}

func (m *mockResolver) Resolve(ctx context.Context, code string) (*resolver.Result, error) {
	m.codes = append(m.codes, code)
	return m.result, m.err
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

type breakerPinger struct {
	mockPinger
	state resilience.State
}

func (b breakerPinger) BreakerState() resilience.State { return b.state }

func newRulesRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal/products/:code/rules", GetProductRules)
	router.GET("/health", HealthCheck)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func scenarioAResult() *resolver.Result {
	category := int64(2)
	variant := int64(10)
	buckets := rules.Classify([]rules.Rule{
		{ID: 1, PricelistID: 1, Scope: rules.ScopeGlobal},
		{ID: 2, PricelistID: 2, Scope: rules.ScopeCategory, CategoryID: &category},
		{ID: 4, PricelistID: 1, Scope: rules.ScopeProductVariant, VariantID: &variant},
	}, 10, 5, &category)
	buckets.Stamp("Desk Lamp Black LED")

	return &resolver.Result{
		Code:               "5901234123457",
		VariantID:          10,
		TemplateID:         5,
		CategoryID:         &category,
		ProductName:        "Desk Lamp Black LED",
		ListPrice:          decimal.RequireFromString("49.90"),
		Buckets:            buckets,
		CandidateRuleCount: 4,
	}
}

func TestGetProductRulesOK(t *testing.T) {
	mock := &mockResolver{result: scenarioAResult()}
	InitRules(mock)
	defer InitRules(nil)

	w := get(t, newRulesRouter(), "/internal/products/5901234123457/rules")
	require.Equal(t, http.StatusOK, w.Code)

	var response RulesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, "Desk Lamp Black LED", response.ProductName)
	assert.Equal(t, "49.9", response.ListPrice)
	assert.Equal(t, 4, response.CandidateRuleCount)
	assert.Equal(t, ScopeCounts{Global: 1, Category: 1, ProductVariant: 1}, response.Counts)
	require.Len(t, response.Rules.ProductVariant, 1)
	assert.Equal(t, int64(4), response.Rules.ProductVariant[0].ID)
	assert.Equal(t, "Desk Lamp Black LED", response.Rules.ProductVariant[0].ProductName)
	assert.Equal(t, []string{"5901234123457"}, mock.codes)

	// empty buckets are serialized as arrays, not null
	var buckets map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(mustField(t, w.Body.Bytes(), "rules"), &buckets))
	assert.Equal(t, "[]", string(buckets["productTemplate"]))
	assert.Contains(t, buckets, "productVariant")

	var counts map[string]int
	require.NoError(t, json.Unmarshal(mustField(t, w.Body.Bytes(), "counts"), &counts))
	assert.Equal(t, map[string]int{"global": 1, "category": 1, "productTemplate": 0, "productVariant": 1}, counts)
}

func TestGetProductRulesErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found",
			path:       "/internal/products/4006381333931/rules",
			err:        resolver.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "product not found",
		},
		{
			name:       "backend failure hides cause",
			path:       "/internal/products/5901234123457/rules",
			err:        &resolver.BackendError{Op: resolver.OpSearchRules, Err: errors.New("Access Denied for uid 7")},
			wantStatus: http.StatusBadGateway,
			wantError:  "backend unavailable",
		},
		{
			name:       "invalid argument",
			path:       "/internal/products/5901234123457/rules",
			err:        resolver.ErrInvalidArgument,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid product code",
		},
		{
			name:       "blank code",
			path:       "/internal/products/%20/rules",
			wantStatus: http.StatusBadRequest,
			wantError:  "code is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitRules(&mockResolver{err: tt.err})
			defer InitRules(nil)

			w := get(t, newRulesRouter(), tt.path)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, w.Body.String(), "Access Denied")
		})
	}
}

func TestGetProductRulesNotInitialized(t *testing.T) {
	InitRules(nil)
	w := get(t, newRulesRouter(), "/internal/products/5901234123457/rules")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		pinger      resolver.Pinger
		wantStatus  int
		wantBackend string
		wantBreaker string
	}{
		{"not configured", nil, http.StatusOK, "not configured", ""},
		{"connected", mockPinger{}, http.StatusOK, "connected", ""},
		{"disconnected", mockPinger{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, "disconnected", ""},
		{"breaker closed", breakerPinger{state: resilience.Closed}, http.StatusOK, "connected", "closed"},
		{"breaker open", breakerPinger{mockPinger: mockPinger{err: resilience.ErrOpen}, state: resilience.Open},
			http.StatusServiceUnavailable, "disconnected", "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitHealth(tt.pinger)
			defer InitHealth(nil)

			w := get(t, newRulesRouter(), "/health")
			assert.Equal(t, tt.wantStatus, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantBackend, response.Backend)
			assert.Equal(t, tt.wantBreaker, response.Breaker)
			assert.Nil(t, response.Pool, "no SQL pool is connected in unit tests")
		})
	}
}

func TestNewPoolStatsNil(t *testing.T) {
	assert.Nil(t, NewPoolStats(nil))
}

func mustField(t *testing.T, body []byte, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return m[field]
}
