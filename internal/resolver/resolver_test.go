package resolver

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/rule-resolver/internal/rules"
)

// mockBackend is an in-memory Backend recording every call it receives.
type mockBackend struct {
	mu sync.Mutex

	products   map[string][]Product
	categories map[int64]int64
	priceLists []PriceList
	rules      []rules.Rule

	// returnAllRules makes SearchRules ignore the predicate, simulating a
	// backend whose filter over-selects.
	returnAllRules bool
	failOn         map[string]error

	calls       []string
	lastFilter  rules.Predicate
	lookedUpFor []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		products:   make(map[string][]Product),
		categories: make(map[int64]int64),
		failOn:     make(map[string]error),
	}
}

func (m *mockBackend) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	return m.failOn[op]
}

func (m *mockBackend) FindProductsByCode(ctx context.Context, code string) ([]Product, error) {
	if err := m.record(OpFindProduct); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.lookedUpFor = append(m.lookedUpFor, code)
	m.mu.Unlock()
	return m.products[code], nil
}

func (m *mockBackend) FindCategoryForTemplate(ctx context.Context, templateID int64) (*int64, error) {
	if err := m.record(OpFindCategory); err != nil {
		return nil, err
	}
	if c, ok := m.categories[templateID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockBackend) SearchActivePriceLists(ctx context.Context) ([]PriceList, error) {
	if err := m.record(OpSearchPricelist); err != nil {
		return nil, err
	}
	return m.priceLists, nil
}

func (m *mockBackend) SearchRules(ctx context.Context, filter rules.Predicate) ([]rules.Rule, error) {
	if err := m.record(OpSearchRules); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.lastFilter = filter
	m.mu.Unlock()

	if m.returnAllRules {
		return m.rules, nil
	}
	var out []rules.Rule
	for _, r := range m.rules {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func id(v int64) *int64 { return &v }

// scenarioA builds the backend state: variant 10, template 5, category 2,
// active price lists 1 and 2.
func scenarioA() *mockBackend {
	m := newMockBackend()
	m.products["5901234123457"] = []Product{{
		VariantID:  10,
		TemplateID: 5,
		Name:       "Desk Lamp",
		ListPrice:  decimal.RequireFromString("49.90"),
		Attributes: []string{"Black", "LED"},
	}}
	m.categories[5] = 2
	m.priceLists = []PriceList{{ID: 1, Active: true}, {ID: 2, Active: true}, {ID: 3, Active: false}}
	m.rules = []rules.Rule{
		{ID: 1, PricelistID: 1, Scope: rules.ScopeGlobal},
		{ID: 2, PricelistID: 2, Scope: rules.ScopeCategory, CategoryID: id(2)},
		{ID: 3, PricelistID: 1, Scope: rules.ScopeCategory, CategoryID: id(9)},
		{ID: 4, PricelistID: 1, Scope: rules.ScopeProductVariant, VariantID: id(10)},
	}
	return m
}

func TestResolveScenarioA(t *testing.T) {
	backend := scenarioA()
	backend.returnAllRules = true
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	assert.Equal(t, "Desk Lamp Black LED", result.ProductName)
	assert.True(t, decimal.RequireFromString("49.90").Equal(result.ListPrice))
	assert.Equal(t, "5901234123457", result.Code)
	require.NotNil(t, result.CategoryID)
	assert.Equal(t, int64(2), *result.CategoryID)

	require.Len(t, result.Buckets.Global, 1)
	assert.Equal(t, int64(1), result.Buckets.Global[0].ID)
	require.Len(t, result.Buckets.Category, 1)
	assert.Equal(t, int64(2), result.Buckets.Category[0].ID)
	assert.Empty(t, result.Buckets.ProductTemplate)
	require.Len(t, result.Buckets.ProductVariant, 1)
	assert.Equal(t, int64(4), result.Buckets.ProductVariant[0].ID)

	// counts raw candidates, not survivors
	assert.Equal(t, 4, result.CandidateRuleCount)
	assert.Equal(t, 3, result.Buckets.Len())

	for _, scope := range rules.Scopes {
		for _, rule := range result.Buckets.Get(scope) {
			assert.Equal(t, "Desk Lamp Black LED", rule.ProductName)
		}
	}

	assert.Equal(t, []string{OpFindProduct, OpFindCategory, OpSearchPricelist, OpSearchRules}, backend.calls)
}

func TestResolveBuildsFilterFromActivePriceLists(t *testing.T) {
	backend := scenarioA()
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	require.NotNil(t, backend.lastFilter)
	assert.Contains(t, backend.lastFilter.String(), "pricelist_id IN (1, 2)")
	assert.Contains(t, backend.lastFilter.String(), "category_id = 2")
	assert.False(t, backend.lastFilter.Match(rules.Rule{PricelistID: 3, Scope: rules.ScopeGlobal}))

	// a well-behaved backend filter already excludes rule 3
	assert.Equal(t, 3, result.CandidateRuleCount)
}

func TestResolveScenarioBNoCategory(t *testing.T) {
	backend := scenarioA()
	delete(backend.categories, 5)
	backend.rules = append(backend.rules, rules.Rule{ID: 5, PricelistID: 1, Scope: rules.ScopeCategory, CategoryID: id(42)})
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	assert.Nil(t, result.CategoryID)
	assert.Empty(t, result.Buckets.Category)
	assert.Contains(t, backend.lastFilter.String(), "category_id IS NOT NULL")
	// rules 2, 3 and 5 are fetched as candidates and then dropped
	assert.Equal(t, 5, result.CandidateRuleCount)
	assert.Equal(t, 2, result.Buckets.Len())
}

func TestResolveScenarioCNotFound(t *testing.T) {
	backend := scenarioA()
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "4006381333931")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsBackendError(err))

	assert.Equal(t, []string{OpFindProduct}, backend.calls)
}

func TestResolveScenarioDRuleSearchFails(t *testing.T) {
	backend := scenarioA()
	backend.failOn[OpSearchRules] = errors.New("connection reset by peer")
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	assert.Nil(t, result)
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, OpSearchRules, be.Op)
	assert.ErrorIs(t, err, backend.failOn[OpSearchRules])
}

func TestResolveBackendFailures(t *testing.T) {
	for _, op := range []string{OpFindProduct, OpFindCategory, OpSearchPricelist, OpSearchRules} {
		t.Run(op, func(t *testing.T) {
			backend := scenarioA()
			backend.failOn[op] = errors.New("boom")
			r := New(backend, nil, nil)

			result, err := r.Resolve(context.Background(), "5901234123457")
			assert.Nil(t, result)

			var be *BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, op, be.Op)
			// no retry: the failing op is the last call made
			assert.Equal(t, op, backend.calls[len(backend.calls)-1])
			assert.Equal(t, 1, countOf(backend.calls, op))
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	backend := scenarioA()
	r := New(backend, nil, nil)

	first, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveMultipleProductsUsesFirst(t *testing.T) {
	backend := scenarioA()
	backend.products["5901234123457"] = append(backend.products["5901234123457"], Product{
		VariantID:  11,
		TemplateID: 6,
		Name:       "Other",
	})
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.VariantID)
	assert.Equal(t, int64(5), result.TemplateID)
}

func TestResolveNoActivePriceLists(t *testing.T) {
	backend := scenarioA()
	backend.priceLists = []PriceList{{ID: 3, Active: false}}
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Buckets.Len())
	assert.Equal(t, 0, result.CandidateRuleCount)
	assert.NotContains(t, backend.calls, OpSearchRules)
}

func TestResolveWarnsOnUnknownScope(t *testing.T) {
	backend := scenarioA()
	backend.returnAllRules = true
	backend.rules = append(backend.rules, rules.Rule{ID: 9, PricelistID: 1, Scope: rules.Scope("4_brand")})

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	r := New(backend, nil, &logger)

	result, err := r.Resolve(context.Background(), "5901234123457")
	require.NoError(t, err)

	assert.Equal(t, 5, result.CandidateRuleCount)
	assert.Equal(t, 3, result.Buckets.Len())
	assert.Contains(t, logs.String(), "unknown scope")
	assert.Contains(t, logs.String(), `"rules":1`)
}

func TestResolveTriesNormalizedCode(t *testing.T) {
	backend := newMockBackend()
	backend.products["0123456789012"] = []Product{{VariantID: 1, TemplateID: 1, Name: "Mug"}}
	backend.priceLists = []PriceList{{ID: 1, Active: true}}
	backend.rules = []rules.Rule{{ID: 1, PricelistID: 1, Scope: rules.ScopeGlobal}}
	r := New(backend, nil, nil)

	result, err := r.Resolve(context.Background(), "123456789012")
	require.NoError(t, err)

	assert.Equal(t, []string{"123456789012", "0123456789012"}, backend.lookedUpFor)
	assert.Equal(t, "0123456789012", result.Code)
	assert.Equal(t, "Mug", result.ProductName)
}

func TestResolveBlankCode(t *testing.T) {
	backend := newMockBackend()
	r := New(backend, nil, nil)

	_, err := r.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, backend.calls)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		attributes []string
		expected   string
	}{
		{"no attributes", "Desk Lamp", nil, "Desk Lamp"},
		{"empty attributes", "Desk Lamp", []string{}, "Desk Lamp"},
		{"one attribute", "Desk Lamp", []string{"Black"}, "Desk Lamp Black"},
		{"ordered attributes", "T-Shirt", []string{"Red", "XL"}, "T-Shirt Red XL"},
		{"decomposed accent", "Cafe\u0301", []string{"Grande"}, "Caf\u00e9 Grande"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.base, tt.attributes))
		})
	}
}

func TestBackendErrorMessage(t *testing.T) {
	err := &BackendError{Op: OpSearchRules, Err: errors.New("timeout")}
	assert.Equal(t, "backend search_rules: timeout", err.Error())
	assert.True(t, IsBackendError(err))
	assert.False(t, IsBackendError(ErrNotFound))
}

func countOf(calls []string, op string) int {
	n := 0
	for _, c := range calls {
		if c == op {
			n++
		}
	}
	return n
}
