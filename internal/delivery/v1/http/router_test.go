package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chips = domain.SimilarityResult{ID: 2, Name: "Crackers", Category: "snacks", IsAffiliated: true, SimilarityScore: 0.9}

type fakeSearch struct {
	got *usecase.SearchReq
	err error
}

func (f *fakeSearch) Search(_ context.Context, req *usecase.SearchReq) ([]domain.SimilarityResult, error) {
	f.got = req
	if f.err != nil {
		return []domain.SimilarityResult{}, f.err
	}
	return []domain.SimilarityResult{chips}, nil
}

type fakeRecommend struct {
	gotIDs  *usecase.RecommendReq
	gotCart *usecase.CartRecommendReq
	err     error
}

func (f *fakeRecommend) RecommendForIDs(_ context.Context, req *usecase.RecommendReq) ([]domain.SimilarityResult, error) {
	f.gotIDs = req
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SimilarityResult{chips}, nil
}

func (f *fakeRecommend) RecommendForCart(_ context.Context, req *usecase.CartRecommendReq) ([]domain.SimilarityResult, error) {
	f.gotCart = req
	return []domain.SimilarityResult{chips}, nil
}

func newTestRouter(search *fakeSearch, rec *fakeRecommend, checks map[string]HealthCheck) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNop()).Init(search, rec, checks)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestSearchProducts(t *testing.T) {
	search := &fakeSearch{}
	h := newTestRouter(search, &fakeRecommend{}, nil)

	rec, body := do(t, h, http.MethodGet,
		"/api/v1/products/search?q=salty+chips&limit=3&affiliated_only=true&category=snacks,nuts&category=drinks&exclude=1&exclude=5,6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	require.Len(t, body["results"], 1)
	first := body["results"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 2, first["id"])
	assert.Equal(t, true, first["if_affiliated"])

	assert.Equal(t, &usecase.SearchReq{
		Query:          "salty chips",
		Limit:          3,
		ExcludeIDs:     []int64{1, 5, 6},
		AffiliatedOnly: true,
		Categories:     []string{"snacks", "nuts", "drinks"},
	}, search.got)
}

func TestSearchProductsValidation(t *testing.T) {
	h := newTestRouter(&fakeSearch{}, &fakeRecommend{}, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"missing query", "limit=3"},
		{"zero limit", "q=chips&limit=0"},
		{"text limit", "q=chips&limit=ten"},
		{"bad flag", "q=chips&affiliated_only=maybe"},
		{"bad exclude", "q=chips&exclude=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, "/api/v1/products/search?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestSearchFailureDegradesToEmpty(t *testing.T) {
	h := newTestRouter(&fakeSearch{err: errors.New("db down")}, &fakeRecommend{}, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/products/search?q=chips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []any{}, body["results"])
}

func TestRecommendForProducts(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rec := &fakeRecommend{}
		h := newTestRouter(&fakeSearch{}, rec, nil)

		resp, body := do(t, h, http.MethodPost, "/api/v1/recommendations", map[string]any{"product_ids": []int64{1, 3}})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, &usecase.RecommendReq{IDs: []int64{1, 3}, AffiliatedOnly: true, UseCategories: true}, rec.gotIDs)
	})

	t.Run("overrides", func(t *testing.T) {
		rec := &fakeRecommend{}
		h := newTestRouter(&fakeSearch{}, rec, nil)

		resp, _ := do(t, h, http.MethodPost, "/api/v1/recommendations",
			`{"product_ids":[7],"limit":4,"affiliated_only":false,"use_categories":false}`)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, &usecase.RecommendReq{IDs: []int64{7}, Limit: 4}, rec.gotIDs)
	})

	t.Run("usecase failure", func(t *testing.T) {
		h := newTestRouter(&fakeSearch{}, &fakeRecommend{err: errors.New("boom")}, nil)

		resp, body := do(t, h, http.MethodPost, "/api/v1/recommendations", `{"product_ids":[7]}`)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []any{}, body["results"])
	})

	for name, payload := range map[string]string{
		"empty ids":     `{"product_ids":[]}`,
		"negative id":   `{"product_ids":[-1]}`,
		"unknown field": `{"product_ids":[1],"foo":1}`,
		"not json":      `product_ids=1`,
		"negative lim":  `{"product_ids":[1],"limit":-2}`,
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestRouter(&fakeSearch{}, &fakeRecommend{}, nil)
			resp, body := do(t, h, http.MethodPost, "/api/v1/recommendations", payload)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, false, body["ok"])
		})
	}
}

func TestRecommendForCart(t *testing.T) {
	rec := &fakeRecommend{}
	h := newTestRouter(&fakeSearch{}, rec, nil)

	resp, body := do(t, h, http.MethodPost, "/api/v1/cart/recommendations", `{"items":{"1":2," 3 ":1},"limit":5}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, body["ok"])
	require.NotNil(t, rec.gotCart)
	assert.Equal(t, domain.Cart{1: 2, 3: 1}, rec.gotCart.Cart)
	assert.Equal(t, 5, rec.gotCart.Limit)

	for name, payload := range map[string]string{
		"bad key":       `{"items":{"chips":1}}`,
		"zero quantity": `{"items":{"1":0}}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, _ := do(t, h, http.MethodPost, "/api/v1/cart/recommendations", payload)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec, body := do(t, newTestRouter(&fakeSearch{}, &fakeRecommend{}, map[string]HealthCheck{"db": ok}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"db": "ok"}, body["checks"])

	rec, body = do(t, newTestRouter(&fakeSearch{}, &fakeRecommend{}, map[string]HealthCheck{"db": ok, "redis": down}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := do(t, newTestRouter(&fakeSearch{}, &fakeRecommend{}, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
