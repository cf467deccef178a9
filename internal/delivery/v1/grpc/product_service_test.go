package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var crackers = domain.SimilarityResult{ID: 2, Name: "Crackers", Brand: "Crunch", Category: "snacks", Price: 120, IsAffiliated: true, SimilarityScore: 0.75}

type fakeSearch struct {
	got *usecase.SearchReq
	err error
}

func (f *fakeSearch) Search(_ context.Context, req *usecase.SearchReq) ([]domain.SimilarityResult, error) {
	f.got = req
	return []domain.SimilarityResult{crackers}, f.err
}

type fakeRecommend struct {
	gotIDs  *usecase.RecommendReq
	gotCart *usecase.CartRecommendReq
}

func (f *fakeRecommend) RecommendForIDs(_ context.Context, req *usecase.RecommendReq) ([]domain.SimilarityResult, error) {
	f.gotIDs = req
	return []domain.SimilarityResult{crackers}, nil
}

func (f *fakeRecommend) RecommendForCart(_ context.Context, req *usecase.CartRecommendReq) ([]domain.SimilarityResult, error) {
	f.gotCart = req
	return []domain.SimilarityResult{}, nil
}

func startServer(t *testing.T, search usecase.SearchUC, rec usecase.RecommendUC) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(&cfg.GRPCConfig{}, logger.NewNop())
	srv.RegisterServices(search, rec)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSearchSimilarProducts(t *testing.T) {
	search := &fakeSearch{}
	client := NewRecommendationClient(startServer(t, search, &fakeRecommend{}))

	out, err := client.SearchSimilarProducts(context.Background(), mustStruct(t, map[string]any{
		"query":           "salty snack",
		"limit":           3,
		"affiliated_only": true,
		"categories":      []any{"snacks"},
		"exclude_ids":     []any{1, 5},
	}))
	require.NoError(t, err)

	assert.Equal(t, &usecase.SearchReq{
		Query:          "salty snack",
		Limit:          3,
		ExcludeIDs:     []int64{1, 5},
		AffiliatedOnly: true,
		Categories:     []string{"snacks"},
	}, search.got)

	got := out.AsMap()
	assert.Equal(t, true, got["ok"])
	results := got["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.EqualValues(t, 2, first["id"])
	assert.Equal(t, "Crackers", first["name"])
	assert.InDelta(t, 0.75, first["similarity_score"], 1e-9)
}

func TestSearchSimilarProductsInvalidArgument(t *testing.T) {
	client := NewRecommendationClient(startServer(t, &fakeSearch{}, &fakeRecommend{}))

	for name, req := range map[string]map[string]any{
		"missing query":     {"limit": 3},
		"fractional limit":  {"query": "chips", "limit": 2.5},
		"query not string":  {"query": 42},
		"bad exclude":       {"query": "chips", "exclude_ids": []any{"one"}},
		"categories scalar": {"query": "chips", "categories": "snacks"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := client.SearchSimilarProducts(context.Background(), mustStruct(t, req))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestSearchFailureDegradesToEmpty(t *testing.T) {
	client := NewRecommendationClient(startServer(t, &fakeSearch{err: errors.New("db down")}, &fakeRecommend{}))

	out, err := client.SearchSimilarProducts(context.Background(), mustStruct(t, map[string]any{"query": "chips"}))
	require.NoError(t, err)
	assert.Equal(t, []any{}, out.AsMap()["results"])
}

func TestRecommendForProducts(t *testing.T) {
	rec := &fakeRecommend{}
	client := NewRecommendationClient(startServer(t, &fakeSearch{}, rec))

	t.Run("ids with defaults", func(t *testing.T) {
		_, err := client.RecommendForProducts(context.Background(), mustStruct(t, map[string]any{
			"product_ids": []any{1, 3},
		}))
		require.NoError(t, err)
		assert.Equal(t, &usecase.RecommendReq{IDs: []int64{1, 3}, AffiliatedOnly: true, UseCategories: true}, rec.gotIDs)
	})

	t.Run("ids with overrides", func(t *testing.T) {
		_, err := client.RecommendForProducts(context.Background(), mustStruct(t, map[string]any{
			"product_ids":     []any{4},
			"limit":           2,
			"affiliated_only": false,
			"use_categories":  false,
		}))
		require.NoError(t, err)
		assert.Equal(t, &usecase.RecommendReq{IDs: []int64{4}, Limit: 2}, rec.gotIDs)
	})

	t.Run("cart", func(t *testing.T) {
		out, err := client.RecommendForProducts(context.Background(), mustStruct(t, map[string]any{
			"cart": map[string]any{"1": 2, "5": 1},
		}))
		require.NoError(t, err)
		assert.Equal(t, domain.Cart{1: 2, 5: 1}, rec.gotCart.Cart)
		assert.Equal(t, []any{}, out.AsMap()["results"])
	})

	for name, req := range map[string]map[string]any{
		"no ids":       {},
		"negative id":  {"product_ids": []any{-3}},
		"cart bad qty": {"cart": map[string]any{"1": 0}},
		"cart bad key": {"cart": map[string]any{"x": 1}},
		"zero limit":   {"product_ids": []any{1}, "limit": 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := client.RecommendForProducts(context.Background(), mustStruct(t, req))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestHealthService(t *testing.T) {
	conn := startServer(t, &fakeSearch{}, &fakeRecommend{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
