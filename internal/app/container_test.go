package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/closer"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name string
	err  error // ошибка Available
}

func (s stubBackend) Name() string { return s.name }

func (s stubBackend) Search(context.Context, vector.Vector, *usecase.BackendQuery) ([]domain.SimilarityResult, error) {
	return nil, nil
}

func (s stubBackend) Available(context.Context) error { return s.err }

func TestSelectBackend(t *testing.T) {
	brute := stubBackend{name: "bruteforce"}
	pgOK := stubBackend{name: "pgvector"}
	pgNoExt := stubBackend{name: "pgvector", err: errors.New("extension vector is not installed")}
	qd := stubBackend{name: "qdrant"}

	tests := []struct {
		name    string
		mode    string
		native  map[string]usecase.VectorBackend
		want    string
		wantErr error
	}{
		{"auto prefers pgvector", config.BackendAuto, map[string]usecase.VectorBackend{"pgvector": pgOK, "qdrant": qd}, "pgvector", nil},
		{"auto without extension", config.BackendAuto, map[string]usecase.VectorBackend{"pgvector": pgNoExt}, "bruteforce", nil},
		{"auto on sqlite", config.BackendAuto, map[string]usecase.VectorBackend{}, "bruteforce", nil},
		{"auto ignores qdrant", config.BackendAuto, map[string]usecase.VectorBackend{"qdrant": qd}, "bruteforce", nil},
		{"explicit bruteforce", config.BackendBruteForce, map[string]usecase.VectorBackend{"pgvector": pgOK}, "bruteforce", nil},
		{"explicit qdrant", config.BackendQdrant, map[string]usecase.VectorBackend{"qdrant": qd}, "qdrant", nil},
		{"explicit pgvector missing extension", config.BackendPgvector, map[string]usecase.VectorBackend{"pgvector": pgNoExt}, "", e.ErrBackendUnavailable},
		{"explicit qdrant not configured", config.BackendQdrant, map[string]usecase.VectorBackend{}, "", e.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBackend(context.Background(), tt.mode, tt.native, brute, logger.NewNop())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name())
		})
	}
}

const snacksCSV = "product_id,classification,category,brand,name,price,img,if_affilated,reviews\n" +
	`1,food,snacks,Crunch,Salty potato chips,120,chips.png,FALSE,"[{""comment"":""crispy salty chips""}]"` + "\n" +
	"2,food,snacks,Crunch,Salty crackers,90,crackers.png,TRUE,\n" +
	"3,food,snacks,Baker,Salty pretzels,150,pretzels.png,TRUE,\n" +
	"4,food,drinks,Fizz,Cola,80,cola.png,TRUE,\n" +
	"5,food,snacks,Nutty,Roasted peanuts,200,peanuts.png,FALSE,\n"

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Http: &config.HTTPConfig{Port: "0"},
		Grpc: &config.GRPCConfig{Port: "0", NetworkMode: "tcp"},
		Db: &config.DBCfg{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "shop.db"),
		},
		Embedding: &config.EmbeddingCfg{
			Provider:   config.ProviderHash,
			Model:      "hash",
			Dimensions: 256,
			Timeout:    time.Second,
		},
		Search: &config.SearchCfg{
			Backend:        config.BackendAuto,
			Distance:       config.DistanceCosine,
			DefaultLimit:   5,
			MaxLimit:       50,
			RecommendLimit: 5,
		},
		Job:             &config.JobCfg{BatchSize: 2, LockTTL: time.Minute},
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestContainerEndToEnd(t *testing.T) {
	ctx := context.Background()

	cfg := sqliteConfig(t)
	c, err := NewContainer(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Closer.Close(context.Background()) })

	assert.Equal(t, "bruteforce", c.Search.Backend())
	assert.Contains(t, c.Checks, "sqlite")
	assert.Nil(t, c.Producer)

	catalog := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(catalog, []byte(snacksCSV), 0o600))

	imported, err := c.Import.Import(ctx, &usecase.ImportReq{Location: catalog})
	require.NoError(t, err)
	assert.Equal(t, &usecase.ImportSummary{Created: 5}, imported)

	// Без эмбеддингов поиск пуст.
	results, err := c.Search.Search(ctx, &usecase.SearchReq{Query: "salty"})
	require.NoError(t, err)
	assert.Empty(t, results)

	summary, err := c.Job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, usecase.JobSummary{Success: 5, Total: 5}, *summary)

	again, err := c.Job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Zero(t, again.Total)

	recs, err := c.Recommend.RecommendForIDs(ctx, usecase.NewRecommendReq([]int64{1}, 0))
	require.NoError(t, err)

	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
		assert.True(t, r.IsAffiliated)
		assert.Equal(t, "snacks", r.Category)
	}
	assert.ElementsMatch(t, []int64{2, 3}, ids)
	assert.GreaterOrEqual(t, recs[0].SimilarityScore, recs[1].SimilarityScore)

	results, err = c.Search.Search(ctx, &usecase.SearchReq{Query: "salty crackers", Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 2, results[0].ID)
}

func TestContainerRejectsUnavailableBackend(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Search.Backend = config.BackendPgvector

	_, err := NewContainer(context.Background(), cfg, logger.NewNop())
	require.ErrorIs(t, err, e.ErrBackendUnavailable)
}

func TestContainerRejectsUnknownDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Db.Driver = "mysql"

	_, err := NewContainer(context.Background(), cfg, logger.NewNop())
	require.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}

func TestContainerClosesResourcesOnFailedStart(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr error
	}{
		{"unavailable backend", func(cfg *config.Config) { cfg.Search.Backend = config.BackendPgvector }, e.ErrBackendUnavailable},
		{"unknown driver", func(cfg *config.Config) { cfg.Db.Driver = "mysql" }, e.ErrIncorrectEnvVariable},
		{"unknown provider", func(cfg *config.Config) { cfg.Embedding.Provider = "word2vec" }, e.ErrIncorrectEnvVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig(t)
			tt.mutate(cfg)

			var closed bool
			cl := closer.NewCloser(0)
			cl.AddQuiet("marker", func() { closed = true })

			c, err := newContainer(context.Background(), cfg, logger.NewNop(), cl)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, c)
			assert.True(t, closed)
		})
	}
}
