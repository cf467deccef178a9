//go:build integration

package pgdb

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/DRSN-tech/shop-recommender/db/migrations"
	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-recommender/internal/testinfra"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/DRSN-tech/shop-recommender/pkg/postgres"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *postgres.PgDatabase {
	t.Helper()

	db, err := postgres.Connect(context.Background(), testinfra.StartPostgres(t), migrations.FS, migrations.PostgresDir, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestProductRepoPostgres(t *testing.T) {
	ctx := context.Background()
	db := connect(t)
	repo := NewProductRepo(db.Pool, converter.NewProductConverter())
	versions := NewProductEmbeddingVersionRepo(db.Pool, converter.NewProductEmbeddingVersionConverter())

	res, err := repo.Upsert(ctx, domain.NewProduct(1, "food", "snacks", "Crunch", "Chips", 120, "", true, ""))
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = repo.Upsert(ctx, domain.NewProduct(1, "food", "snacks", "Crunch", "Chips XL", 150, "", true, ""))
	require.NoError(t, err)
	assert.False(t, res.Created)

	require.NoError(t, repo.SaveEmbeddings(ctx, 1, vector.Vector{1, 0, 0}, vector.Vector{0, 1, 0}))

	v, err := versions.Bump(ctx, 1, "m")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.EmbeddingVersion)
	v, err = versions.Bump(ctx, 1, "m")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.EmbeddingVersion)

	_, err = versions.Bump(ctx, 404, "m")
	assert.ErrorIs(t, err, e.ErrProductNotFound)

	products, err := repo.GetByIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Chips XL", products[0].Name)
	assert.Equal(t, vector.Vector{1, 0, 0}, products[0].NameEmbedding)
	assert.Equal(t, int32(2), products[0].EmbeddingVersion)

	missing, err := repo.FilterIDs(ctx, domain.ProductFilter{MissingEmbedding: true})
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := connect(t)
	repo := NewProductRepo(db.Pool, converter.NewProductConverter())
	versions := NewProductEmbeddingVersionRepo(db.Pool, converter.NewProductEmbeddingVersionConverter())

	trManager, err := tr.NewPgxManager(db.Pool)
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, domain.NewProduct(1, "food", "snacks", "Crunch", "Chips", 120, "", true, ""))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = trManager.Do(ctx, func(ctx context.Context) error {
		if err := repo.SaveEmbeddings(ctx, 1, vector.Vector{1}, vector.Vector{1}); err != nil {
			return err
		}
		if _, err := versions.Bump(ctx, 1, "m"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	products, err := repo.GetByIDs(ctx, []int64{1})
	require.NoError(t, err)
	assert.Nil(t, products[0].NameEmbedding)
	assert.Zero(t, products[0].EmbeddingVersion)
}

// Выдача pgvector совпадает с точным перебором в процессе.
func TestPgvectorMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	db := connect(t)
	repo := NewProductRepo(db.Pool, converter.NewProductConverter())

	r := rand.New(rand.NewPCG(7, 11))
	random := func() vector.Vector {
		v := make(vector.Vector, 8)
		for i := range v {
			v[i] = r.Float32()*2 - 1
		}
		return v
	}

	categories := []string{"snacks", "drinks", "household"}
	for id := int64(1); id <= 60; id++ {
		p := domain.NewProduct(id, "food", categories[id%3], "Brand", "Item", id, "", id%2 == 0, "")
		_, err := repo.Upsert(ctx, p)
		require.NoError(t, err)
		if id%10 != 0 {
			require.NoError(t, repo.SaveEmbeddings(ctx, id, random(), random()))
		}
	}

	pgvector := NewVectorSearchRepo(db.Pool, cfg.DistanceCosine)
	require.NoError(t, pgvector.Available(ctx))
	brute := usecase.NewBruteForceBackend(repo, logger.NewNop())

	queries := []*usecase.BackendQuery{
		{Limit: 10},
		{Limit: 5, AffiliatedOnly: true},
		{Limit: 7, Categories: []string{"snacks", "drinks"}, ExcludeIDs: []int64{1, 2, 3}},
	}

	for _, q := range queries {
		query := random()

		want, err := brute.Search(ctx, query, q)
		require.NoError(t, err)
		got, err := pgvector.Search(ctx, query, q)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.InDelta(t, want[i].SimilarityScore, got[i].SimilarityScore, 1e-5)
		}
	}

	// Вектор другой размерности ничего не находит, но и не ломает запрос
	got, err := pgvector.Search(ctx, vector.Vector{1, 0}, &usecase.BackendQuery{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Нулевой вектор в каталоге отбрасывают оба бэкенда
	zero := make(vector.Vector, 8)
	require.NoError(t, repo.SaveEmbeddings(ctx, 10, zero, random()))

	query := random()
	all := &usecase.BackendQuery{Limit: 100}
	want, err := brute.Search(ctx, query, all)
	require.NoError(t, err)
	got, err = pgvector.Search(ctx, query, all)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.NotEqual(t, int64(10), got[i].ID)
	}

	got, err = pgvector.Search(ctx, zero, all)
	require.NoError(t, err)
	assert.Empty(t, got)
}
