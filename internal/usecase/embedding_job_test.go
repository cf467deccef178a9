package usecase_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobFixture struct {
	repo      usecase.ProductRepository
	db        *sql.DB
	client    *keywordClient
	index     *recordingIndex
	publisher *recordingPublisher
	cache     *recordingCache
	locker    *usecase.LocalLocker
	job       *usecase.EmbeddingJob
}

func newJobFixture(t *testing.T, client *keywordClient) *jobFixture {
	t.Helper()

	repo, db := newStoreWithDB(t)
	seedProducts(t, repo, snackCatalog()...)

	f := &jobFixture{
		repo:      repo,
		db:        db,
		client:    client,
		index:     &recordingIndex{},
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
		locker:    usecase.NewLocalLocker(),
	}
	f.job = usecase.NewEmbeddingJob(
		repo, repo, newTrManager(t, db), newProvider(client),
		f.index, f.publisher, f.locker, f.cache,
		2, time.Minute, logger.NewNop(),
	)

	return f
}

func TestJobFillsMissingEmbeddings(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})

	summary, err := f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, usecase.JobSummary{Success: 5, Total: 5}, *summary)

	products, err := f.repo.Filter(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	for _, p := range products {
		assert.True(t, p.HasEmbeddings(), "product %d", p.ID)
		assert.Equal(t, int32(1), p.EmbeddingVersion)
	}

	// Повторный запуск без force ничего не делает
	calls := f.client.calls.Load()
	summary, err = f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Equal(t, calls, f.client.calls.Load())
}

func TestJobRepairsUnreadableEmbeddings(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})

	_, err := f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)

	_, err = f.db.ExecContext(ctx, `UPDATE products SET name_embedding = 'not a vector' WHERE id = 3`)
	require.NoError(t, err)
	_, err = f.db.ExecContext(ctx, `UPDATE products SET description_embedding = '' WHERE id = 5`)
	require.NoError(t, err)

	summary, err := f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, usecase.JobSummary{Success: 2, Total: 2}, *summary)

	products, err := f.repo.GetByIDs(ctx, []int64{3, 5})
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		assert.True(t, p.HasEmbeddings(), "product %d", p.ID)
		assert.Equal(t, int32(2), p.EmbeddingVersion)
	}
}

type failingVersions struct{}

func (failingVersions) Bump(context.Context, int64, string) (*domain.ProductEmbeddingVersion, error) {
	return nil, errors.New("version table is locked")
}

func TestJobRollsBackEmbeddingsWhenVersionFails(t *testing.T) {
	ctx := context.Background()
	repo, db := newStoreWithDB(t)
	seedProducts(t, repo, snackCatalog()...)

	job := usecase.NewEmbeddingJob(
		repo, failingVersions{}, newTrManager(t, db), newProvider(&keywordClient{}),
		usecase.NoopIndex{}, usecase.NoopPublisher{}, usecase.NewLocalLocker(), usecase.NoopCache{},
		10, time.Minute, logger.NewNop(),
	)

	summary, err := job.Run(ctx, &usecase.JobReq{ProductIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, usecase.JobSummary{Failed: 2, Total: 2}, *summary)

	products, err := repo.GetByIDs(ctx, []int64{1, 2})
	require.NoError(t, err)
	for _, p := range products {
		assert.False(t, p.HasEmbeddings(), "product %d", p.ID)
		assert.Zero(t, p.EmbeddingVersion)
	}
}

func TestJobForceRegenerates(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})

	for range 2 {
		summary, err := f.job.Run(ctx, &usecase.JobReq{Force: true})
		require.NoError(t, err)
		assert.Equal(t, 5, summary.Success)
		assert.Zero(t, summary.Failed)
	}

	products, err := f.repo.GetByIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int32(2), products[0].EmbeddingVersion)

	assert.Len(t, f.index.points, 10)
	assert.Len(t, f.publisher.events, 10)
	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, int32(2), last.Version)
	assert.Equal(t, "test-model", last.Model)
	assert.Equal(t, testDims, last.Dimension)
	assert.NotEmpty(t, last.EventID)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 1, 2, 3, 4, 5}, f.cache.deleted)
}

func TestJobCountsFailures(t *testing.T) {
	ctx := context.Background()
	// "Cola Fizz drinks" не получит эмбеддинг
	f := newJobFixture(t, &keywordClient{failOn: "drink"})

	summary, err := f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.Processed())

	missing, err := f.repo.FilterIDs(ctx, domain.ProductFilter{MissingEmbedding: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, missing)
}

func TestJobSkipsClaimedProducts(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})

	token, ok, err := f.locker.Acquire(ctx, 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Success)
	assert.Equal(t, 1, summary.Skipped)

	require.NoError(t, f.locker.Release(ctx, 3, token))

	summary, err = f.job.Run(ctx, &usecase.JobReq{})
	require.NoError(t, err)
	assert.Equal(t, usecase.JobSummary{Success: 1, Total: 1}, *summary)
}

func TestJobExplicitIDsAndProgress(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})

	var progress []usecase.JobProgress
	summary, err := f.job.Run(ctx, &usecase.JobReq{
		ProductIDs: []int64{5, 1, 5, 42, 3},
		Progress:   func(p usecase.JobProgress) { progress = append(progress, p) },
	})
	require.NoError(t, err)

	// 42 нет в каталоге, дубликаты убираются
	assert.Equal(t, usecase.JobSummary{Success: 3, Total: 3}, *summary)
	require.Len(t, progress, 2)
	assert.Equal(t, usecase.JobProgress{Batch: 1, Done: 2, Total: 3, Success: 2}, progress[0])
	assert.Equal(t, usecase.JobProgress{Batch: 2, Done: 3, Total: 3, Success: 3}, progress[1])

	missing, err := f.repo.FilterIDs(ctx, domain.ProductFilter{MissingEmbedding: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, missing)
}

func TestJobSideEffectFailuresDoNotFailItems(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t, &keywordClient{})
	f.index.err = errUpstream

	summary, err := f.job.Run(ctx, &usecase.JobReq{BatchSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Success)
}

func TestJobCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newJobFixture(t, &keywordClient{})

	var seen int
	_, err := f.job.Run(ctx, &usecase.JobReq{
		Progress: func(usecase.JobProgress) {
			seen++
			cancel()
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, seen)
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := usecase.NewLocalLocker()

	token, ok, err := l.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Чужой токен не снимает захват
	require.NoError(t, l.Release(ctx, 1, "other"))
	_, ok, _ = l.Acquire(ctx, 1, time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, 1, token))
	_, ok, _ = l.Acquire(ctx, 1, time.Minute)
	assert.True(t, ok)

	// Истёкший захват можно перехватить
	_, ok, _ = l.Acquire(ctx, 2, -time.Second)
	require.True(t, ok)
	_, ok, _ = l.Acquire(ctx, 2, time.Minute)
	assert.True(t, ok)
}
