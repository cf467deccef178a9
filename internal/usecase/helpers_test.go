package usecase_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/repository/sqlite"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/stretchr/testify/require"
)

const testDims = 4

var errUpstream = errors.New("upstream is down")

// keywordClient строит вектор по ключевым словам: закуски, напитки, бытовое и постоянная компонента.
type keywordClient struct {
	calls  atomic.Int64
	mu     sync.Mutex
	texts  []string
	failOn string
}

func (c *keywordClient) CreateEmbedding(_ context.Context, _ string, text string) ([]float32, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()

	lower := strings.ToLower(text)
	if c.failOn != "" && strings.Contains(lower, c.failOn) {
		return nil, errUpstream
	}

	v := make([]float32, testDims)
	v[0] = float32(strings.Count(lower, "snack"))
	v[1] = float32(strings.Count(lower, "drink"))
	v[2] = float32(strings.Count(lower, "soap"))
	v[3] = 0.1

	return v, nil
}

func (c *keywordClient) lastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.texts) == 0 {
		return ""
	}
	return c.texts[len(c.texts)-1]
}

func newProvider(client usecase.EmbeddingClient) *usecase.EmbeddingProvider {
	return usecase.NewEmbeddingProvider(client, "test-model", testDims, 0, logger.NewNop())
}

func newStore(t *testing.T) *sqlite.ProductRepo {
	t.Helper()

	repo, _ := newStoreWithDB(t)
	return repo
}

func newStoreWithDB(t *testing.T) (*sqlite.ProductRepo, *sql.DB) {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "shop.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlite.NewProductRepo(db, logger.NewNop()), db
}

func newTrManager(t *testing.T, db *sql.DB) tr.Manager {
	t.Helper()

	m, err := tr.NewSQLManager(db)
	require.NoError(t, err)
	return m
}

func seedProducts(t *testing.T, repo usecase.ProductRepository, products ...*domain.Product) {
	t.Helper()

	for _, p := range products {
		_, err := repo.Upsert(context.Background(), p)
		require.NoError(t, err)
	}
}

// snackCatalog — 4 закуски (одна не партнёрская) и партнёрский напиток.
func snackCatalog() []*domain.Product {
	return []*domain.Product{
		domain.NewProduct(1, "food", "snacks", "Crunch", "Chips", 120, "chips.png", false, `[{"comment":"crispy"},{"comment":"salty"},{"comment":"too small"}]`),
		domain.NewProduct(2, "food", "snacks", "Crunch", "Crackers", 90, "crackers.png", true, ""),
		domain.NewProduct(3, "food", "snacks", "Baker", "Pretzels", 150, "pretzels.png", true, `[{"comment":"fresh"}]`),
		domain.NewProduct(4, "food", "drinks", "Fizz", "Cola", 80, "cola.png", true, ""),
		domain.NewProduct(5, "food", "snacks", "Nutty", "Peanuts", 200, "peanuts.png", false, ""),
	}
}

type recordingIndex struct {
	mu     sync.Mutex
	points []domain.IndexPoint
	resets int
	err    error
}

func (r *recordingIndex) Upsert(_ context.Context, points []domain.IndexPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.points = append(r.points, points...)
	return nil
}

func (r *recordingIndex) Reset(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resets++
	return r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EmbeddingsUpdated
}

func (r *recordingPublisher) PublishEmbeddingsUpdated(_ context.Context, event domain.EmbeddingsUpdated) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	return nil
}

type recordingCache struct {
	usecase.NoopCache

	mu      sync.Mutex
	cards   map[int64]domain.ProductCard
	stored  []domain.ProductCard
	deleted []int64
}

func (r *recordingCache) GetProducts(_ context.Context, ids []int64) (map[int64]domain.ProductCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]domain.ProductCard)
	for _, id := range ids {
		if c, ok := r.cards[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (r *recordingCache) SetProducts(_ context.Context, cards []domain.ProductCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stored = append(r.stored, cards...)
	return nil
}

func (r *recordingCache) DeleteProducts(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = append(r.deleted, ids...)
	return nil
}

func (r *recordingCache) storedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.stored)
}

type stringSource struct {
	content string
	err     error
}

func (s stringSource) Open(context.Context, string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}
