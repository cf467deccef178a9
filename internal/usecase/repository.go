package usecase

import (
	"context"
	"io"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
)

// ProductRepository — каталог товаров.
// Повреждённые векторы хранилище отдаёт как отсутствующие (nil).
type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error)
	GetCards(ctx context.Context, ids []int64) ([]domain.ProductCard, error)
	Filter(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	FilterIDs(ctx context.Context, filter domain.ProductFilter) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	SaveEmbeddings(ctx context.Context, productID int64, name, description vector.Vector) error
	Upsert(ctx context.Context, product *domain.Product) (*UpsertProductRes, error)
	Truncate(ctx context.Context) error
}

// EmbeddingVersionRepository ведёт счётчик перегенераций эмбеддингов.
type EmbeddingVersionRepository interface {
	Bump(ctx context.Context, productID int64, model string) (*domain.ProductEmbeddingVersion, error)
}

// VectorBackend выполняет ранжированный поиск по эмбеддингам имён товаров.
// Все реализации применяют одинаковые фильтры и возвращают счёт в [0, 1].
type VectorBackend interface {
	Name() string
	Search(ctx context.Context, query vector.Vector, req *BackendQuery) ([]domain.SimilarityResult, error)
}

// CapabilityChecker реализуют бэкенды, доступность которых проверяется при старте.
type CapabilityChecker interface {
	Available(ctx context.Context) error
}

// VectorIndex — внешний векторный индекс, который синхронизирует задача эмбеддингов.
type VectorIndex interface {
	Upsert(ctx context.Context, points []domain.IndexPoint) error
	Reset(ctx context.Context) error
}

// CacheRepository хранит карточки товаров.
type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.ProductCard, error)
	SetProducts(ctx context.Context, cards []domain.ProductCard) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

// LockRepository выдаёт краткоживущие захваты товаров задаче эмбеддингов.
type LockRepository interface {
	Acquire(ctx context.Context, productID int64, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, productID int64, token string) error
}

// ObjectRepository читает объекты из объектного хранилища (MinIO/S3).
type ObjectRepository interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
