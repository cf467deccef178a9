package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/google/uuid"
)

// Заглушки для необязательных интеграций (Redis, Kafka, Qdrant), когда они не настроены.

type NoopCache struct{}

func (NoopCache) GetProducts(context.Context, []int64) (map[int64]domain.ProductCard, error) {
	return map[int64]domain.ProductCard{}, nil
}

func (NoopCache) SetProducts(context.Context, []domain.ProductCard) error { return nil }

func (NoopCache) DeleteProducts(context.Context, []int64) error { return nil }

type NoopIndex struct{}

func (NoopIndex) Upsert(context.Context, []domain.IndexPoint) error { return nil }

func (NoopIndex) Reset(context.Context) error { return nil }

type NoopPublisher struct{}

func (NoopPublisher) PublishEmbeddingsUpdated(context.Context, domain.EmbeddingsUpdated) error {
	return nil
}

// LocalLocker — захваты товаров в пределах одного процесса.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]localLock
	now   func() time.Time
}

type localLock struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int64]localLock), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, productID int64, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lock, ok := l.locks[productID]; ok && now.Before(lock.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.locks[productID] = localLock{token: token, expires: now.Add(ttl)}

	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, productID int64, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[productID]; ok && lock.token == token {
		delete(l.locks, productID)
	}

	return nil
}
