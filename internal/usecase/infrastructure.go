package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
)

// EmbeddingClient — внешний сервис «текст → вектор».
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, model string, text string) ([]float32, error)
}

// EventPublisher публикует события об обновлении эмбеддингов.
type EventPublisher interface {
	PublishEmbeddingsUpdated(ctx context.Context, event domain.EmbeddingsUpdated) error
}

// CatalogSource открывает CSV каталога по пути или s3://bucket/key.
type CatalogSource interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}
