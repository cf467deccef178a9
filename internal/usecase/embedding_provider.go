package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

const (
	// descriptionReviews — сколько отзывов входит в текст описания
	descriptionReviews = 5
)

// EmbedResult — результат вызова провайдера: либо вектор, либо причина его отсутствия.
type EmbedResult struct {
	Vector vector.Vector
	Err    error
}

// OK сообщает, что вектор получен.
func (r EmbedResult) OK() bool {
	return r.Err == nil && r.Vector.Valid()
}

// ProductEmbeddings — эмбеддинги имени и описания товара, каждый может отсутствовать.
type ProductEmbeddings struct {
	Name        EmbedResult
	Description EmbedResult
}

// OK сообщает, что оба эмбеддинга получены.
func (p ProductEmbeddings) OK() bool {
	return p.Name.OK() && p.Description.OK()
}

// Embedder превращает текст в вектор. Ошибки не возвращаются, а кладутся в EmbedResult.
type Embedder interface {
	Embed(ctx context.Context, text string) EmbedResult
	EmbedProduct(ctx context.Context, product *domain.Product) ProductEmbeddings
	Model() string
}

// EmbeddingProvider оборачивает внешний сервис эмбеддингов.
// Любой сбой сервиса превращается в EmbedResult с ошибкой e.ErrProviderFailure.
type EmbeddingProvider struct {
	client     EmbeddingClient
	model      string
	dimensions int
	timeout    time.Duration
	logger     logger.Logger
}

func NewEmbeddingProvider(
	client EmbeddingClient,
	model string,
	dimensions int,
	timeout time.Duration,
	logger logger.Logger,
) *EmbeddingProvider {
	return &EmbeddingProvider{
		client:     client,
		model:      model,
		dimensions: dimensions,
		timeout:    timeout,
		logger:     logger,
	}
}

func (p *EmbeddingProvider) Model() string {
	return p.model
}

// Embed обрезает пробелы и запрашивает вектор с ограничением по времени.
// Пустой текст не отправляется во внешний сервис.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) EmbedResult {
	const op = "EmbeddingProvider.Embed"

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return EmbedResult{Err: e.ErrEmptyText}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := p.client.CreateEmbedding(ctx, p.model, text)
	metrics.EmbeddingRequestDuration.Observe(time.Since(started).Seconds())

	if err == nil {
		err = p.validate(raw)
	}

	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		p.logger.Warnf("embedding request failed: %v", e.Wrap(op, err))

		if !errors.Is(err, e.ErrProviderFailure) {
			err = fmt.Errorf("%w: %w", e.ErrProviderFailure, err)
		}
		return EmbedResult{Err: err}
	}

	metrics.EmbeddingRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return EmbedResult{Vector: vector.Vector(raw)}
}

// EmbedProduct строит тексты имени и описания товара и запрашивает оба вектора.
func (p *EmbeddingProvider) EmbedProduct(ctx context.Context, product *domain.Product) ProductEmbeddings {
	identity := product.IdentityText()

	return ProductEmbeddings{
		Name:        p.Embed(ctx, identity),
		Description: p.Embed(ctx, DescriptionText(product)),
	}
}

// DescriptionText — комментарии первых отзывов через пробел либо текст имени, если отзывов нет.
func DescriptionText(product *domain.Product) string {
	comments := product.ReviewComments(descriptionReviews)
	if len(comments) == 0 {
		return product.IdentityText()
	}

	return strings.Join(comments, " ")
}

// validate отбрасывает ответы, которые нельзя использовать как эмбеддинг.
func (p *EmbeddingProvider) validate(raw []float32) error {
	if len(raw) == 0 {
		return e.ErrVectorEmbeddingEmpty
	}

	if p.dimensions > 0 && len(raw) != p.dimensions {
		return &vector.DimensionMismatchError{Left: len(raw), Right: p.dimensions}
	}

	return nil
}
