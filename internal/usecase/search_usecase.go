package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

// SearchUseCase ищет товары, похожие на текст запроса.
// Бэкенд выбирается один раз при сборке приложения и дальше не меняется.
type SearchUseCase struct {
	embedder     Embedder
	backend      VectorBackend
	defaultLimit int
	maxLimit     int
	logger       logger.Logger
}

func NewSearchUC(
	embedder Embedder,
	backend VectorBackend,
	defaultLimit int,
	maxLimit int,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		embedder:     embedder,
		backend:      backend,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// Backend возвращает имя выбранного бэкенда.
func (s *SearchUseCase) Backend() string {
	return s.backend.Name()
}

// Search возвращает не более limit товаров по убыванию сходства.
// Если вектор запроса получить не удалось, результат пустой и ошибки нет.
func (s *SearchUseCase) Search(ctx context.Context, req *SearchReq) ([]domain.SimilarityResult, error) {
	const op = "SearchUseCase.Search"

	started := time.Now()
	backend := s.backend.Name()
	defer func() {
		metrics.SearchDuration.WithLabelValues(backend).Observe(time.Since(started).Seconds())
	}()

	query := s.embedder.Embed(ctx, req.Query)
	if !query.OK() {
		metrics.SearchErrors.WithLabelValues(backend, "provider").Inc()
		s.logger.Debugf("query embedding unavailable, returning empty result: %v", query.Err)
		return []domain.SimilarityResult{}, nil
	}

	results, err := s.backend.Search(ctx, query.Vector, NewBackendQuery(req, s.limit(req.Limit)))
	if err != nil {
		metrics.SearchErrors.WithLabelValues(backend, "backend").Inc()
		return []domain.SimilarityResult{}, e.Wrap(op, err)
	}

	metrics.SearchResults.WithLabelValues(backend).Add(float64(len(results)))
	return results, nil
}

// limit подставляет значение по умолчанию и ограничивает сверху.
func (s *SearchUseCase) limit(requested int) int {
	if requested <= 0 {
		return s.defaultLimit
	}

	if s.maxLimit > 0 && requested > s.maxLimit {
		return s.maxLimit
	}

	return requested
}
