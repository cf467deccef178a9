package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

// BruteForceName — имя резервного бэкенда в логах и метриках.
const BruteForceName = "bruteforce"

// BruteForceBackend считает косинусное сходство в процессе по всем подходящим товарам каталога.
// Точный линейный просмотр без индекса.
type BruteForceBackend struct {
	productRepo ProductRepository
	logger      logger.Logger
}

func NewBruteForceBackend(productRepo ProductRepository, logger logger.Logger) *BruteForceBackend {
	return &BruteForceBackend{
		productRepo: productRepo,
		logger:      logger,
	}
}

func (b *BruteForceBackend) Name() string {
	return BruteForceName
}

func (b *BruteForceBackend) Search(ctx context.Context, query vector.Vector, req *BackendQuery) ([]domain.SimilarityResult, error) {
	const op = "BruteForceBackend.Search"

	if req.Limit <= 0 {
		return []domain.SimilarityResult{}, nil
	}

	products, err := b.productRepo.Filter(ctx, req.Filter())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	candidates := make([]vector.Candidate[*domain.Product], 0, len(products))
	for _, p := range products {
		candidates = append(candidates, vector.Candidate[*domain.Product]{Item: p, Vector: p.NameEmbedding})
	}

	ranked, skipped := vector.RankTopK(query, candidates, req.Limit)
	if skipped > 0 {
		metrics.SearchSkippedCandidates.Add(float64(skipped))
		b.logger.Warnf("%d of %d candidates skipped: similarity undefined (missing, malformed or wrong dimension)", skipped, len(candidates))
	}

	results := make([]domain.SimilarityResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, domain.NewSimilarityResult(r.Item.Card(), r.Score))
	}

	return results, nil
}
