package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

const (
	// compositeReviews — сколько отзывов каждого товара входит в составной запрос
	compositeReviews = 2
	// compositeSeparator разделяет части составного запроса
	compositeSeparator = " | "
)

// RecommendUseCase строит рекомендации для набора товаров одним составным запросом.
type RecommendUseCase struct {
	productRepo  ProductRepository
	cacheRepo    CacheRepository
	search       SearchUC
	defaultLimit int
	logger       logger.Logger
}

func NewRecommendUC(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	search SearchUC,
	defaultLimit int,
	logger logger.Logger,
) *RecommendUseCase {
	return &RecommendUseCase{
		productRepo:  productRepo,
		cacheRepo:    cacheRepo,
		search:       search,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// RecommendForIDs рекомендует товары, похожие на набор ids, исключая сами ids.
// Если ни один товар не найден, возвращает пустой список без обращения к провайдеру.
func (r *RecommendUseCase) RecommendForIDs(ctx context.Context, req *RecommendReq) ([]domain.SimilarityResult, error) {
	const op = "RecommendUseCase.RecommendForIDs"

	ids := uniqueIDs(req.IDs)
	if len(ids) == 0 {
		return []domain.SimilarityResult{}, nil
	}

	cards, err := r.getCards(ctx, ids)
	if err != nil {
		return []domain.SimilarityResult{}, e.Wrap(op, err)
	}

	if len(cards) == 0 {
		return []domain.SimilarityResult{}, nil
	}

	searchReq := &SearchReq{
		Query:          CompositeQuery(cards),
		Limit:          req.Limit,
		ExcludeIDs:     ids,
		AffiliatedOnly: req.AffiliatedOnly,
	}
	if searchReq.Limit <= 0 {
		searchReq.Limit = r.defaultLimit
	}
	if req.UseCategories {
		searchReq.Categories = distinctCategories(cards)
	}

	results, err := r.search.Search(ctx, searchReq)
	if err != nil {
		return results, e.Wrap(op, err)
	}

	return results, nil
}

// RecommendForCart рекомендует партнёрские товары тех же категорий, что и в корзине.
func (r *RecommendUseCase) RecommendForCart(ctx context.Context, req *CartRecommendReq) ([]domain.SimilarityResult, error) {
	return r.RecommendForIDs(ctx, NewRecommendReq(req.Cart.IDs(), req.Limit))
}

// CompositeQuery склеивает "name brand category" и первые отзывы каждого товара через " | ".
func CompositeQuery(cards []domain.ProductCard) string {
	parts := make([]string, 0, len(cards)*2)
	for _, c := range cards {
		p := c.Product()
		parts = append(parts, p.IdentityText())

		snippet := strings.TrimSpace(strings.Join(p.ReviewComments(compositeReviews), " "))
		if snippet != "" {
			parts = append(parts, snippet)
		}
	}

	return strings.Join(parts, compositeSeparator)
}

// getCards загружает карточки из кэша, недостающие берёт из каталога и дозаписывает в кэш в фоне.
// Порядок результата совпадает с порядком ids, ненайденные товары пропускаются.
func (r *RecommendUseCase) getCards(ctx context.Context, ids []int64) ([]domain.ProductCard, error) {
	const op = "RecommendUseCase.getCards"

	cached, err := r.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		r.logger.Warnf("card cache unavailable: %v", e.Wrap(op, err))
		cached = nil
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	fromDB := make(map[int64]domain.ProductCard, len(missing))
	if len(missing) > 0 {
		cards, err := r.productRepo.GetCards(ctx, missing)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		for _, c := range cards {
			fromDB[c.ID] = c
		}

		if len(cards) > 0 {
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := r.cacheRepo.SetProducts(bgCtx, cards); err != nil {
					r.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	result := make([]domain.ProductCard, 0, len(ids))
	for _, id := range ids {
		if c, ok := cached[id]; ok {
			result = append(result, c)
		} else if c, ok := fromDB[id]; ok {
			result = append(result, c)
		}
	}

	return result, nil
}

// distinctCategories возвращает категории в порядке первого появления.
func distinctCategories(cards []domain.ProductCard) []string {
	seen := make(map[string]struct{}, len(cards))
	categories := make([]string, 0, len(cards))
	for _, c := range cards {
		if _, ok := seen[c.Category]; ok {
			continue
		}
		seen[c.Category] = struct{}{}
		categories = append(categories, c.Category)
	}

	return categories
}

// uniqueIDs убирает дубликаты, сохраняя порядок.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
