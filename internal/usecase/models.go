package usecase

import "github.com/DRSN-tech/shop-recommender/internal/domain"

// SEARCH

// SearchReq — запрос поиска похожих товаров по тексту.
type SearchReq struct {
	Query          string
	Limit          int // 0 — лимит по умолчанию
	ExcludeIDs     []int64
	AffiliatedOnly bool
	Categories     []string
}

// BackendQuery — фильтры, которые бэкенд применяет к выдаче.
type BackendQuery struct {
	Limit          int
	ExcludeIDs     []int64
	AffiliatedOnly bool
	Categories     []string
}

// RECOMMENDATIONS

// RecommendReq — рекомендации для набора товаров (например, корзины).
type RecommendReq struct {
	IDs            []int64
	Limit          int // 0 — лимит по умолчанию
	AffiliatedOnly bool
	UseCategories  bool
}

// CartRecommendReq — рекомендации для корзины из сессии.
type CartRecommendReq struct {
	Cart  domain.Cart
	Limit int
}

// EMBEDDING JOB

// JobReq — параметры запуска задачи генерации эмбеддингов.
type JobReq struct {
	Force      bool
	BatchSize  int // 0 — размер пачки по умолчанию
	ProductIDs []int64
	// Progress вызывается после каждой пачки
	Progress func(JobProgress)
}

// JobProgress — состояние задачи после очередной пачки.
type JobProgress struct {
	Batch   int
	Done    int
	Total   int
	Success int
	Failed  int
	Skipped int
}

// JobSummary — итог задачи.
type JobSummary struct {
	Success int
	Failed  int
	Skipped int // захвачены другим запуском
	Total   int
}

// Processed — число товаров, по которым была попытка генерации.
func (s JobSummary) Processed() int {
	return s.Success + s.Failed
}

// IMPORT

// ImportReq — импорт каталога из CSV.
type ImportReq struct {
	Location string // путь к файлу или s3://bucket/key
	Truncate bool
}

// ImportSummary — итог импорта.
type ImportSummary struct {
	Created int
	Updated int
	Failed  int
}

// REPOSITORIES

type UpsertProductRes struct {
	Product *domain.Product
	Created bool
}

// MAPPERS

func NewUpsertProductRes(product *domain.Product, created bool) *UpsertProductRes {
	return &UpsertProductRes{
		Product: product,
		Created: created,
	}
}

// NewRecommendReq создаёт запрос с поведением по умолчанию: только партнёрские товары
// из тех же категорий.
func NewRecommendReq(ids []int64, limit int) *RecommendReq {
	return &RecommendReq{
		IDs:            ids,
		Limit:          limit,
		AffiliatedOnly: true,
		UseCategories:  true,
	}
}

func NewBackendQuery(req *SearchReq, limit int) *BackendQuery {
	return &BackendQuery{
		Limit:          limit,
		ExcludeIDs:     req.ExcludeIDs,
		AffiliatedOnly: req.AffiliatedOnly,
		Categories:     req.Categories,
	}
}

// Filter переводит запрос бэкенда в предикаты каталога.
func (q *BackendQuery) Filter() domain.ProductFilter {
	return domain.ProductFilter{
		ExcludeIDs:     q.ExcludeIDs,
		Categories:     q.Categories,
		AffiliatedOnly: q.AffiliatedOnly,
		HasEmbedding:   true,
	}
}
