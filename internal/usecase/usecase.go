package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
)

type SearchUC interface {
	Search(ctx context.Context, req *SearchReq) ([]domain.SimilarityResult, error)
}

type RecommendUC interface {
	RecommendForIDs(ctx context.Context, req *RecommendReq) ([]domain.SimilarityResult, error)
	RecommendForCart(ctx context.Context, req *CartRecommendReq) ([]domain.SimilarityResult, error)
}

type EmbeddingJobUC interface {
	Run(ctx context.Context, req *JobReq) (*JobSummary, error)
}

type ImportUC interface {
	Import(ctx context.Context, req *ImportReq) (*ImportSummary, error)
}
