package grpc

import (
	"context"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"google.golang.org/protobuf/types/known/structpb"
)

// RecommendationService отдаёт поиск и рекомендации по gRPC, запросы и ответы передаются в google.protobuf.Struct.
type RecommendationService struct {
	searchUC    usecase.SearchUC
	recommendUC usecase.RecommendUC
	logger      logger.Logger
}

func NewRecommendationService(searchUC usecase.SearchUC, recommendUC usecase.RecommendUC, logger logger.Logger) *RecommendationService {
	return &RecommendationService{searchUC: searchUC, recommendUC: recommendUC, logger: logger}
}

// SearchSimilarProducts ожидает {query, limit?, affiliated_only?, categories?, exclude_ids?}.
func (g *RecommendationService) SearchSimilarProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.SearchSimilarProducts"

	req, err := toSearchReq(fields(in.GetFields()))
	if err != nil {
		g.logger.Warnf("%s: %v", op, err)
		return nil, GRPCErrorResponse(err)
	}

	results, err := g.searchUC.Search(ctx, req)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "search failed, returning empty result")
		results = nil
	}

	return g.respond(op, results)
}

// RecommendForProducts ожидает {product_ids, limit?, affiliated_only?, use_categories?}
// либо {cart: {"<id>": qty}, limit?}.
func (g *RecommendationService) RecommendForProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.RecommendForProducts"

	f := fields(in.GetFields())

	limit, err := f.limit("limit")
	if err != nil {
		g.logger.Warnf("%s: %v", op, err)
		return nil, GRPCErrorResponse(err)
	}

	cart, hasCart, err := f.cart("cart")
	if err != nil {
		g.logger.Warnf("%s: %v", op, err)
		return nil, GRPCErrorResponse(err)
	}

	var results []domain.SimilarityResult
	if hasCart {
		results, err = g.recommendUC.RecommendForCart(ctx, &usecase.CartRecommendReq{Cart: cart, Limit: limit})
	} else {
		req, reqErr := toRecommendReq(f, limit)
		if reqErr != nil {
			g.logger.Warnf("%s: %v", op, reqErr)
			return nil, GRPCErrorResponse(reqErr)
		}
		results, err = g.recommendUC.RecommendForIDs(ctx, req)
	}
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "recommendations failed, returning empty result")
		results = nil
	}

	return g.respond(op, results)
}

func (g *RecommendationService) respond(op string, results []domain.SimilarityResult) (*structpb.Struct, error) {
	out, err := toResultsStruct(results)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "failed to encode response")
		return nil, GRPCErrorResponse(err)
	}

	return out, nil
}

func toSearchReq(f fields) (*usecase.SearchReq, error) {
	query, err := f.string("query")
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, e.ErrEmptyQuery
	}

	req := &usecase.SearchReq{Query: query}
	if req.Limit, err = f.limit("limit"); err != nil {
		return nil, err
	}
	if req.AffiliatedOnly, err = f.boolean("affiliated_only", false); err != nil {
		return nil, err
	}
	if req.Categories, err = f.strings("categories"); err != nil {
		return nil, err
	}
	if req.ExcludeIDs, err = f.ids("exclude_ids"); err != nil {
		return nil, err
	}

	return req, nil
}

func toRecommendReq(f fields, limit int) (*usecase.RecommendReq, error) {
	ids, err := f.ids("product_ids")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, e.ErrNoProducts
	}

	req := usecase.NewRecommendReq(ids, limit)
	if req.AffiliatedOnly, err = f.boolean("affiliated_only", req.AffiliatedOnly); err != nil {
		return nil, err
	}
	if req.UseCategories, err = f.boolean("use_categories", req.UseCategories); err != nil {
		return nil, err
	}

	return req, nil
}
