package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

type ProductHandler struct {
	searchUC    usecase.SearchUC
	recommendUC usecase.RecommendUC
	logger      logger.Logger
}

func NewProductHandler(searchUC usecase.SearchUC, recommendUC usecase.RecommendUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{searchUC: searchUC, recommendUC: recommendUC, logger: logger}
}

// searchProducts
//
//	@Summary		Поиск похожих товаров
//	@Description	Ищет товары, похожие на текст запроса, по убыванию сходства
//	@Tags			products
//	@Produce		json
//	@Param			q				query		string		true	"Текст запроса"
//	@Param			limit			query		int			false	"Максимум результатов"
//	@Param			affiliated_only	query		bool		false	"Только партнёрские товары"
//	@Param			category		query		[]string	false	"Допустимые категории"
//	@Param			exclude			query		[]int		false	"Исключаемые id товаров"
//	@Success		200				{object}	ResultsResponse
//	@Failure		400				{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/products/search [get]
func (p *ProductHandler) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := &usecase.SearchReq{Query: q.Get("q"), Categories: listParam(q, "category")}
	if req.Query == "" {
		p.badRequest(w, e.ErrEmptyQuery)
		return
	}

	var err error
	if req.Limit, err = parseLimit(q.Get("limit")); err != nil {
		p.badRequest(w, err)
		return
	}

	if req.AffiliatedOnly, err = parseBool(q.Get("affiliated_only"), false); err != nil {
		p.badRequest(w, err)
		return
	}

	if req.ExcludeIDs, err = parseIDs(listParam(q, "exclude")); err != nil {
		p.badRequest(w, err)
		return
	}

	results, err := p.searchUC.Search(r.Context(), req)
	if err != nil {
		p.logger.Errorf(err, "search failed, returning empty result")
	}

	WriteJSON(w, http.StatusOK, NewResultsResponse(results))
}

// recommendForProducts
//
//	@Summary		Рекомендации для набора товаров
//	@Description	Товары, похожие на переданный набор; сами товары набора исключаются
//	@Tags			recommendations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RecommendRequest	true	"Набор товаров"
//	@Success		200		{object}	ResultsResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/recommendations [post]
func (p *ProductHandler) recommendForProducts(w http.ResponseWriter, r *http.Request) {
	var body RecommendRequest
	if err := decodeBody(w, r, &body); err != nil {
		p.badRequest(w, err)
		return
	}

	if err := validateIDs(body.ProductIDs); err != nil {
		p.badRequest(w, err)
		return
	}

	if body.Limit < 0 {
		p.badRequest(w, errInvalidLimit(body.Limit))
		return
	}

	req := usecase.NewRecommendReq(body.ProductIDs, body.Limit)
	req.AffiliatedOnly = boolOr(body.AffiliatedOnly, req.AffiliatedOnly)
	req.UseCategories = boolOr(body.UseCategories, req.UseCategories)

	results, err := p.recommendUC.RecommendForIDs(r.Context(), req)
	if err != nil {
		p.logger.Errorf(err, "recommendations failed, returning empty result")
	}

	WriteJSON(w, http.StatusOK, NewResultsResponse(results))
}

// recommendForCart
//
//	@Summary		Рекомендации для корзины
//	@Description	Партнёрские товары тех же категорий, что и товары корзины
//	@Tags			recommendations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CartRequest	true	"Корзина: id товара → количество"
//	@Success		200		{object}	ResultsResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/cart/recommendations [post]
func (p *ProductHandler) recommendForCart(w http.ResponseWriter, r *http.Request) {
	var body CartRequest
	if err := decodeBody(w, r, &body); err != nil {
		p.badRequest(w, err)
		return
	}

	cart, err := domain.ParseCart(body.Items)
	if err != nil {
		p.badRequest(w, err)
		return
	}

	if body.Limit < 0 {
		p.badRequest(w, errInvalidLimit(body.Limit))
		return
	}

	results, err := p.recommendUC.RecommendForCart(r.Context(), &usecase.CartRecommendReq{Cart: cart, Limit: body.Limit})
	if err != nil {
		p.logger.Errorf(err, "cart recommendations failed, returning empty result")
	}

	WriteJSON(w, http.StatusOK, NewResultsResponse(results))
}

func (p *ProductHandler) badRequest(w http.ResponseWriter, err error) {
	p.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
	WriteError(w, err)
}
