package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/goccy/go-json"
)

const maxBodySize = 1 << 20

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultsResponse — успешный ответ поиска и рекомендаций.
type ResultsResponse struct {
	OK      bool                      `json:"ok"`
	Results []domain.SimilarityResult `json:"results"`
}

type RecommendRequest struct {
	ProductIDs     []int64 `json:"product_ids"`
	Limit          int     `json:"limit,omitempty"`
	AffiliatedOnly *bool   `json:"affiliated_only,omitempty"`
	UseCategories  *bool   `json:"use_categories,omitempty"`
}

// CartRequest — корзина в форме сессии, ключами служат строковые id товаров.
type CartRequest struct {
	Items map[string]int `json:"items"`
	Limit int            `json:"limit,omitempty"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func NewResultsResponse(results []domain.SimilarityResult) *ResultsResponse {
	if results == nil {
		results = []domain.SimilarityResult{}
	}

	return &ResultsResponse{OK: true, Results: results}
}

func ToHTTPResponse(err error) (int, string) {
	for _, target := range []error{
		e.ErrEmptyQuery,
		e.ErrInvalidLimit,
		e.ErrInvalidProductID,
		e.ErrInvalidQuantity,
		e.ErrInvalidCart,
		e.ErrInvalidBody,
		e.ErrNoProducts,
		e.ErrStatusBadRequest,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	return http.StatusInternalServerError, e.ErrInternalServerError.Error()
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteJSON(w, code, NewErrorResponse(code, msg))
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidBody, err)
	}

	return nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidLimit, raw)
	}

	return n, nil
}

func parseBool(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", e.ErrStatusBadRequest, raw)
	}

	return b, nil
}

// listParam собирает значения из повторяющегося параметра и из списков через запятую.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func parseIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", e.ErrInvalidProductID, v)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return e.ErrNoProducts
	}

	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %d", e.ErrInvalidProductID, id)
		}
	}

	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}

	return *v
}

func errInvalidLimit(n int) error {
	return fmt.Errorf("%w: %d", e.ErrInvalidLimit, n)
}
