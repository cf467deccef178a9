package grpc

import (
	"errors"
	"fmt"
	"math"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrEmptyQuery),
		errors.Is(err, e.ErrInvalidLimit),
		errors.Is(err, e.ErrInvalidProductID),
		errors.Is(err, e.ErrInvalidQuantity),
		errors.Is(err, e.ErrNoProducts),
		errors.Is(err, e.ErrStatusBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}

// fields — обёртка над полями Struct с проверкой типов.
type fields map[string]*structpb.Value

func (f fields) string(key string) (string, error) {
	v, ok := f[key]
	if !ok || isNull(v) {
		return "", nil
	}

	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", e.ErrStatusBadRequest, key)
	}

	return s.StringValue, nil
}

func (f fields) boolean(key string, def bool) (bool, error) {
	v, ok := f[key]
	if !ok || isNull(v) {
		return def, nil
	}

	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", e.ErrStatusBadRequest, key)
	}

	return b.BoolValue, nil
}

func (f fields) limit(key string) (int, error) {
	v, ok := f[key]
	if !ok || isNull(v) {
		return 0, nil
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || !isWhole(n.NumberValue) || n.NumberValue <= 0 {
		return 0, fmt.Errorf("%w: %v", e.ErrInvalidLimit, v.AsInterface())
	}

	return int(n.NumberValue), nil
}

func (f fields) strings(key string) ([]string, error) {
	list, err := f.list(key)
	if err != nil || list == nil {
		return nil, err
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s must contain strings", e.ErrStatusBadRequest, key)
		}
		out = append(out, s.StringValue)
	}

	return out, nil
}

func (f fields) ids(key string) ([]int64, error) {
	list, err := f.list(key)
	if err != nil || list == nil {
		return nil, err
	}

	out := make([]int64, 0, len(list))
	for _, item := range list {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok || !isWhole(n.NumberValue) || n.NumberValue <= 0 {
			return nil, fmt.Errorf("%w: %v", e.ErrInvalidProductID, item.AsInterface())
		}
		out = append(out, int64(n.NumberValue))
	}

	return out, nil
}

// cart читает корзину {"<id>": qty} и приводит её через domain.ParseCart.
func (f fields) cart(key string) (domain.Cart, bool, error) {
	v, ok := f[key]
	if !ok || isNull(v) {
		return nil, false, nil
	}

	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, true, fmt.Errorf("%w: %s must be an object", e.ErrStatusBadRequest, key)
	}

	raw := make(map[string]int, len(s.StructValue.GetFields()))
	for id, qty := range s.StructValue.GetFields() {
		n, ok := qty.GetKind().(*structpb.Value_NumberValue)
		if !ok || !isWhole(n.NumberValue) {
			return nil, true, fmt.Errorf("%w: product %s", e.ErrInvalidQuantity, id)
		}
		raw[id] = int(n.NumberValue)
	}

	cart, err := domain.ParseCart(raw)
	return cart, true, err
}

func (f fields) list(key string) ([]*structpb.Value, error) {
	v, ok := f[key]
	if !ok || isNull(v) {
		return nil, nil
	}

	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", e.ErrStatusBadRequest, key)
	}

	return l.ListValue.GetValues(), nil
}

func isNull(v *structpb.Value) bool {
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return null || v.GetKind() == nil
}

func isWhole(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

func toResultsStruct(results []domain.SimilarityResult) (*structpb.Struct, error) {
	items := make([]any, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]any{
			"id":               r.ID,
			"name":             r.Name,
			"brand":            r.Brand,
			"price":            r.Price,
			"if_affiliated":    r.IsAffiliated,
			"img":              r.Img,
			"category":         r.Category,
			"similarity_score": r.SimilarityScore,
		})
	}

	return structpb.NewStruct(map[string]any{
		"ok":      true,
		"results": items,
	})
}
