package vector

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pgvector/pgvector-go"
)

var (
	errEmptyArray   = errors.New("empty array")
	errNonFinite    = errors.New("non-finite value")
	errUnsupported  = errors.New("unsupported storage type")
	nullLiteral     = "null"
	textArrayPrefix = "["
)

// EncodeText сериализует вектор в текстовую форму (JSON-массив чисел).
// Эта же форма совпадает с текстовым литералом pgvector.
func EncodeText(v Vector) (string, error) {
	if len(v) == 0 {
		return "", errEmptyArray
	}

	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return "", errNonFinite
		}
	}

	data, err := json.Marshal([]float32(v))
	if err != nil {
		return "", fmt.Errorf("encode vector: %w", err)
	}

	return string(data), nil
}

// DecodeText разбирает текстовую форму. Пустая строка и null означают отсутствие эмбеддинга.
func DecodeText(s string) (Vector, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == nullLiteral {
		return nil, nil
	}

	if !strings.HasPrefix(trimmed, textArrayPrefix) {
		return nil, &MalformedVectorError{Input: s, Err: errors.New("not an array")}
	}

	var floats []float32
	if err := json.Unmarshal([]byte(trimmed), &floats); err != nil {
		return nil, &MalformedVectorError{Input: s, Err: err}
	}

	if len(floats) == 0 {
		return nil, &MalformedVectorError{Input: s, Err: errEmptyArray}
	}

	return Vector(floats), nil
}

// ToNative переводит вектор в нативное представление pgvector.
func ToNative(v Vector) pgvector.Vector {
	return pgvector.NewVector(v)
}

// FromNative переводит нативное представление pgvector обратно в Vector.
func FromNative(p pgvector.Vector) Vector {
	slice := p.Slice()
	if len(slice) == 0 {
		return nil
	}

	out := make(Vector, len(slice))
	copy(out, slice)

	return out
}

// Decode приводит любую из поддерживаемых форм хранения к Vector.
// Текстовые формы проходят через DecodeText, нативные копируются.
func Decode(stored any) (Vector, error) {
	switch s := stored.(type) {
	case nil:
		return nil, nil
	case Vector:
		return s, nil
	case []float32:
		return Vector(s), nil
	case []float64:
		out := make(Vector, len(s))
		for i, f := range s {
			out[i] = float32(f)
		}
		return out, nil
	case pgvector.Vector:
		return FromNative(s), nil
	case *pgvector.Vector:
		if s == nil {
			return nil, nil
		}
		return FromNative(*s), nil
	case string:
		return DecodeText(s)
	case *string:
		if s == nil {
			return nil, nil
		}
		return DecodeText(*s)
	case []byte:
		return DecodeText(string(s))
	default:
		return nil, &MalformedVectorError{Input: fmt.Sprintf("%T", stored), Err: errUnsupported}
	}
}
