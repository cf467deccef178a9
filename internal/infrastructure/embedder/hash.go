package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/DRSN-tech/shop-recommender/pkg/e"
)

// HashClient строит векторы без сети: каждое слово даёт псевдослучайный вектор,
// зависящий только от слова. Результат равен нормированной сумме.
// Тексты с общими словами получаются похожими.
type HashClient struct {
	dimensions int
}

func NewHashClient(dimensions int) *HashClient {
	return &HashClient{dimensions: dimensions}
}

func (h *HashClient) CreateEmbedding(ctx context.Context, _ string, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if h.dimensions <= 0 {
		return nil, Permanent(e.ErrVectorEmbeddingEmpty)
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	sum := make([]float64, h.dimensions)
	for _, token := range tokens {
		digest := sha256.Sum256([]byte(token))
		r := rand.New(rand.NewPCG(binary.LittleEndian.Uint64(digest[:8]), binary.LittleEndian.Uint64(digest[8:16])))
		for i := range sum {
			sum[i] += r.NormFloat64()
		}
	}

	var norm float64
	for _, x := range sum {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dimensions)
	for i, x := range sum {
		out[i] = float32(x / norm)
	}

	return out, nil
}
