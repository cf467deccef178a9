package vector

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity считает косинусное сходство в [-1, 1].
// Для векторов разной длины или нулевого вектора возвращает *DimensionMismatchError, а не NaN.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b), ZeroMagnitude: true}
	}

	sim := dot / math.Sqrt(normA*normB)

	// Погрешность округления может вывести значение за границы диапазона
	return math.Max(-1, math.Min(1, sim)), nil
}

// Candidate — элемент, участвующий в ранжировании, вместе со своим вектором.
type Candidate[T any] struct {
	Item   T
	Vector Vector
}

// Scored — элемент с посчитанным сходством.
type Scored[T any] struct {
	Item  T
	Score float64
}

// RankTopK считает сходство запроса с каждым кандидатом, сортирует по убыванию
// (при равенстве сохраняется исходный порядок) и возвращает не более k элементов.
// Кандидаты, для которых сходство не определено, пропускаются; их число возвращается вторым значением.
func RankTopK[T any](query Vector, candidates []Candidate[T], k int) ([]Scored[T], int) {
	if k <= 0 || len(candidates) == 0 {
		return []Scored[T]{}, 0
	}

	scored := make([]Scored[T], 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		score, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			skipped++
			continue
		}

		scored = append(scored, Scored[T]{Item: c.Item, Score: score})
	}

	slices.SortStableFunc(scored, func(a, b Scored[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, skipped
}
