package vector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want float64
	}{
		{"identical", Vector{1, 2, 3}, Vector{1, 2, 3}, 1},
		{"scaled", Vector{1, 2, 3}, Vector{2, 4, 6}, 1},
		{"orthogonal", Vector{1, 0}, Vector{0, 1}, 0},
		{"opposite", Vector{1, 1}, Vector{-1, -1}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarityDeterministicAndSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		a, b := randomVector(r, 128), randomVector(r, 128)

		first, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		second, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		reversed, err := CosineSimilarity(b, a)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, first, reversed)
		assert.GreaterOrEqual(t, first, -1.0)
		assert.LessOrEqual(t, first, 1.0)

		self, err := CosineSimilarity(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-9)
	}
}

func TestCosineSimilarityUndefined(t *testing.T) {
	_, err := CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3})
	require.Error(t, err)
	assert.True(t, IsDimensionMismatch(err))
	assert.False(t, errors.Is(err, ErrZeroMagnitude))

	_, err = CosineSimilarity(Vector{0, 0}, Vector{1, 2})
	require.Error(t, err)
	assert.True(t, IsDimensionMismatch(err))
	assert.ErrorIs(t, err, ErrZeroMagnitude)

	_, err = CosineSimilarity(nil, nil)
	assert.True(t, IsDimensionMismatch(err))
}

func TestRankTopK(t *testing.T) {
	query := Vector{1, 0}
	candidates := []Candidate[string]{
		{Item: "far", Vector: Vector{0, 1}},
		{Item: "close", Vector: Vector{1, 0.1}},
		{Item: "exact", Vector: Vector{2, 0}},
		{Item: "broken", Vector: Vector{1, 0, 0}},
		{Item: "zero", Vector: Vector{0, 0}},
		{Item: "opposite", Vector: Vector{-1, 0}},
	}

	got, skipped := RankTopK(query, candidates, 3)
	assert.Equal(t, 2, skipped)
	require.Len(t, got, 3)
	assert.Equal(t, "exact", got[0].Item)
	assert.Equal(t, "close", got[1].Item)
	assert.Equal(t, "far", got[2].Item)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRankTopKStableTies(t *testing.T) {
	query := Vector{1, 1}
	candidates := make([]Candidate[int], 0, 10)
	for i := 0; i < 10; i++ {
		// Одинаковые векторы дают точно равный счёт
		candidates = append(candidates, Candidate[int]{Item: i, Vector: Vector{2, 1}})
	}
	candidates = append(candidates, Candidate[int]{Item: 10, Vector: Vector{1, 1}})

	got, skipped := RankTopK(query, candidates, 4)
	assert.Zero(t, skipped)
	require.Len(t, got, 4)
	assert.Equal(t, 10, got[0].Item)
	for i, s := range got[1:] {
		assert.Equal(t, i, s.Item)
		assert.Equal(t, got[1].Score, s.Score)
	}
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	for i := 1; i <= 10; i++ {
		sim, err := CosineSimilarity(Vector{1, 1}, Vector{float32(i), float32(i)})
		require.NoError(t, err)
		assert.Equal(t, 1.0, sim, "scale %d", i)
	}
}

func TestRankTopKBounds(t *testing.T) {
	candidates := []Candidate[int]{{Item: 1, Vector: Vector{1}}, {Item: 2, Vector: Vector{2}}}

	got, _ := RankTopK(Vector{1}, candidates, 0)
	assert.Empty(t, got)

	got, _ = RankTopK(Vector{1}, candidates, 10)
	assert.Len(t, got, 2)

	got, _ = RankTopK[int](Vector{1}, nil, 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
