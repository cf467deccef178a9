package pgdb

import (
	"testing"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(domain.ProductFilter{}, 1)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildWhere(domain.ProductFilter{
		IDs:              []int64{1, 2},
		ExcludeIDs:       []int64{3},
		Categories:       []string{"snacks"},
		AffiliatedOnly:   true,
		MissingEmbedding: true,
	}, 3)

	assert.Equal(t,
		" WHERE p.id = ANY($3) AND p.id <> ALL($4) AND p.category = ANY($5) AND p.if_affiliated"+
			" AND (p.name_embedding IS NULL OR p.description_embedding IS NULL)",
		where,
	)
	assert.Equal(t, []any{[]int64{1, 2}, []int64{3}, []string{"snacks"}}, args)

	where, _ = buildWhere(domain.ProductFilter{HasEmbedding: true}, 1)
	assert.Equal(t, " WHERE p.name_embedding IS NOT NULL", where)
}

func TestDistanceOperator(t *testing.T) {
	assert.Equal(t, "<=>", NewVectorSearchRepo(nil, cfg.DistanceCosine).operator)
	assert.Equal(t, "<->", NewVectorSearchRepo(nil, cfg.DistanceL2).operator)
	assert.Equal(t, PgvectorName, NewVectorSearchRepo(nil, "").Name())
}
