package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// PgvectorName — имя бэкенда в логах и метриках.
const PgvectorName = "pgvector"

// VectorSearchRepo ранжирует товары оператором расстояния pgvector прямо в запросе.
// Счёт: max(0, 1 - расстояние).
type VectorSearchRepo struct {
	pool     *pgxpool.Pool
	operator string
}

func NewVectorSearchRepo(pool *pgxpool.Pool, distance string) *VectorSearchRepo {
	operator := "<=>"
	if distance == cfg.DistanceL2 {
		operator = "<->"
	}

	return &VectorSearchRepo{
		pool:     pool,
		operator: operator,
	}
}

func (v *VectorSearchRepo) Name() string {
	return PgvectorName
}

// Available проверяет, что расширение vector установлено в базе.
func (v *VectorSearchRepo) Available(ctx context.Context) error {
	var installed bool
	err := v.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`).Scan(&installed)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if !installed {
		return e.Wrap(whereami.WhereAmI(), e.ErrBackendUnavailable)
	}

	return nil
}

func (v *VectorSearchRepo) Search(ctx context.Context, query vector.Vector, req *usecase.BackendQuery) ([]domain.SimilarityResult, error) {
	if req.Limit <= 0 {
		return []domain.SimilarityResult{}, nil
	}

	if !query.Valid() {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrVectorEmbeddingEmpty)
	}

	// Сходство с нулевым вектором не определено, <=> вернул бы NaN
	if isZero(query) {
		return []domain.SimilarityResult{}, nil
	}

	// $1: вектор запроса, $2: его размерность; фильтры начинаются с $3
	where, args := buildWhere(req.Filter(), 3)
	if where == "" {
		where = " WHERE TRUE"
	}

	sql := fmt.Sprintf(`
		SELECT %s, p.name_embedding %s $1 AS distance
		FROM products p
		%s AND vector_dims(p.name_embedding) = $2 AND vector_norm(p.name_embedding) > 0
		ORDER BY distance, p.id
		LIMIT %d`,
		cardColumns, v.operator, where, req.Limit,
	)

	args = append([]any{vector.ToNative(query), query.Dim()}, args...)

	rows, err := tr.TrOrDB(ctx, v.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	results := make([]domain.SimilarityResult, 0, req.Limit)
	for rows.Next() {
		var (
			c        domain.ProductCard
			distance float64
		)
		if err := rows.Scan(&c.ID, &c.Classification, &c.Category, &c.Brand, &c.Name, &c.Price, &c.Img, &c.IsAffiliated, &c.Reviews, &distance); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		results = append(results, domain.NewSimilarityResult(c, 1-distance))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return results, nil
}

func isZero(v vector.Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
