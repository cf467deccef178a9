package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// pgForeignKeyViolation — код ошибки PostgreSQL при нарушении внешнего ключа
const pgForeignKeyViolation = "23503"

type ProductEmbeddingVersionRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductEmbeddingVersionConverter
}

func NewProductEmbeddingVersionRepo(pool *pgxpool.Pool, conv converter.ProductEmbeddingVersionConverter) *ProductEmbeddingVersionRepo {
	return &ProductEmbeddingVersionRepo{
		pool: pool,
		conv: conv,
	}
}

// Bump создаёт запись с версией 1 или увеличивает существующую.
func (p *ProductEmbeddingVersionRepo) Bump(ctx context.Context, productID int64, model string) (*domain.ProductEmbeddingVersion, error) {
	var m converter.ProductEmbeddingVersionModel
	query := `
	INSERT INTO product_embedding_version (product_id, model)
    VALUES ($1, $2)
    ON CONFLICT (product_id)
    DO UPDATE SET embedding_version = product_embedding_version.embedding_version + 1,
                  model = EXCLUDED.model,
                  updated_at = NOW()
    RETURNING id, product_id, embedding_version, model, created_at, updated_at;
	`

	err := tr.TrOrDB(ctx, p.pool).QueryRow(ctx, query, productID, model).Scan(
		&m.ID,
		&m.ProductID,
		&m.EmbeddingVersion,
		&m.Model,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %d", e.ErrProductNotFound, productID))
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(&m), nil
}
