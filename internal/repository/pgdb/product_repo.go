package pgdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const (
	cardColumns    = `p.id, p.classification, p.category, p.brand, p.name, p.price, p.img, p.if_affiliated, p.reviews`
	productColumns = cardColumns + `, p.name_embedding, p.description_embedding, COALESCE(v.embedding_version, 0), p.created_at, p.updated_at`
	productFrom    = ` FROM products p LEFT JOIN product_embedding_version v ON v.product_id = p.id`
)

// ProductRepo реализует каталог товаров поверх PostgreSQL с колонками pgvector.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	return p.Filter(ctx, domain.ProductFilter{IDs: ids})
}

// GetCards возвращает информацию о товарах без эмбеддингов.
func (p *ProductRepo) GetCards(ctx context.Context, ids []int64) ([]domain.ProductCard, error) {
	if len(ids) == 0 {
		return []domain.ProductCard{}, nil
	}

	query := `SELECT ` + cardColumns + ` FROM products p WHERE p.id = ANY($1) ORDER BY p.id`

	rows, err := tr.TrOrDB(ctx, p.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.ProductCard, 0, len(ids))
	for rows.Next() {
		var c domain.ProductCard
		if err := rows.Scan(&c.ID, &c.Classification, &c.Category, &c.Brand, &c.Name, &c.Price, &c.Img, &c.IsAffiliated, &c.Reviews); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// Filter возвращает товары, удовлетворяющие всем предикатам, по возрастанию id.
func (p *ProductRepo) Filter(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	where, args := buildWhere(filter, 1)
	query := `SELECT ` + productColumns + productFrom + where + ` ORDER BY p.id`

	rows, err := tr.TrOrDB(ctx, p.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	models := make([]*converter.ProductModel, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		models = append(models, model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToArrEntity(models), nil
}

func (p *ProductRepo) FilterIDs(ctx context.Context, filter domain.ProductFilter) ([]int64, error) {
	where, args := buildWhere(filter, 1)

	rows, err := tr.TrOrDB(ctx, p.pool).Query(ctx, `SELECT p.id FROM products p`+where+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return ids, nil
}

func (p *ProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := tr.TrOrDB(ctx, p.pool).QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return n, nil
}

// SaveEmbeddings записывает оба эмбеддинга в нативной форме pgvector.
func (p *ProductRepo) SaveEmbeddings(ctx context.Context, productID int64, name, description vector.Vector) error {
	if !name.Valid() || !description.Valid() {
		return e.Wrap(whereami.WhereAmI(), e.ErrEmptyVectors)
	}

	query := `
		UPDATE products
		SET name_embedding = $2, description_embedding = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tr.TrOrDB(ctx, p.pool).Exec(ctx, query, productID, converter.ToNative(name), converter.ToNative(description))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %d", e.ErrProductNotFound, productID))
	}

	return nil
}

// Upsert идемпотентно создаёт или обновляет товар по id. Эмбеддинги не затрагиваются.
// xmax = 0 у только что вставленной строки.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) (*usecase.UpsertProductRes, error) {
	query := `
		INSERT INTO products (id, classification, category, brand, name, price, img, if_affiliated, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			classification = EXCLUDED.classification,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			img = EXCLUDED.img,
			if_affiliated = EXCLUDED.if_affiliated,
			reviews = EXCLUDED.reviews,
			updated_at = NOW()
		RETURNING created_at, updated_at, (xmax = 0) AS created
	`

	model := p.conv.ToModel(product)
	var created bool
	err := tr.TrOrDB(ctx, p.pool).QueryRow(ctx, query,
		model.ID, model.Classification, model.Category, model.Brand, model.Name,
		model.Price, model.Img, model.IfAffiliated, model.Reviews,
	).Scan(&model.CreatedAt, &model.UpdatedAt, &created)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	product.CreatedAt = model.CreatedAt
	product.UpdatedAt = model.UpdatedAt

	return usecase.NewUpsertProductRes(product, created), nil
}

// Truncate очищает каталог вместе с версиями эмбеддингов.
func (p *ProductRepo) Truncate(ctx context.Context) error {
	if _, err := tr.TrOrDB(ctx, p.pool).Exec(ctx, `TRUNCATE products CASCADE`); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var m converter.ProductModel
	err := row.Scan(
		&m.ID, &m.Classification, &m.Category, &m.Brand, &m.Name, &m.Price, &m.Img, &m.IfAffiliated, &m.Reviews,
		&m.NameEmbedding, &m.DescriptionEmbedding, &m.EmbeddingVersion, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// buildWhere собирает условие WHERE для алиаса p. Нумерация параметров начинается с next.
func buildWhere(filter domain.ProductFilter, next int) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	arg := func(v any) string {
		args = append(args, v)
		s := fmt.Sprintf("$%d", next)
		next++
		return s
	}

	if len(filter.IDs) > 0 {
		clauses = append(clauses, "p.id = ANY("+arg(filter.IDs)+")")
	}

	if len(filter.ExcludeIDs) > 0 {
		clauses = append(clauses, "p.id <> ALL("+arg(filter.ExcludeIDs)+")")
	}

	if len(filter.Categories) > 0 {
		clauses = append(clauses, "p.category = ANY("+arg(filter.Categories)+")")
	}

	if filter.AffiliatedOnly {
		clauses = append(clauses, "p.if_affiliated")
	}

	if filter.MissingEmbedding {
		clauses = append(clauses, "(p.name_embedding IS NULL OR p.description_embedding IS NULL)")
	}

	if filter.HasEmbedding {
		clauses = append(clauses, "p.name_embedding IS NOT NULL")
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
