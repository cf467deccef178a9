package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/jimlawless/whereami"
)

const (
	cardColumns    = `id, classification, category, brand, name, price, img, if_affiliated, reviews`
	productColumns = cardColumns + `, name_embedding, description_embedding, embedding_version`
)

// ProductRepo реализует каталог поверх SQLite. Также ведёт версию эмбеддингов в колонке embedding_version.
type ProductRepo struct {
	db     *sql.DB
	logger logger.Logger
}

func NewProductRepo(db *sql.DB, logger logger.Logger) *ProductRepo {
	return &ProductRepo{
		db:     db,
		logger: logger,
	}
}

// conn возвращает транзакцию менеджера из ctx, если она открыта.
func (p *ProductRepo) conn(ctx context.Context) trmsql.Tr {
	return tr.SQLTrOrDB(ctx, p.db)
}

func (p *ProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	return p.Filter(ctx, domain.ProductFilter{IDs: ids})
}

// GetCards возвращает товары без эмбеддингов.
func (p *ProductRepo) GetCards(ctx context.Context, ids []int64) ([]domain.ProductCard, error) {
	if len(ids) == 0 {
		return []domain.ProductCard{}, nil
	}

	where, args := buildWhere(domain.ProductFilter{IDs: ids})
	rows, err := p.conn(ctx).QueryContext(ctx, `SELECT `+cardColumns+` FROM products`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	cards := make([]domain.ProductCard, 0, len(ids))
	for rows.Next() {
		var c domain.ProductCard
		if err := rows.Scan(&c.ID, &c.Classification, &c.Category, &c.Brand, &c.Name, &c.Price, &c.Img, &c.IsAffiliated, &c.Reviews); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return cards, nil
}

// Filter возвращает товары, удовлетворяющие всем предикатам, по возрастанию id.
// MissingEmbedding проверяется после декодирования: нечитаемый текст тоже считается отсутствием.
func (p *ProductRepo) Filter(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	where, args := buildWhere(filter)
	rows, err := p.conn(ctx).QueryContext(ctx, `SELECT `+productColumns+` FROM products`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		product, err := p.scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if filter.MissingEmbedding && product.HasEmbeddings() {
			continue
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

func (p *ProductRepo) FilterIDs(ctx context.Context, filter domain.ProductFilter) ([]int64, error) {
	if filter.MissingEmbedding {
		products, err := p.Filter(ctx, filter)
		if err != nil {
			return nil, err
		}

		ids := make([]int64, len(products))
		for i, product := range products {
			ids[i] = product.ID
		}
		return ids, nil
	}

	where, args := buildWhere(filter)
	rows, err := p.conn(ctx).QueryContext(ctx, `SELECT id FROM products`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return ids, nil
}

func (p *ProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return n, nil
}

// SaveEmbeddings записывает оба эмбеддинга в текстовой форме.
func (p *ProductRepo) SaveEmbeddings(ctx context.Context, productID int64, name, description vector.Vector) error {
	nameText, err := vector.EncodeText(name)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	descriptionText, err := vector.EncodeText(description)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	res, err := p.conn(ctx).ExecContext(ctx, `
		UPDATE products
		SET name_embedding = ?, description_embedding = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nameText, descriptionText, productID,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return requireAffected(res, productID)
}

// Bump увеличивает версию эмбеддингов товара и возвращает новую.
func (p *ProductRepo) Bump(ctx context.Context, productID int64, model string) (*domain.ProductEmbeddingVersion, error) {
	version := &domain.ProductEmbeddingVersion{ProductID: productID, Model: model}

	err := p.conn(ctx).QueryRowContext(ctx, `
		UPDATE products
		SET embedding_version = embedding_version + 1, embedding_model = ?
		WHERE id = ?
		RETURNING embedding_version`,
		model, productID,
	).Scan(&version.EmbeddingVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return version, nil
}

// Upsert создаёт товар или обновляет его атрибуты по id. Эмбеддинги не затрагиваются.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) (*usecase.UpsertProductRes, error) {
	var exists bool
	if err := p.conn(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, product.ID).Scan(&exists); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	_, err := p.conn(ctx).ExecContext(ctx, `
		INSERT INTO products (id, classification, category, brand, name, price, img, if_affiliated, reviews)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			classification = excluded.classification,
			category = excluded.category,
			brand = excluded.brand,
			name = excluded.name,
			price = excluded.price,
			img = excluded.img,
			if_affiliated = excluded.if_affiliated,
			reviews = excluded.reviews,
			updated_at = CURRENT_TIMESTAMP`,
		product.ID, product.Classification, product.Category, product.Brand, product.Name,
		product.Price, product.Img, product.IsAffiliated, product.Reviews,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return usecase.NewUpsertProductRes(product, !exists), nil
}

func (p *ProductRepo) Truncate(ctx context.Context) error {
	if _, err := p.conn(ctx).ExecContext(ctx, `DELETE FROM products`); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProduct читает строку товара. Повреждённый эмбеддинг логируется и считается отсутствующим.
func (p *ProductRepo) scanProduct(row scanner) (*domain.Product, error) {
	var (
		product         domain.Product
		nameText        sql.NullString
		descriptionText sql.NullString
	)

	err := row.Scan(
		&product.ID, &product.Classification, &product.Category, &product.Brand, &product.Name,
		&product.Price, &product.Img, &product.IsAffiliated, &product.Reviews,
		&nameText, &descriptionText, &product.EmbeddingVersion,
	)
	if err != nil {
		return nil, err
	}

	product.NameEmbedding = p.decode(product.ID, "name_embedding", nameText)
	product.DescriptionEmbedding = p.decode(product.ID, "description_embedding", descriptionText)

	return &product, nil
}

func (p *ProductRepo) decode(productID int64, column string, text sql.NullString) vector.Vector {
	if !text.Valid {
		return nil
	}

	v, err := vector.DecodeText(text.String)
	if err != nil {
		p.logger.Warnf("product %d: %s is unreadable, treating as missing: %v", productID, column, err)
		return nil
	}

	return v
}

// buildWhere собирает условие WHERE с плейсхолдерами "?". MissingEmbedding сюда не входит,
// его отбирает Filter.
func buildWhere(filter domain.ProductFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if len(filter.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	if len(filter.ExcludeIDs) > 0 {
		clauses = append(clauses, "id NOT IN ("+placeholders(len(filter.ExcludeIDs))+")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	if len(filter.Categories) > 0 {
		clauses = append(clauses, "category IN ("+placeholders(len(filter.Categories))+")")
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}

	if filter.AffiliatedOnly {
		clauses = append(clauses, "if_affiliated = 1")
	}

	if filter.HasEmbedding {
		clauses = append(clauses, "name_embedding IS NOT NULL")
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func requireAffected(res sql.Result, productID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if n == 0 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %d", e.ErrProductNotFound, productID))
	}

	return nil
}
