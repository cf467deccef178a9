package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultClassification = "household"
	// syncChunk — сколько товаров за раз удаляется из кэша и переписывается в индексе
	syncChunk = 500
)

// Колонки CSV каталога. Флаг партнёрства исторически пишется с опечаткой.
var (
	colProductID      = "product_id"
	colClassification = "classification"
	colCategory       = "category"
	colBrand          = "brand"
	colName           = "name"
	colPrice          = "price"
	colImg            = "img"
	colAffiliated     = []string{"if_affilated", "if_affiliated"}
	colReviews        = "reviews"
)

// ImportUseCase загружает каталог из CSV. Ошибки отдельных строк логируются и не прерывают импорт.
type ImportUseCase struct {
	productRepo ProductRepository
	index       VectorIndex
	cacheRepo   CacheRepository
	source      CatalogSource
	logger      logger.Logger
}

func NewImportUC(
	productRepo ProductRepository,
	index VectorIndex,
	cacheRepo CacheRepository,
	source CatalogSource,
	logger logger.Logger,
) *ImportUseCase {
	return &ImportUseCase{
		productRepo: productRepo,
		index:       index,
		cacheRepo:   cacheRepo,
		source:      source,
		logger:      logger,
	}
}

// Import добавляет или обновляет товары по product_id. Существующие эмбеддинги сохраняются.
// С Truncate каталог и векторный индекс предварительно очищаются.
func (u *ImportUseCase) Import(ctx context.Context, req *ImportReq) (*ImportSummary, error) {
	const op = "ImportUseCase.Import"

	rc, err := u.source.Open(ctx, req.Location)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("read header: %w", err))
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Truncate {
		if err := u.productRepo.Truncate(ctx); err != nil {
			return nil, e.Wrap(op, err)
		}
		if err := u.index.Reset(ctx); err != nil {
			u.logger.Warnf("failed to reset vector index: %v", e.Wrap(op, err))
		}
		u.logger.Warnf("catalog truncated")
	}

	summary := &ImportSummary{}
	var touched, updated []int64
	for {
		if err := ctx.Err(); err != nil {
			return summary, e.Wrap(op, err)
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				u.logger.Errorf(err, "line %d: malformed csv row", parseErr.StartLine)
				summary.Failed++
				continue
			}
			return summary, e.Wrap(op, err)
		}

		line, _ := reader.FieldPos(0)

		product, err := columns.product(record)
		if err != nil {
			u.logger.Errorf(err, "line %d: row rejected", line)
			summary.Failed++
			continue
		}

		res, err := u.productRepo.Upsert(ctx, product)
		if err != nil {
			u.logger.Errorf(err, "line %d: failed to save product %d", line, product.ID)
			summary.Failed++
			continue
		}

		if res.Created {
			summary.Created++
		} else {
			summary.Updated++
			updated = append(updated, product.ID)
		}
		touched = append(touched, product.ID)
	}

	u.syncIndex(ctx, updated)
	u.invalidate(ctx, touched)

	u.logger.Infof("import finished: created=%d updated=%d failed=%d", summary.Created, summary.Updated, summary.Failed)
	return summary, nil
}

// syncIndex переписывает точки обновлённых товаров, у которых уже есть эмбеддинг:
// фильтры и карточки индекса берутся из payload.
func (u *ImportUseCase) syncIndex(ctx context.Context, ids []int64) {
	const op = "ImportUseCase.syncIndex"

	for start := 0; start < len(ids); start += syncChunk {
		end := min(start+syncChunk, len(ids))

		products, err := u.productRepo.GetByIDs(ctx, ids[start:end])
		if err != nil {
			u.logger.Warnf("failed to load updated products: %v", e.Wrap(op, err))
			continue
		}

		points := make([]domain.IndexPoint, 0, len(products))
		for _, product := range products {
			if product.NameEmbedding.Valid() {
				points = append(points, *domain.NewIndexPoint(product))
			}
		}
		if len(points) == 0 {
			continue
		}

		if err := u.index.Upsert(ctx, points); err != nil {
			u.logger.Warnf("failed to sync vector index: %v", e.Wrap(op, err))
		}
	}
}

func (u *ImportUseCase) invalidate(ctx context.Context, ids []int64) {
	const op = "ImportUseCase.invalidate"

	for start := 0; start < len(ids); start += syncChunk {
		end := min(start+syncChunk, len(ids))
		if err := u.cacheRepo.DeleteProducts(ctx, ids[start:end]); err != nil {
			u.logger.Warnf("Failed to delete products: %v", e.Wrap(op, err))
		}
	}
}

// csvColumns — позиция колонки в заголовке по её имени в нижнем регистре.
type csvColumns map[string]int

func indexColumns(header []string) (csvColumns, error) {
	cols := make(csvColumns, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := cols[h]; !ok {
			cols[h] = i
		}
	}

	for _, required := range []string{colProductID, colName} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", e.ErrMissingColumn, required)
		}
	}

	return cols, nil
}

func (c csvColumns) get(record []string, names ...string) string {
	for _, name := range names {
		if i, ok := c[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
	}

	return ""
}

// product разбирает строку CSV. Цена может быть дробной и отбрасывается до целого.
func (c csvColumns) product(record []string) (*domain.Product, error) {
	rawID := c.get(record, colProductID)
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidProductID, rawID)
	}

	price := int64(0)
	if rawPrice := c.get(record, colPrice); rawPrice != "" {
		d, err := decimal.NewFromString(rawPrice)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("%w: %q", e.ErrInvalidPrice, rawPrice)
		}
		price = d.IntPart()
	}

	classification := c.get(record, colClassification)
	if classification == "" {
		classification = defaultClassification
	}

	return domain.NewProduct(
		id,
		classification,
		c.get(record, colCategory),
		c.get(record, colBrand),
		c.get(record, colName),
		price,
		c.get(record, colImg),
		strings.EqualFold(c.get(record, colAffiliated...), "TRUE"),
		c.get(record, colReviews),
	), nil
}
