package qdrant

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantName — имя бэкенда в логах и метриках.
const QdrantName = "qdrant"

// EmbeddingRepo хранит эмбеддинги имён товаров в коллекции Qdrant.
// Служит и поисковым бэкендом, и индексом, который синхронизирует задача эмбеддингов.
type EmbeddingRepo struct {
	client   *qdrant.Client
	cfg      *cfg.QdrantCfg
	distance qdrant.Distance
}

func NewEmbeddingRepo(client *qdrant.Client, qdrantCfg *cfg.QdrantCfg, distance string) *EmbeddingRepo {
	d := qdrant.Distance_Cosine
	if distance == cfg.DistanceL2 {
		d = qdrant.Distance_Euclid
	}

	return &EmbeddingRepo{
		client:   client,
		cfg:      qdrantCfg,
		distance: d,
	}
}

func (q *EmbeddingRepo) Name() string {
	return QdrantName
}

// EnsureCollection создаёт коллекцию, если её ещё нет.
func (q *EmbeddingRepo) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.QdrantCollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.cfg.QdrantCollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.cfg.VectorSize,
				Distance: q.distance,
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	return nil
}

// Available проверяет соединение и наличие коллекции.
func (q *EmbeddingRepo) Available(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrBackendUnavailable, err))
	}

	if err := q.EnsureCollection(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Upsert сохраняет или обновляет точки. Идентификатор точки равен id товара.
func (q *EmbeddingRepo) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	reqPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		if !point.Vector.Valid() {
			continue
		}

		reqPoints = append(reqPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(point.ProductID)),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(point.Payload),
		})
	}

	if len(reqPoints) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         reqPoints,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Reset удаляет коллекцию и создаёт её заново.
func (q *EmbeddingRepo) Reset(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.cfg.QdrantCollectionName); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := q.EnsureCollection(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search ищет ближайшие точки с теми же фильтрами, что и остальные бэкенды.
// Карточки товаров собираются из payload точки.
func (q *EmbeddingRepo) Search(ctx context.Context, query vector.Vector, req *usecase.BackendQuery) ([]domain.SimilarityResult, error) {
	if req.Limit <= 0 {
		return []domain.SimilarityResult{}, nil
	}

	if !query.Valid() {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrVectorEmbeddingEmpty)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(query...),
		Filter:         NewFilter(req),
		Limit:          qdrant.PtrOf(uint64(req.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	results := make([]domain.SimilarityResult, 0, len(points))
	for _, p := range points {
		results = append(results, domain.NewSimilarityResult(cardFromPayload(p), q.score(p.GetScore())))
	}

	return results, nil
}

// score приводит оценку Qdrant к шкале [0, 1]: косинус как есть, для евклида 1 - расстояние.
func (q *EmbeddingRepo) score(raw float32) float64 {
	if q.distance == qdrant.Distance_Euclid {
		return 1 - float64(raw)
	}

	return float64(raw)
}

// NewFilter переводит фильтры запроса в условия Qdrant. nil — без фильтра.
func NewFilter(req *usecase.BackendQuery) *qdrant.Filter {
	var must, mustNot []*qdrant.Condition

	if req.AffiliatedOnly {
		must = append(must, qdrant.NewMatchBool("if_affiliated", true))
	}

	if len(req.Categories) > 0 {
		must = append(must, qdrant.NewMatchKeywords("category", req.Categories...))
	}

	if len(req.ExcludeIDs) > 0 {
		ids := make([]*qdrant.PointId, 0, len(req.ExcludeIDs))
		for _, id := range req.ExcludeIDs {
			ids = append(ids, qdrant.NewIDNum(uint64(id)))
		}
		mustNot = append(mustNot, qdrant.NewHasID(ids...))
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}

	return &qdrant.Filter{Must: must, MustNot: mustNot}
}

func cardFromPayload(p *qdrant.ScoredPoint) domain.ProductCard {
	payload := p.GetPayload()

	return domain.ProductCard{
		ID:           int64(p.GetId().GetNum()),
		Category:     payload["category"].GetStringValue(),
		Brand:        payload["brand"].GetStringValue(),
		Name:         payload["name"].GetStringValue(),
		Price:        payload["price"].GetIntegerValue(),
		Img:          payload["img"].GetStringValue(),
		IsAffiliated: payload["if_affiliated"].GetBoolValue(),
	}
}
