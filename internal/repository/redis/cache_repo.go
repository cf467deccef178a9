package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-recommender/pkg/clients"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/jitter"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/jimlawless/whereami"
)

// cardKeyPrefix меняется вместе с форматом ProductCardRedisModel
const cardKeyPrefix = "card:v1:"

// ttlJitter разносит истечение карточек, записанных одним пайплайном
const ttlJitter = 0.2

// CacheRepo хранит карточки товаров (без векторов) для рекомендаций.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductCardConverter
	ttl    time.Duration
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductCardConverter,
	redisCfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		ttl:    redisCfg.ProductTTL,
		logger: logger,
	}
}

// GetProducts возвращает найденные карточки. Повреждённые и чужие записи считаются промахом,
// чужие удаляются.
func (r *CacheRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.ProductCard, error) {
	if len(ids) == 0 {
		return map[int64]domain.ProductCard{}, nil
	}

	keys := cardKeys(ids)

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		result = make(map[int64]domain.ProductCard, len(values))
		stale  []string
	)
	for i, val := range values {
		card, ok := r.decode(val, keys[i], ids[i])
		switch {
		case ok:
			result[ids[i]] = card
		case val != nil:
			stale = append(stale, keys[i])
		}
	}

	metrics.ProductCardCache.WithLabelValues("hit").Add(float64(len(result)))
	metrics.ProductCardCache.WithLabelValues("miss").Add(float64(len(ids) - len(result)))

	if len(stale) > 0 {
		if err := r.client.Client.Del(ctx, stale...).Err(); err != nil {
			r.logger.Warnf("drop stale cards: %v", e.Wrap(whereami.WhereAmI(), err))
		}
	}

	return result, nil
}

func (r *CacheRepo) decode(val any, key string, id int64) (domain.ProductCard, bool) {
	data, err := redisValueToBytes(val, key)
	if err != nil {
		r.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		return domain.ProductCard{}, false
	}
	if data == nil {
		return domain.ProductCard{}, false
	}

	model, err := unmarshalCard(data)
	if err != nil {
		r.logger.Warnf("card %s: %v", key, e.Wrap(whereami.WhereAmI(), err))
		return domain.ProductCard{}, false
	}

	if model.ID != id {
		r.logger.Warnf("card %s holds product %d", key, model.ID)
		return domain.ProductCard{}, false
	}

	return *r.conv.ToDomain(model), true
}

// SetProducts пишет карточки одним пайплайном. Ошибки только логируются:
// кэш не должен ронять рекомендации.
func (r *CacheRepo) SetProducts(ctx context.Context, cards []domain.ProductCard) error {
	if len(cards) == 0 {
		return nil
	}

	pipeline := r.client.Client.Pipeline()
	for _, model := range r.conv.ToArrRedisModel(cards) {
		data, err := json.Marshal(model)
		if err != nil {
			r.logger.Warnf("marshal card %d: %v", model.ID, e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		pipeline.Set(ctx, cardKey(model.ID), data, jitter.Duration(r.ttl, ttlJitter))
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		r.logger.Warnf("cache cards: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

func (r *CacheRepo) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := r.client.Client.Del(ctx, cardKeys(ids)...).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func unmarshalCard(data []byte) (*converter.ProductCardRedisModel, error) {
	var model converter.ProductCardRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return &model, nil
}

func cardKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cardKey(id)
	}

	return keys
}

func cardKey(id int64) string {
	return fmt.Sprintf("%s%d", cardKeyPrefix, id)
}

// redisValueToBytes принимает string и []byte, nil означает промах.
func redisValueToBytes(val any, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected redis value type for key %s: %T", key, val)
	}
}
