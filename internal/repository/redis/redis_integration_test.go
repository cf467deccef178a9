//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-recommender/internal/testinfra"
	"github.com/DRSN-tech/shop-recommender/pkg/clients"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*clients.RedisClient, *cfg.RedisCfg) {
	t.Helper()

	redisCfg := &cfg.RedisCfg{
		Addr:        testinfra.StartRedis(t),
		DialTimeout: time.Second,
		Timeout:     time.Second,
		ProductTTL:  time.Minute,
	}

	client := clients.NewRedisClient(redisCfg)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()))

	return client, redisCfg
}

func TestCacheRepo(t *testing.T) {
	ctx := context.Background()
	client, redisCfg := newClient(t)
	repo := NewCacheRepo(client, converter.NewProductCardConverter(), redisCfg, logger.NewNop())

	cards := []domain.ProductCard{
		{ID: 1, Name: "Chips", Brand: "Crunch", Category: "snacks", Price: 120, IsAffiliated: true, Reviews: `[{"comment":"ok"}]`},
		{ID: 2, Name: "Cola", Brand: "Fizz", Category: "drinks", Price: 80},
	}
	require.NoError(t, repo.SetProducts(ctx, cards))

	got, err := repo.GetProducts(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]domain.ProductCard{1: cards[0], 2: cards[1]}, got)

	ttl, err := client.Client.TTL(ctx, cardKey(1)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute+12*time.Second)

	// Повреждённое значение считается промахом
	require.NoError(t, client.Client.Set(ctx, cardKey(4), "{broken", 0).Err())
	// Значение чужого товара удаляется
	require.NoError(t, client.Client.Set(ctx, cardKey(5), `{"id":6}`, 0).Err())

	got, err = repo.GetProducts(ctx, []int64{4, 5})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, client.Client.Exists(ctx, cardKey(5)).Val())

	require.NoError(t, repo.DeleteProducts(ctx, []int64{1}))
	got, err = repo.GetProducts(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, int64(2))
}

func TestLockRepo(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	locks := NewLockRepo(client)

	token, ok, err := locks.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locks.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Чужой токен не снимает захват
	require.NoError(t, locks.Release(ctx, 1, "someone-else"))
	_, ok, err = locks.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locks.Release(ctx, 1, token))
	_, ok, err = locks.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
