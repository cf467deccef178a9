package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/shop-recommender/pkg/clients"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// releaseScript снимает захват, только если он всё ещё принадлежит владельцу токена.
var releaseScript = r.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepo выдаёт захваты товаров через SET NX с TTL.
// Несколько запусков задачи эмбеддингов не обрабатывают один товар одновременно.
type LockRepo struct {
	client *clients.RedisClient
}

func NewLockRepo(client *clients.RedisClient) *LockRepo {
	return &LockRepo{client: client}
}

func (l *LockRepo) Acquire(ctx context.Context, productID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.Client.SetNX(ctx, lockKey(productID), token, ttl).Result()
	if err != nil {
		return "", false, e.Wrap(whereami.WhereAmI(), err)
	}

	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (l *LockRepo) Release(ctx context.Context, productID int64, token string) error {
	if err := releaseScript.Run(ctx, l.client.Client, []string{lockKey(productID)}, token).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func lockKey(id int64) string {
	return fmt.Sprintf("embedding:lock:%d", id)
}
