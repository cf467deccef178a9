// Package jitter добавляет случайность в интервалы повторов, чтобы клиенты
// не били во внешний сервис синхронно после общего сбоя.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает d с джиттером в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	randMutex.Lock()
	jitter := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()
	return d + time.Duration(jitter)
}

// ExponentialBackoff вычисляет экспоненциальную задержку с джиттером.
// attempt нумеруется с нуля, рост задержки ограничен max.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}

// Backoff — политика повторов: не более MaxRetries повторов после первой попытки.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
	Factor     float64
}

// Retry вызывает fn, пока она не вернёт nil, не исчерпаются повторы или retryable не откажет.
// Возвращает последнюю ошибку fn либо ошибку контекста, если он отменён во время ожидания.
func (b Backoff) Retry(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt == b.MaxRetries || (retryable != nil && !retryable(err)) {
			return err
		}

		timer := time.NewTimer(ExponentialBackoff(b.Base, b.Max, attempt, b.Factor))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}
