package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/jitter"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const breakerName = "embedding-provider"

// PermanentError — ответ сервиса, который не исправится повтором (например, 400).
// Такие ошибки не повторяются и не размыкают цепь.
type PermanentError struct {
	Err error
}

func (p *PermanentError) Error() string { return p.Err.Error() }

func (p *PermanentError) Unwrap() error { return p.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ResilientClient добавляет к клиенту ограничение частоты, повторы с jitter и предохранитель.
// Таймаут применяется к каждой попытке отдельно.
type ResilientClient struct {
	next    usecase.EmbeddingClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]float32]
	backoff jitter.Backoff
	timeout time.Duration
	logger  logger.Logger
}

func NewResilientClient(next usecase.EmbeddingClient, c *cfg.EmbeddingCfg, log logger.Logger) *ResilientClient {
	limit := rate.Inf
	if c.RPS > 0 {
		limit = rate.Limit(c.RPS)
	}

	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := c.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     c.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &ResilientClient{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		backoff: jitter.Backoff{
			Base:       c.RetryBase,
			Max:        c.RetryMax,
			MaxRetries: c.MaxRetries,
			Factor:     jitter.DefaultJitter,
		},
		timeout: c.Timeout,
		logger:  log,
	}
}

func (r *ResilientClient) CreateEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	const op = "ResilientClient.CreateEmbedding"

	var (
		result  []float32
		attempt int
	)
	err := r.backoff.Retry(ctx, retryable, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			r.logger.Debugf("embedding request retry, attempt %d", attempt)
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		v, err := r.breaker.Execute(func() ([]float32, error) {
			return r.call(ctx, model, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%w: %w", e.ErrCircuitOpen, err)
			}
			return err
		}

		result = v
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return result, nil
}

func (r *ResilientClient) call(ctx context.Context, model, text string) ([]float32, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	return r.next.CreateEmbedding(ctx, model, text)
}

// State возвращает текущее состояние предохранителя.
func (r *ResilientClient) State() gobreaker.State {
	return r.breaker.State()
}

func retryable(err error) bool {
	switch {
	case isPermanent(err):
		return false
	case errors.Is(err, e.ErrCircuitOpen):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
