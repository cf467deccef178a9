package embedder

import (
	"fmt"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

// NewClient собирает клиент выбранного провайдера. OpenAI оборачивается в ResilientClient.
func NewClient(c *cfg.EmbeddingCfg, log logger.Logger) (usecase.EmbeddingClient, error) {
	switch c.Provider {
	case cfg.ProviderHash:
		return NewHashClient(c.Dimensions), nil
	case cfg.ProviderOpenAI:
		return NewResilientClient(NewOpenAIClient(c), c, log), nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", e.ErrIncorrectEnvVariable, c.Provider)
	}
}

// CallBudget — предельное время одного Embed с учётом всех попыток и пауз между ними.
func CallBudget(c *cfg.EmbeddingCfg) time.Duration {
	if c.Timeout <= 0 {
		return 0
	}

	attempts := time.Duration(c.MaxRetries + 1)
	return c.Timeout*attempts + c.RetryMax*time.Duration(c.MaxRetries)
}
