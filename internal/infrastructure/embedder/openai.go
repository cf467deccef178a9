// Package embedder — клиенты сервиса «текст → вектор»: OpenAI-совместимый API и
// детерминированный локальный хеш.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient запрашивает эмбеддинги у OpenAI-совместимого API.
// Повторы SDK отключены: ими управляет ResilientClient.
type OpenAIClient struct {
	client     openai.Client
	dimensions int
}

func NewOpenAIClient(c *cfg.EmbeddingCfg) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithMaxRetries(0),
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		dimensions: c.Dimensions,
	}
}

func (o *OpenAIClient) CreateEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if o.dimensions > 0 {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Data) == 0 {
		return nil, Permanent(e.ErrVectorEmbeddingEmpty)
	}

	raw := resp.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, f := range raw {
		out[i] = float32(f)
	}

	return out, nil
}

// classify помечает ошибки клиента (4xx, кроме 408 и 429) как постоянные.
func classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return fmt.Errorf("embedding api status %d: %w", code, err)
	default:
		return Permanent(fmt.Errorf("embedding api status %d: %w", code, err))
	}
}
