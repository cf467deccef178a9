package domain

import (
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/vector"
)

// Payload описывает дополнительную информацию точки векторного индекса
type Payload map[string]any

// IndexPoint — эмбеддинг имени товара в векторном индексе (Qdrant).
type IndexPoint struct {
	ProductID int64
	Vector    vector.Vector
	Payload   Payload
}

func NewIndexPoint(product *Product) *IndexPoint {
	return &IndexPoint{
		ProductID: product.ID,
		Vector:    product.NameEmbedding,
		Payload:   NewPayload(product),
	}
}

// NewPayload собирает поля, по которым индекс фильтрует выдачу, и поля карточки для ответа.
func NewPayload(product *Product) Payload {
	return Payload{
		"product_id":        product.ID,
		"category":          product.Category,
		"if_affiliated":     product.IsAffiliated,
		"name":              product.Name,
		"brand":             product.Brand,
		"price":             product.Price,
		"img":               product.Img,
		"embedding_version": int64(product.EmbeddingVersion),
		"updated_at":        time.Now().UTC().UnixNano(),
	}
}

// EmbeddingsUpdated — событие об обновлении эмбеддингов товара.
type EmbeddingsUpdated struct {
	EventID   string
	ProductID int64
	Version   int32
	Model     string
	Dimension int
	CreatedAt time.Time
}
