package domain

import "time"

// ProductEmbeddingVersion — счётчик перегенераций эмбеддингов товара.
type ProductEmbeddingVersion struct {
	ID               int64
	ProductID        int64
	EmbeddingVersion int32
	Model            string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
