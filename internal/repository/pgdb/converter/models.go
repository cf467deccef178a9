package converter

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ProductModel представляет запись таблицы products в PostgreSQL.
// EmbeddingVersion берётся из product_embedding_version (0, если записи нет).
type ProductModel struct {
	ID                   int64            `db:"id"`
	Classification       string           `db:"classification"`
	Category             string           `db:"category"`
	Brand                string           `db:"brand"`
	Name                 string           `db:"name"`
	Price                int64            `db:"price"`
	Img                  string           `db:"img"`
	IfAffiliated         bool             `db:"if_affiliated"`
	Reviews              string           `db:"reviews"`
	NameEmbedding        *pgvector.Vector `db:"name_embedding"`
	DescriptionEmbedding *pgvector.Vector `db:"description_embedding"`
	EmbeddingVersion     int32            `db:"embedding_version"`
	CreatedAt            time.Time        `db:"created_at"`
	UpdatedAt            *time.Time       `db:"updated_at"`
}

// ProductEmbeddingVersionModel представляет запись таблицы product_embedding_version в PostgreSQL.
type ProductEmbeddingVersionModel struct {
	ID               int64      `db:"id"`
	ProductID        int64      `db:"product_id"`
	EmbeddingVersion int32      `db:"embedding_version"`
	Model            string     `db:"model"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        *time.Time `db:"updated_at"`
}
