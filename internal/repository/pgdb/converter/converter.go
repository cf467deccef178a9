package converter

import (
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/vector"
	"github.com/pgvector/pgvector-go"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func NewProductConverter() ProductConverter {
	return ProductConverter{}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}

	return &domain.Product{
		ID:                   model.ID,
		Classification:       model.Classification,
		Category:             model.Category,
		Brand:                model.Brand,
		Name:                 model.Name,
		Price:                model.Price,
		Img:                  model.Img,
		IsAffiliated:         model.IfAffiliated,
		Reviews:              model.Reviews,
		NameEmbedding:        fromNative(model.NameEmbedding),
		DescriptionEmbedding: fromNative(model.DescriptionEmbedding),
		EmbeddingVersion:     model.EmbeddingVersion,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}

	return &ProductModel{
		ID:                   entity.ID,
		Classification:       entity.Classification,
		Category:             entity.Category,
		Brand:                entity.Brand,
		Name:                 entity.Name,
		Price:                entity.Price,
		Img:                  entity.Img,
		IfAffiliated:         entity.IsAffiliated,
		Reviews:              entity.Reviews,
		NameEmbedding:        ToNative(entity.NameEmbedding),
		DescriptionEmbedding: ToNative(entity.DescriptionEmbedding),
		EmbeddingVersion:     entity.EmbeddingVersion,
		CreatedAt:            entity.CreatedAt,
		UpdatedAt:            entity.UpdatedAt,
	}
}

// ToArrEntity преобразует выборку моделей.
func (c ProductConverter) ToArrEntity(models []*ProductModel) []*domain.Product {
	products := make([]*domain.Product, 0, len(models))
	for _, m := range models {
		products = append(products, c.ToEntity(m))
	}

	return products
}

// ProductEmbeddingVersionConverter преобразует сущности ProductEmbeddingVersion между domain и моделью PostgreSQL.
type ProductEmbeddingVersionConverter struct{}

func NewProductEmbeddingVersionConverter() ProductEmbeddingVersionConverter {
	return ProductEmbeddingVersionConverter{}
}

func (ProductEmbeddingVersionConverter) ToEntity(model *ProductEmbeddingVersionModel) *domain.ProductEmbeddingVersion {
	if model == nil {
		return nil
	}

	return &domain.ProductEmbeddingVersion{
		ID:               model.ID,
		ProductID:        model.ProductID,
		EmbeddingVersion: model.EmbeddingVersion,
		Model:            model.Model,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ToNative переводит вектор в значение колонки vector. Пустой вектор пишется как NULL.
func ToNative(v vector.Vector) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}

	native := vector.ToNative(v)
	return &native
}

func fromNative(p *pgvector.Vector) vector.Vector {
	if p == nil {
		return nil
	}

	return vector.FromNative(*p)
}
