package converter

import "github.com/DRSN-tech/shop-recommender/internal/domain"

// ProductCardConverter преобразует карточки товаров между domain и моделью кэша.
type ProductCardConverter struct{}

func NewProductCardConverter() ProductCardConverter {
	return ProductCardConverter{}
}

func (ProductCardConverter) ToRedisModel(entity *domain.ProductCard) *ProductCardRedisModel {
	if entity == nil {
		return nil
	}

	return &ProductCardRedisModel{
		ID:             entity.ID,
		Classification: entity.Classification,
		Category:       entity.Category,
		Brand:          entity.Brand,
		Name:           entity.Name,
		Price:          entity.Price,
		Img:            entity.Img,
		IfAffiliated:   entity.IsAffiliated,
		Reviews:        entity.Reviews,
	}
}

func (ProductCardConverter) ToDomain(model *ProductCardRedisModel) *domain.ProductCard {
	if model == nil {
		return nil
	}

	return &domain.ProductCard{
		ID:             model.ID,
		Classification: model.Classification,
		Category:       model.Category,
		Brand:          model.Brand,
		Name:           model.Name,
		Price:          model.Price,
		Img:            model.Img,
		IsAffiliated:   model.IfAffiliated,
		Reviews:        model.Reviews,
	}
}

func (c ProductCardConverter) ToArrRedisModel(entities []domain.ProductCard) []ProductCardRedisModel {
	models := make([]ProductCardRedisModel, 0, len(entities))
	for i := range entities {
		models = append(models, *c.ToRedisModel(&entities[i]))
	}

	return models
}
