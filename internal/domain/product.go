package domain

import (
	"strings"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/vector"
)

// Product описывает товар каталога вместе с его эмбеддингами.
type Product struct {
	ID             int64
	Classification string // Верхнеуровневый раздел каталога
	Category       string
	Brand          string
	Name           string
	Price          int64 // Цена в целых единицах валюты
	Img            string
	IsAffiliated   bool
	Reviews        string // JSON-массив отзывов, может быть пустым или повреждённым

	// nil означает, что эмбеддинг ещё не сгенерирован
	NameEmbedding        vector.Vector
	DescriptionEmbedding vector.Vector
	EmbeddingVersion     int32

	CreatedAt time.Time
	UpdatedAt *time.Time
}

func NewProduct(
	id int64,
	classification, category, brand, name string,
	price int64,
	img string,
	isAffiliated bool,
	reviews string,
) *Product {
	return &Product{
		ID:             id,
		Classification: classification,
		Category:       category,
		Brand:          brand,
		Name:           name,
		Price:          price,
		Img:            img,
		IsAffiliated:   isAffiliated,
		Reviews:        reviews,
	}
}

// IdentityText — текст для эмбеддинга имени: "name brand category".
func (p *Product) IdentityText() string {
	return strings.Join([]string{p.Name, p.Brand, p.Category}, " ")
}

// ReviewComments возвращает комментарии первых limit отзывов.
func (p *Product) ReviewComments(limit int) []string {
	reviews := p.ReviewsList()
	if limit >= 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}

	comments := make([]string, 0, len(reviews))
	for _, r := range reviews {
		comments = append(comments, r.Comment)
	}

	return comments
}

// ReviewsList разбирает блок отзывов. Ошибка разбора даёт пустой список.
func (p *Product) ReviewsList() []Review {
	return ParseReviews(p.Reviews)
}

// HasEmbeddings сообщает, что оба эмбеддинга уже сгенерированы.
func (p *Product) HasEmbeddings() bool {
	return p.NameEmbedding.Valid() && p.DescriptionEmbedding.Valid()
}

// Card возвращает карточку товара без векторов.
func (p *Product) Card() ProductCard {
	return ProductCard{
		ID:             p.ID,
		Classification: p.Classification,
		Category:       p.Category,
		Brand:          p.Brand,
		Name:           p.Name,
		Price:          p.Price,
		Img:            p.Img,
		IsAffiliated:   p.IsAffiliated,
		Reviews:        p.Reviews,
	}
}

// ProductCard — товар без эмбеддингов. Именно карточки кэшируются в Redis.
type ProductCard struct {
	ID             int64
	Classification string
	Category       string
	Brand          string
	Name           string
	Price          int64
	Img            string
	IsAffiliated   bool
	Reviews        string
}

// Product восстанавливает товар из карточки. Эмбеддинги остаются пустыми.
func (c ProductCard) Product() *Product {
	return NewProduct(c.ID, c.Classification, c.Category, c.Brand, c.Name, c.Price, c.Img, c.IsAffiliated, c.Reviews)
}

// ProductFilter — предикаты выборки из каталога. Нулевое значение выбирает всё.
type ProductFilter struct {
	IDs              []int64
	ExcludeIDs       []int64
	Categories       []string
	AffiliatedOnly   bool
	MissingEmbedding bool // хотя бы один эмбеддинг отсутствует
	HasEmbedding     bool // эмбеддинг имени присутствует
}
