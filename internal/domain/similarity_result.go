package domain

import "math"

// SimilarityResult — элемент ранжированной выдачи. Не сохраняется, пересчитывается на каждый запрос.
type SimilarityResult struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Brand           string  `json:"brand"`
	Price           int64   `json:"price"`
	IsAffiliated    bool    `json:"if_affiliated"`
	Img             string  `json:"img"`
	Category        string  `json:"category"`
	SimilarityScore float64 `json:"similarity_score"` // в диапазоне [0, 1]
}

func NewSimilarityResult(card ProductCard, score float64) SimilarityResult {
	return SimilarityResult{
		ID:              card.ID,
		Name:            card.Name,
		Brand:           card.Brand,
		Price:           card.Price,
		IsAffiliated:    card.IsAffiliated,
		Img:             card.Img,
		Category:        card.Category,
		SimilarityScore: ClampScore(score),
	}
}

// ClampScore приводит счёт к диапазону [0, 1].
func ClampScore(score float64) float64 {
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	if score > 1 {
		return 1
	}

	return score
}
