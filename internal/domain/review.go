package domain

import (
	"strings"

	"github.com/goccy/go-json"
)

// Review — отзыв из текстового блока товара.
type Review struct {
	Comment string `json:"comment"`
}

// ParseReviews разбирает JSON-массив отзывов. Пустой или повреждённый блок даёт пустой список.
func ParseReviews(blob string) []Review {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return []Review{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return []Review{}
	}

	reviews := make([]Review, 0, len(raw))
	for _, item := range raw {
		var r Review
		// Элемент без строкового comment считается отзывом с пустым комментарием
		if err := json.Unmarshal(item, &r); err != nil {
			r = Review{}
		}
		reviews = append(reviews, r)
	}

	return reviews
}
