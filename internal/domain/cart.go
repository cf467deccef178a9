package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DRSN-tech/shop-recommender/pkg/e"
)

// Cart — корзина: идентификатор товара → положительное количество.
type Cart map[int64]int

// ParseCart приводит корзину в форме сессии (строковые ключи) к типизированной.
// Все проверки выполняются здесь один раз.
func ParseCart(raw map[string]int) (Cart, error) {
	cart := make(Cart, len(raw))
	for key, qty := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", e.ErrInvalidProductID, key)
		}

		if qty <= 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", e.ErrInvalidQuantity, id, qty)
		}

		cart[id] += qty
	}

	return cart, nil
}

// IDs возвращает идентификаторы товаров корзины по возрастанию.
func (c Cart) IDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Quantity возвращает суммарное количество единиц товара в корзине.
func (c Cart) Quantity() int {
	total := 0
	for _, q := range c {
		total += q
	}

	return total
}
