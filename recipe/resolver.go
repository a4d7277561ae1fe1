/*
resolver.go - Max-producible-batches computation

PURPOSE:
  Answers "how many batches of this recipe can I make right now, and what
  runs out first?". For each ingredient the producible count is
  floor(stock / perBatchQuantity); the recipe's capacity is the minimum
  across ingredients, and the limiting item is the first ingredient (in
  recipe order) achieving that minimum.

  Pure and read-only: never mutates state, and the reorder point plays no
  role in producibility.
*/
package recipe

import (
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

// StockFunc reports an item's current quantity.
type StockFunc func(ledger.ItemID) (decimal.Decimal, error)

// Capacity is the result of a max-batches query.
type Capacity struct {
	Count          int64
	LimitingItemID ledger.ItemID
}

// MaxBatches computes the producible batch count for a recipe from current
// stock. Returns ErrNoIngredients for an empty recipe.
func MaxBatches(r Recipe, stock StockFunc) (Capacity, error) {
	if len(r.Ingredients) == 0 {
		return Capacity{}, ErrNoIngredients
	}

	var (
		best     int64
		limiting ledger.ItemID
		first    = true
	)
	for _, ing := range r.Ingredients {
		available, err := stock(ing.ItemID)
		if err != nil {
			return Capacity{}, err
		}
		count := int64(0)
		if available.IsPositive() {
			count = available.Div(ing.Quantity).Floor().IntPart()
		}
		if first || count < best {
			best = count
			limiting = ing.ItemID
			first = false
		}
	}
	return Capacity{Count: best, LimitingItemID: limiting}, nil
}
