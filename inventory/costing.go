/*
costing.go - Weighted-average cost engine

PURPOSE:
  Recomputes an item's per-unit cost on every purchase receipt as the
  quantity-weighted mean of old stock and the incoming lot:

      newCost = (oldQty*oldCost + qty*unitCost) / (oldQty + qty)

  evaluated BEFORE the ledger applies the quantity increase, i.e. with the
  pre-purchase oldQty. Consumption (batch usage, sales) never alters the
  average.

EDGE CASE:
  oldQty == 0 (item was out of stock) => newCost = unitCost exactly.
  Defined behavior, not an error - and it avoids the division by zero.

PRECISION:
  Costs are decimal and rounded to ledger.CostPrecision (4) digits, the
  `$X.XXXX per unit` convention of purchase entry. Splitting a receipt into
  two lines at the same unit cost lands on the same final average.
*/
package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

// WeightedAverage returns the new per-unit cost after receiving qty units
// at unitCost on top of oldQty units carried at oldCost.
func WeightedAverage(oldQty, oldCost, qty, unitCost decimal.Decimal) decimal.Decimal {
	if !oldQty.IsPositive() {
		return ledger.RoundCost(unitCost)
	}
	oldValue := oldQty.Mul(oldCost)
	newValue := qty.Mul(unitCost)
	return ledger.RoundCost(oldValue.Add(newValue).Div(oldQty.Add(qty)))
}
