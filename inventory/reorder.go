/*
reorder.go - Low-stock / out-of-stock projection

PURPOSE:
  Derives the dashboard's restocking signals from registry state:

    out of stock:  quantity <= 0
    low stock:     0 < quantity <= reorder point
    in stock:      quantity > reorder point

  Archived items are excluded from all three sets. There is no cached
  state and therefore no invalidation problem - catalogs run hundreds to
  low thousands of items, so recomputing per dashboard load is cheap.
*/
package inventory

// StockLevel classifies an item relative to its reorder point.
type StockLevel string

const (
	StockOut StockLevel = "out_of_stock"
	StockLow StockLevel = "low_stock"
	StockIn  StockLevel = "in_stock"
)

func classify(item Item) StockLevel {
	switch {
	case !item.CurrentQuantity.IsPositive():
		return StockOut
	case item.CurrentQuantity.LessThanOrEqual(item.ReorderPoint):
		return StockLow
	default:
		return StockIn
	}
}

// StockSnapshot partitions the active catalog by stock level.
type StockSnapshot struct {
	OutOfStock []Item
	LowStock   []Item
	InStock    []Item
}

// Snapshot recomputes the reorder sets on demand.
func (r *Registry) Snapshot() StockSnapshot {
	var snap StockSnapshot
	for _, item := range r.List(Filter{}) {
		switch classify(item) {
		case StockOut:
			snap.OutOfStock = append(snap.OutOfStock, item)
		case StockLow:
			snap.LowStock = append(snap.LowStock, item)
		default:
			snap.InStock = append(snap.InStock, item)
		}
	}
	return snap
}
