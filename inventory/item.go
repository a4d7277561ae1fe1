/*
Package inventory provides the item registry, the weighted-average costing
engine, and the reorder monitor.

PURPOSE:
  The Registry is the canonical store of inventory items. An item's
  CurrentQuantity and WeightedAverageCost are cached projections: quantity
  is written only when the ledger accepts a transaction (books.go), cost
  only when the costing engine processes a purchase line (costing.go).
  Nothing outside this package can mutate either field - the enforcement is
  the API surface, not convention.

KEY CONCEPTS IN THIS FILE (item.go):
  - Item: identity, SKU, unit, cached quantity/cost, reorder point
  - Registry: indexed, SKU-unique item store with soft deletes

ARCHIVING:
  Archive is a soft delete. Archived items disappear from resolver and
  monitor views but their ledger history remains for audit.

SEE ALSO:
  - books.go: The only quantity write path
  - costing.go: The only cost write path
  - reorder.go: Stock status projection
*/
package inventory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

// =============================================================================
// ITEM
// =============================================================================

type ItemType string

const (
	TypeIngredient ItemType = "ingredient"
	TypePackaging  ItemType = "packaging"
	TypeProduct    ItemType = "product"
)

func (t ItemType) Valid() bool {
	return t == TypeIngredient || t == TypePackaging || t == TypeProduct
}

type Item struct {
	ID                  ledger.ItemID
	SKU                 string
	Name                string
	Type                ItemType
	InventoryUnit       string // semantic unit of measure: lbs, pcs, jars...
	CurrentQuantity     decimal.Decimal
	WeightedAverageCost decimal.Decimal
	ReorderPoint        decimal.Decimal
	LastCountedDate     time.Time
	IsArchived          bool
	CreatedAt           time.Time
}

// Value returns the item's on-hand value (quantity x weighted-average cost).
func (i Item) Value() decimal.Decimal {
	return i.CurrentQuantity.Mul(i.WeightedAverageCost)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the indexed item store. All lookups are by map, not linear
// scan; the SKU index enforces create-time uniqueness.
type Registry struct {
	mu    sync.RWMutex
	items map[ledger.ItemID]*Item
	bySKU map[string]ledger.ItemID
}

func NewRegistry() *Registry {
	return &Registry{
		items: make(map[ledger.ItemID]*Item),
		bySKU: make(map[string]ledger.ItemID),
	}
}

// Create registers a new item. The quantity and cost fields of the input
// are ignored: items start at zero and gain stock through transactions.
func (r *Registry) Create(item Item) (ledger.ItemID, error) {
	if item.Name == "" {
		return "", &ledger.ValidationError{Field: "name", Message: "name is required"}
	}
	if item.SKU == "" {
		return "", &ledger.ValidationError{Field: "sku", Message: "SKU is required"}
	}
	if !item.Type.Valid() {
		return "", &ledger.ValidationError{Field: "type", Message: "type must be ingredient, packaging, or product"}
	}
	if item.InventoryUnit == "" {
		return "", &ledger.ValidationError{Field: "inventoryUnit", Message: "inventory unit is required"}
	}
	if item.ReorderPoint.IsNegative() {
		return "", &ledger.ValidationError{Field: "reorderPoint", Message: "reorder point must be 0 or greater"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bySKU[item.SKU]; ok {
		return "", &ledger.DuplicateSKUError{SKU: item.SKU, ExistingID: existing}
	}

	if item.ID == "" {
		item.ID = ledger.ItemID("item-" + uuid.NewString())
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.CurrentQuantity = decimal.Zero
	item.WeightedAverageCost = decimal.Zero
	item.IsArchived = false

	stored := item
	r.items[item.ID] = &stored
	r.bySKU[item.SKU] = item.ID
	return item.ID, nil
}

// Get returns a copy of the item, archived or not.
func (r *Registry) Get(id ledger.ItemID) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ledger.ErrItemNotFound
	}
	return *item, nil
}

// Archive soft-deletes an item. Its ledger history is untouched.
func (r *Registry) Archive(id ledger.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.IsArchived = true
	return nil
}

// Restore loads a persisted item as-is, cached projections included.
// Boot-time rehydration only; every command path goes through Books.
func (r *Registry) Restore(item Item) error {
	if item.ID == "" || item.SKU == "" {
		return &ledger.ValidationError{Message: "restored item is missing id or SKU"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bySKU[item.SKU]; ok && existing != item.ID {
		return &ledger.DuplicateSKUError{SKU: item.SKU, ExistingID: existing}
	}
	stored := item
	r.items[item.ID] = &stored
	r.bySKU[item.SKU] = item.ID
	return nil
}

// =============================================================================
// LISTING
// =============================================================================

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type            ItemType
	Status          StockLevel // see reorder.go
	Search          string     // substring match on name or SKU
	IncludeArchived bool
}

// List returns matching items sorted by name.
func (r *Registry) List(f Filter) []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var result []Item
	for _, item := range r.items {
		if item.IsArchived && !f.IncludeArchived {
			continue
		}
		if f.Type != "" && item.Type != f.Type {
			continue
		}
		if f.Status != "" && classify(*item) != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.SKU), search) {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// =============================================================================
// PROJECTION WRITES - package-private on purpose
// =============================================================================

// applyQuantity moves the cached quantity to the transaction's post-state.
// Called only by Books once the ledger has accepted the transaction.
func (r *Registry) applyQuantity(tx ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[tx.ItemID]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.CurrentQuantity = tx.NewQuantity
	if tx.Type == ledger.TxSpotCheck {
		item.LastCountedDate = tx.Timestamp
	}
	return nil
}

// setCost stores a freshly computed weighted-average cost.
// Called only by the costing engine on purchase receipt.
func (r *Registry) setCost(id ledger.ItemID, cost decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.WeightedAverageCost = cost
	return nil
}

// markCounted bumps LastCountedDate without a correcting transaction
// (a spot check that matched the live quantity exactly).
func (r *Registry) markCounted(id ledger.ItemID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.LastCountedDate = at
	return nil
}
