/*
Package production is the command layer of the engine: it orchestrates
purchases, batches, spot checks, and sales over the item registry, the
ledger, and the recipe book.

PURPOSE:
  Each command validates its input, takes the locks of every item it
  touches (ascending id order), appends the resulting transactions, updates
  the cached projections, and persists the resulting records - all inside
  one critical section. Callers get a typed result or a typed failure;
  partial effects are impossible.

KEY CONCEPTS IN THIS FILE (types.go):
  - Purchase/PurchaseLineItem, Batch, SpotCheck, Sale, SalesMonth records
  - BatchStatus: the Requested -> Validated -> Committed | Rejected machine
  - Persister: optional durable write-through (SQLite)

SEE ALSO:
  - service.go: Service wiring, item/supplier/recipe commands, queries
  - batch.go: The batch processor
*/
package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/recipe"
)

// =============================================================================
// RECORDS
// =============================================================================

type Purchase struct {
	ID           string
	SupplierID   inventory.SupplierID
	PurchaseDate time.Time
	GrandTotal   decimal.Decimal // invariant: sum of line TotalCost
	Notes        string
	Lines        []PurchaseLineItem
	CreatedAt    time.Time
}

type PurchaseLineItem struct {
	ID            string
	ItemID        ledger.ItemID
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal // $X.XXXX per unit
	TotalCost     decimal.Decimal
	LotNumber     string
	TransactionID ledger.TransactionID
}

// BatchStatus is the batch processor's state machine. Committed and
// Rejected are terminal.
type BatchStatus string

const (
	BatchRequested BatchStatus = "requested"
	BatchValidated BatchStatus = "validated"
	BatchCommitted BatchStatus = "committed"
	BatchRejected  BatchStatus = "rejected"
)

type Batch struct {
	ID              string
	RecipeID        recipe.RecipeID
	RecipeVersion   int
	Status          BatchStatus
	DateCreated     time.Time
	Batches         int64 // recipe runs in this production run
	QtyMade         decimal.Decimal
	YieldPercentage decimal.Decimal // qtyMade / (expectedYield*batches) * 100
	MaterialCost    decimal.Decimal // from ingredient weighted-average costs at commit
	LaborCost       decimal.Decimal
	ActualCost      decimal.Decimal // material + labor
	CostVariance    decimal.Decimal // material-only, against projected*batches
	Notes           string
	TransactionIDs  []ledger.TransactionID
	CreatedAt       time.Time
}

type SpotCheck struct {
	ID               string
	ItemID           ledger.ItemID
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	Reason           string
	Notes            string
	Timestamp        time.Time
	TransactionID    ledger.TransactionID // empty when the count matched
}

type Sale struct {
	ID            string
	ItemID        ledger.ItemID
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Total         decimal.Decimal
	Date          time.Time
	Notes         string
	TransactionID ledger.TransactionID
}

// SalesMonth is an aggregate rollup, not a ledger record: per-event sale
// transactions stay authoritative, this view feeds reports until a POS
// integration replaces it.
type SalesMonth struct {
	ID           string
	ItemID       ledger.ItemID
	Year         int
	Month        time.Month
	QuantitySold decimal.Decimal
	DataSource   string // "manual" or "imported"
}

// DashboardMetrics is the action-center query payload.
type DashboardMetrics struct {
	InventoryValue   decimal.Decimal
	LowStock         []inventory.Item
	OutOfStock       []inventory.Item
	BatchesThisMonth int
	AverageYield     decimal.Decimal
}

// =============================================================================
// PERSISTENCE - optional durable write-through
// =============================================================================

// Persister receives durable copies of every record the service creates.
// Writes happen inside the command's critical section, so a crash cannot
// leave the durable state ahead of or behind the ledger. A nil Persister
// means memory-only operation.
type Persister interface {
	SaveItem(ctx context.Context, item inventory.Item) error
	SaveSupplier(ctx context.Context, s inventory.Supplier) error
	SaveRecipe(ctx context.Context, r recipe.Recipe) error
	SavePurchase(ctx context.Context, p Purchase) error
	SaveBatch(ctx context.Context, b Batch) error
	SaveSpotCheck(ctx context.Context, sc SpotCheck) error
	SaveSale(ctx context.Context, s Sale) error
	SaveSalesMonth(ctx context.Context, sm SalesMonth) error
}
