/*
service.go - Command/query service wiring

PURPOSE:
  Service is what the HTTP layer talks to. It owns the registries, the
  ledger-backed Books, the recipe book, the production records, and the
  event publisher. Commands live in purchase.go, batch.go, spotcheck.go,
  and sales.go; this file holds construction, the catalog commands
  (items, suppliers, recipes), and the query surface.

SEE ALSO:
  - types.go: Records and the Persister contract
  - batch.go: Batch processor state machine
*/
package production

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/events"
	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/logger"
	"github.com/artisan/ledger-engine/recipe"
)

type salesMonthKey struct {
	ItemID ledger.ItemID
	Year   int
	Month  time.Month
}

// Service orchestrates all commands and queries of the engine.
type Service struct {
	books     *inventory.Books
	suppliers *inventory.SupplierRegistry
	recipes   *recipe.Book
	persist   Persister // nil = memory-only
	publisher events.Publisher
	log       *logger.Logger

	mu          sync.Mutex
	purchases   []Purchase
	batches     []Batch
	spotChecks  []SpotCheck
	sales       []Sale
	salesMonths map[salesMonthKey]*SalesMonth
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPersister enables durable write-through.
func WithPersister(p Persister) Option {
	return func(s *Service) { s.persist = p }
}

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(books *inventory.Books, suppliers *inventory.SupplierRegistry, recipes *recipe.Book, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		books:       books,
		suppliers:   suppliers,
		recipes:     recipes,
		publisher:   events.Noop{},
		log:         log.WithComponent("production"),
		salesMonths: make(map[salesMonthKey]*SalesMonth),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Items() *inventory.Registry             { return s.books.Registry() }
func (s *Service) Suppliers() *inventory.SupplierRegistry { return s.suppliers }
func (s *Service) Recipes() *recipe.Book                  { return s.recipes }

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

// CreateItemCommand registers an item; a positive opening quantity is
// recorded as a spot-check transaction so the ledger stays authoritative.
type CreateItemCommand struct {
	Name            string
	SKU             string
	Type            inventory.ItemType
	InventoryUnit   string
	ReorderPoint    decimal.Decimal
	InitialQuantity decimal.Decimal
	UnitCost        decimal.Decimal
}

// CreateItemResult carries the created id plus the opening-count
// transaction, when one was needed.
type CreateItemResult struct {
	ItemID        ledger.ItemID
	TransactionID ledger.TransactionID
}

func (s *Service) CreateItem(ctx context.Context, cmd CreateItemCommand) (CreateItemResult, error) {
	if cmd.InitialQuantity.IsNegative() {
		return CreateItemResult{}, &ledger.ValidationError{Field: "initialQuantity", Message: "initial quantity must be 0 or greater"}
	}
	if cmd.UnitCost.IsNegative() {
		return CreateItemResult{}, &ledger.ValidationError{Field: "unitCost", Message: "unit cost must be 0 or greater"}
	}

	id, err := s.books.Registry().Create(inventory.Item{
		Name:          cmd.Name,
		SKU:           cmd.SKU,
		Type:          cmd.Type,
		InventoryUnit: cmd.InventoryUnit,
		ReorderPoint:  cmd.ReorderPoint,
	})
	if err != nil {
		return CreateItemResult{}, err
	}

	result := CreateItemResult{ItemID: id}

	if cmd.InitialQuantity.IsPositive() {
		release, err := s.books.Locks().Acquire(id)
		if err != nil {
			return CreateItemResult{}, err
		}
		defer release()

		now := time.Now().UTC()
		tx, err := s.books.OpeningCount(ctx, id, cmd.InitialQuantity, cmd.UnitCost, "opening-count:"+string(id), now)
		if err != nil {
			return CreateItemResult{}, err
		}
		result.TransactionID = tx.ID
		s.publisher.TransactionRecorded(ctx, tx)
	}

	if err := s.persistItem(ctx, id); err != nil {
		return CreateItemResult{}, err
	}

	s.log.Info().Str("item_id", string(id)).Str("sku", cmd.SKU).Msg("item created")
	return result, nil
}

// ArchiveItem soft-deletes an item; its ledger history remains for audit.
// Takes the item's lock so the archive cannot land in the middle of an
// in-flight purchase, batch, or sale touching the same item.
func (s *Service) ArchiveItem(ctx context.Context, id ledger.ItemID) error {
	release, err := s.books.Locks().Acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.books.Registry().Archive(id); err != nil {
		return err
	}
	return s.persistItem(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, sup inventory.Supplier) (inventory.SupplierID, error) {
	id, err := s.suppliers.Create(sup)
	if err != nil {
		return "", err
	}
	if s.persist != nil {
		stored, _ := s.suppliers.Get(id)
		if err := s.persist.SaveSupplier(ctx, stored); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (s *Service) CreateRecipe(ctx context.Context, r recipe.Recipe) (recipe.RecipeID, error) {
	for _, ing := range r.Ingredients {
		if _, err := s.books.Registry().Get(ing.ItemID); err != nil {
			return "", err
		}
	}
	if _, err := s.books.Registry().Get(r.YieldsItemID); err != nil {
		return "", err
	}

	id, err := s.recipes.Create(r)
	if err != nil {
		return "", err
	}
	if s.persist != nil {
		stored, _ := s.recipes.Latest(id)
		if err := s.persist.SaveRecipe(ctx, stored); err != nil {
			return "", err
		}
	}
	return id, nil
}

// UpdateRecipe creates the next immutable version of a recipe.
func (s *Service) UpdateRecipe(ctx context.Context, id recipe.RecipeID, r recipe.Recipe) (recipe.Recipe, error) {
	for _, ing := range r.Ingredients {
		if _, err := s.books.Registry().Get(ing.ItemID); err != nil {
			return recipe.Recipe{}, err
		}
	}
	updated, err := s.recipes.Update(id, r)
	if err != nil {
		return recipe.Recipe{}, err
	}
	if s.persist != nil {
		if err := s.persist.SaveRecipe(ctx, updated); err != nil {
			return recipe.Recipe{}, err
		}
	}
	return updated, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// TransactionHistory returns an item's ordered ledger history.
func (s *Service) TransactionHistory(ctx context.Context, id ledger.ItemID) ([]ledger.Transaction, error) {
	if _, err := s.books.Registry().Get(id); err != nil {
		return nil, err
	}
	return s.books.Ledger().History(ctx, id)
}

// RecipeCapacity answers "how many batches can I make now?" for the latest
// version of a recipe. Archived ingredients count as zero stock, matching
// their exclusion from resolver views.
func (s *Service) RecipeCapacity(id recipe.RecipeID) (recipe.Capacity, error) {
	r, err := s.recipes.Latest(id)
	if err != nil {
		return recipe.Capacity{}, err
	}
	return recipe.MaxBatches(r, s.stockFn())
}

func (s *Service) stockFn() recipe.StockFunc {
	return func(id ledger.ItemID) (decimal.Decimal, error) {
		item, err := s.books.Registry().Get(id)
		if err != nil {
			return decimal.Zero, err
		}
		if item.IsArchived {
			return decimal.Zero, nil
		}
		return item.CurrentQuantity, nil
	}
}

// Dashboard computes the action-center metrics on demand.
func (s *Service) Dashboard(now time.Time) DashboardMetrics {
	snap := s.books.Registry().Snapshot()

	value := decimal.Zero
	for _, item := range s.books.Registry().List(inventory.Filter{}) {
		value = value.Add(item.Value())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	yieldSum := decimal.Zero
	for _, b := range s.batches {
		if b.DateCreated.Year() == now.Year() && b.DateCreated.Month() == now.Month() {
			count++
		}
		yieldSum = yieldSum.Add(b.YieldPercentage)
	}
	avgYield := decimal.Zero
	if len(s.batches) > 0 {
		avgYield = yieldSum.Div(decimal.NewFromInt(int64(len(s.batches)))).Round(2)
	}

	return DashboardMetrics{
		InventoryValue:   value,
		LowStock:         snap.LowStock,
		OutOfStock:       snap.OutOfStock,
		BatchesThisMonth: count,
		AverageYield:     avgYield,
	}
}

// Purchases returns recorded purchases, newest first.
func (s *Service) Purchases() []Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Purchase, len(s.purchases))
	copy(out, s.purchases)
	reverse(out)
	return out
}

// Batches returns committed batches, newest first.
func (s *Service) Batches() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Batch, len(s.batches))
	copy(out, s.batches)
	reverse(out)
	return out
}

// SpotChecks returns recorded spot checks, newest first.
func (s *Service) SpotChecks() []SpotCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpotCheck, len(s.spotChecks))
	copy(out, s.spotChecks)
	reverse(out)
	return out
}

// Sales returns recorded sales, newest first.
func (s *Service) Sales() []Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sale, len(s.sales))
	copy(out, s.sales)
	reverse(out)
	return out
}

// SalesMonths returns the monthly rollups.
func (s *Service) SalesMonths() []SalesMonth {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SalesMonth, 0, len(s.salesMonths))
	for _, sm := range s.salesMonths {
		out = append(out, *sm)
	}
	return out
}

// RestoreRecords loads persisted production records at boot. The catalog
// registries are restored separately before this is called.
func (s *Service) RestoreRecords(purchases []Purchase, batches []Batch, spotChecks []SpotCheck, sales []Sale, salesMonths []SalesMonth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, purchases...)
	s.batches = append(s.batches, batches...)
	s.spotChecks = append(s.spotChecks, spotChecks...)
	s.sales = append(s.sales, sales...)
	for _, sm := range salesMonths {
		stored := sm
		s.salesMonths[salesMonthKey{ItemID: sm.ItemID, Year: sm.Year, Month: sm.Month}] = &stored
	}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// persistItem writes the item's current row through to durable storage.
// Called inside the critical section of the command that changed it.
func (s *Service) persistItem(ctx context.Context, id ledger.ItemID) error {
	if s.persist == nil {
		return nil
	}
	item, err := s.books.Registry().Get(id)
	if err != nil {
		return err
	}
	return s.persist.SaveItem(ctx, item)
}

// signalStock publishes low/out-of-stock events for an item after a
// quantity change.
func (s *Service) signalStock(ctx context.Context, id ledger.ItemID) {
	item, err := s.books.Registry().Get(id)
	if err != nil || item.IsArchived {
		return
	}
	switch {
	case !item.CurrentQuantity.IsPositive():
		s.publisher.StockOut(ctx, item)
	case item.CurrentQuantity.LessThanOrEqual(item.ReorderPoint):
		s.publisher.StockLow(ctx, item)
	}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
