/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  JSON keys are camelCase to match the dashboard frontend.

VALIDATION:
  Structural validation (required fields, enum membership) lives on the
  request types as validator tags. Numeric business rules (positive
  quantities, non-negative costs) are enforced by the domain layer so they
  hold for every caller, not just HTTP.

DECIMALS:
  Quantities and money cross the wire as JSON strings ("12.5000") via
  shopspring/decimal. Floats would lose the exactness the ledger depends on.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Routes
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// ITEMS
// =============================================================================

type ItemDTO struct {
	ID                  string          `json:"id"`
	SKU                 string          `json:"sku"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	InventoryUnit       string          `json:"inventoryUnit"`
	CurrentQuantity     decimal.Decimal `json:"currentQuantity"`
	WeightedAverageCost decimal.Decimal `json:"weightedAverageCost"`
	ReorderPoint        decimal.Decimal `json:"reorderPoint"`
	LastCountedDate     string          `json:"lastCountedDate,omitempty"`
	IsArchived          bool            `json:"isArchived"`
	CreatedAt           string          `json:"createdAt"`
}

type CreateItemRequest struct {
	Name            string          `json:"name" validate:"required"`
	SKU             string          `json:"sku" validate:"required"`
	Type            string          `json:"type" validate:"required,oneof=ingredient packaging product"`
	InventoryUnit   string          `json:"inventoryUnit" validate:"required"`
	ReorderPoint    decimal.Decimal `json:"reorderPoint"`
	InitialQuantity decimal.Decimal `json:"initialQuantity"`
	UnitCost        decimal.Decimal `json:"unitCost"`
}

// CreateItemResponse includes the opening-count transaction id when an
// initial quantity was recorded.
type CreateItemResponse struct {
	Item          ItemDTO `json:"item"`
	TransactionID string  `json:"transactionId,omitempty"`
}

// =============================================================================
// SUPPLIERS
// =============================================================================

type SupplierDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StoreURL   string `json:"storeUrl,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsArchived bool   `json:"isArchived"`
	CreatedAt  string `json:"createdAt"`
}

type CreateSupplierRequest struct {
	Name     string `json:"name" validate:"required"`
	StoreURL string `json:"storeUrl" validate:"omitempty,url"`
	Phone    string `json:"phone"`
}

// =============================================================================
// RECIPES
// =============================================================================

type IngredientDTO struct {
	ItemID   string          `json:"itemId" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

type RecipeDTO struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Version               int             `json:"version"`
	IsArchived            bool            `json:"isArchived"`
	YieldsItemID          string          `json:"yieldsItemId"`
	ExpectedYield         decimal.Decimal `json:"expectedYield"`
	LaborMinutes          int             `json:"laborMinutes"`
	ProjectedMaterialCost decimal.Decimal `json:"projectedMaterialCost"`
	Ingredients           []IngredientDTO `json:"ingredients"`
	CreatedAt             string          `json:"createdAt"`
}

type CreateRecipeRequest struct {
	Name                  string          `json:"name" validate:"required"`
	YieldsItemID          string          `json:"yieldsItemId" validate:"required"`
	ExpectedYield         decimal.Decimal `json:"expectedYield"`
	LaborMinutes          int             `json:"laborMinutes" validate:"min=0"`
	ProjectedMaterialCost decimal.Decimal `json:"projectedMaterialCost"`
	Ingredients           []IngredientDTO `json:"ingredients" validate:"required,min=1,dive"`
}

// CapacityDTO answers "how many batches can I make right now".
type CapacityDTO struct {
	RecipeID       string `json:"recipeId"`
	MaxBatches     int64  `json:"maxBatches"`
	LimitingItemID string `json:"limitingItemId,omitempty"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID             string          `json:"id"`
	ItemID         string          `json:"itemId"`
	QuantityChange decimal.Decimal `json:"quantityChange"`
	NewQuantity    decimal.Decimal `json:"newQuantity"`
	Type           string          `json:"type"`
	SourceID       string          `json:"sourceId,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

// =============================================================================
// PURCHASES
// =============================================================================

type PurchaseLineRequest struct {
	ItemID    string          `json:"itemId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	LotNumber string          `json:"lotNumber"`
}

type RecordPurchaseRequest struct {
	SupplierID   string                `json:"supplierId" validate:"required"`
	PurchaseDate string                `json:"purchaseDate"`
	Notes        string                `json:"notes"`
	Lines        []PurchaseLineRequest `json:"lineItems" validate:"required,min=1,dive"`
}

type PurchaseLineDTO struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"itemId"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	LotNumber     string          `json:"lotNumber,omitempty"`
	TransactionID string          `json:"transactionId"`
}

type PurchaseDTO struct {
	ID           string            `json:"id"`
	SupplierID   string            `json:"supplierId"`
	PurchaseDate string            `json:"purchaseDate"`
	GrandTotal   decimal.Decimal   `json:"grandTotal"`
	Notes        string            `json:"notes,omitempty"`
	Lines        []PurchaseLineDTO `json:"lineItems"`
	CreatedAt    string            `json:"createdAt"`
}

// =============================================================================
// BATCHES
// =============================================================================

type RecordBatchRequest struct {
	RecipeID  string          `json:"recipeId" validate:"required"`
	Date      string          `json:"date"`
	Batches   int64           `json:"batches" validate:"min=0"`
	QtyMade   decimal.Decimal `json:"qtyMade"`
	LaborCost decimal.Decimal `json:"laborCost"`
	Notes     string          `json:"notes"`
}

type BatchDTO struct {
	ID              string          `json:"id"`
	RecipeID        string          `json:"recipeId"`
	RecipeVersion   int             `json:"recipeVersion"`
	Status          string          `json:"status"`
	DateCreated     string          `json:"dateCreated"`
	Batches         int64           `json:"batches"`
	QtyMade         decimal.Decimal `json:"qtyMade"`
	YieldPercentage decimal.Decimal `json:"yieldPercentage"`
	MaterialCost    decimal.Decimal `json:"materialCost"`
	LaborCost       decimal.Decimal `json:"laborCost"`
	ActualCost      decimal.Decimal `json:"actualCost"`
	CostVariance    decimal.Decimal `json:"costVariance"`
	Notes           string          `json:"notes,omitempty"`
	TransactionIDs  []string        `json:"transactionIds"`
	CreatedAt       string          `json:"createdAt"`
}

// =============================================================================
// SPOT CHECKS
// =============================================================================

type RecordSpotCheckRequest struct {
	ItemID           string          `json:"itemId" validate:"required"`
	PreviousQuantity decimal.Decimal `json:"previousQuantity"`
	CountedQuantity  decimal.Decimal `json:"countedQuantity"`
	Reason           string          `json:"reason" validate:"required"`
	Notes            string          `json:"notes"`
}

type SpotCheckDTO struct {
	ID               string          `json:"id"`
	ItemID           string          `json:"itemId"`
	PreviousQuantity decimal.Decimal `json:"previousQuantity"`
	NewQuantity      decimal.Decimal `json:"newQuantity"`
	Reason           string          `json:"reason"`
	Notes            string          `json:"notes,omitempty"`
	Timestamp        string          `json:"timestamp"`
	TransactionID    string          `json:"transactionId,omitempty"`
}

// =============================================================================
// SALES
// =============================================================================

type RecordSaleRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Date      string          `json:"date"`
	Notes     string          `json:"notes"`
}

type SaleDTO struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"itemId"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Total         decimal.Decimal `json:"total"`
	Date          string          `json:"date"`
	Notes         string          `json:"notes,omitempty"`
	TransactionID string          `json:"transactionId"`
}

type SalesMonthDTO struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"itemId"`
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	DataSource   string          `json:"dataSource"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardDTO struct {
	InventoryValue   decimal.Decimal `json:"inventoryValue"`
	LowStock         []ItemDTO       `json:"lowStock"`
	OutOfStock       []ItemDTO       `json:"outOfStock"`
	BatchesThisMonth int             `json:"batchesThisMonth"`
	AverageYield     decimal.Decimal `json:"averageYield"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	Name string `json:"name" validate:"required"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toItemDTO(item inventory.Item) ItemDTO {
	return ItemDTO{
		ID:                  string(item.ID),
		SKU:                 item.SKU,
		Name:                item.Name,
		Type:                string(item.Type),
		InventoryUnit:       item.InventoryUnit,
		CurrentQuantity:     item.CurrentQuantity,
		WeightedAverageCost: item.WeightedAverageCost,
		ReorderPoint:        item.ReorderPoint,
		LastCountedDate:     optTime(item.LastCountedDate),
		IsArchived:          item.IsArchived,
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toItemDTOs(items []inventory.Item) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	return dtos
}

func toSupplierDTO(s inventory.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:         string(s.ID),
		Name:       s.Name,
		StoreURL:   s.StoreURL,
		Phone:      s.Phone,
		IsArchived: s.IsArchived,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRecipeDTO(r recipe.Recipe) RecipeDTO {
	ingredients := make([]IngredientDTO, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = IngredientDTO{ItemID: string(ing.ItemID), Quantity: ing.Quantity}
	}
	return RecipeDTO{
		ID:                    string(r.ID),
		Name:                  r.Name,
		Version:               r.Version,
		IsArchived:            r.IsArchived,
		YieldsItemID:          string(r.YieldsItemID),
		ExpectedYield:         r.ExpectedYield,
		LaborMinutes:          r.LaborMinutes,
		ProjectedMaterialCost: r.ProjectedMaterialCost,
		Ingredients:           ingredients,
		CreatedAt:             r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		ItemID:         string(tx.ItemID),
		QuantityChange: tx.QuantityChange,
		NewQuantity:    tx.NewQuantity,
		Type:           string(tx.Type),
		SourceID:       tx.SourceID,
		Timestamp:      tx.Timestamp.UTC().Format(time.RFC3339),
	}
}

func toPurchaseDTO(p production.Purchase) PurchaseDTO {
	lines := make([]PurchaseLineDTO, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = PurchaseLineDTO{
			ID:            l.ID,
			ItemID:        string(l.ItemID),
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			TotalCost:     l.TotalCost,
			LotNumber:     l.LotNumber,
			TransactionID: string(l.TransactionID),
		}
	}
	return PurchaseDTO{
		ID:           p.ID,
		SupplierID:   string(p.SupplierID),
		PurchaseDate: p.PurchaseDate.UTC().Format(time.RFC3339),
		GrandTotal:   p.GrandTotal,
		Notes:        p.Notes,
		Lines:        lines,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBatchDTO(b production.Batch) BatchDTO {
	txIDs := make([]string, len(b.TransactionIDs))
	for i, id := range b.TransactionIDs {
		txIDs[i] = string(id)
	}
	return BatchDTO{
		ID:              b.ID,
		RecipeID:        string(b.RecipeID),
		RecipeVersion:   b.RecipeVersion,
		Status:          string(b.Status),
		DateCreated:     b.DateCreated.UTC().Format(time.RFC3339),
		Batches:         b.Batches,
		QtyMade:         b.QtyMade,
		YieldPercentage: b.YieldPercentage,
		MaterialCost:    b.MaterialCost,
		LaborCost:       b.LaborCost,
		ActualCost:      b.ActualCost,
		CostVariance:    b.CostVariance,
		Notes:           b.Notes,
		TransactionIDs:  txIDs,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSpotCheckDTO(sc production.SpotCheck) SpotCheckDTO {
	return SpotCheckDTO{
		ID:               sc.ID,
		ItemID:           string(sc.ItemID),
		PreviousQuantity: sc.PreviousQuantity,
		NewQuantity:      sc.NewQuantity,
		Reason:           sc.Reason,
		Notes:            sc.Notes,
		Timestamp:        sc.Timestamp.UTC().Format(time.RFC3339),
		TransactionID:    string(sc.TransactionID),
	}
}

func toSaleDTO(s production.Sale) SaleDTO {
	return SaleDTO{
		ID:            s.ID,
		ItemID:        string(s.ItemID),
		Quantity:      s.Quantity,
		UnitPrice:     s.UnitPrice,
		Total:         s.Total,
		Date:          s.Date.UTC().Format(time.RFC3339),
		Notes:         s.Notes,
		TransactionID: string(s.TransactionID),
	}
}

func toSalesMonthDTO(sm production.SalesMonth) SalesMonthDTO {
	return SalesMonthDTO{
		ID:           sm.ID,
		ItemID:       string(sm.ItemID),
		Year:         sm.Year,
		Month:        int(sm.Month),
		QuantitySold: sm.QuantitySold,
		DataSource:   sm.DataSource,
	}
}

func optTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
