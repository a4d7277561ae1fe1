/*
handlers.go - HTTP API handlers for the inventory and costing engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the production service.

ENDPOINTS:
  Items:
    GET    /api/items                   List (filterable)
    POST   /api/items                   Create item (optional opening count)
    GET    /api/items/{id}              Get item
    POST   /api/items/{id}/archive      Archive item
    GET    /api/items/{id}/transactions Ledger history

  Suppliers:
    GET    /api/suppliers               List suppliers
    POST   /api/suppliers               Create supplier
    POST   /api/suppliers/{id}/archive  Archive supplier

  Recipes:
    GET    /api/recipes                 List latest versions
    POST   /api/recipes                 Create recipe (v1)
    GET    /api/recipes/{id}            Get latest version
    PUT    /api/recipes/{id}            New version
    GET    /api/recipes/{id}/capacity   Max producible batches

  Operations:
    GET/POST /api/purchases             Purchases
    GET/POST /api/batches               Production batches
    GET/POST /api/spot-checks           Count corrections
    GET/POST /api/sales                 Sales
    GET      /api/sales/months          Monthly rollups

  Dashboard:
    GET    /api/dashboard               Action-center metrics

ERROR HANDLING:
  Domain errors map to HTTP status by taxonomy:
  - 400: validation
  - 404: unknown item/recipe/supplier
  - 409: stale count, duplicate SKU, duplicate transaction, archived
  - 422: insufficient stock
  - 503: lock contention (client should retry)
  - 500: ledger invariant violations, everything else

SECURITY NOTE:
  No authentication middleware. The engine fronts a single-tenant
  dashboard behind the operator's network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/logger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *production.Service
	validate *validator.Validate
	log      *logger.Logger
}

// NewHandler creates a new handler around the production service.
func NewHandler(svc *production.Service, log *logger.Logger) *Handler {
	return &Handler{
		Service:  svc,
		validate: validator.New(),
		log:      log.WithComponent("api"),
	}
}

// decode parses the body and runs structural validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ledger.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ledger.ValidationError{Field: verrs[0].Field(), Message: "failed " + verrs[0].Tag() + " validation"}
		}
		return &ledger.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListItems returns items matching the query filters.
// GET /api/items?type=ingredient&status=low&search=flour&archived=true
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := inventory.Filter{
		Type:            inventory.ItemType(q.Get("type")),
		Search:          q.Get("search"),
		IncludeArchived: q.Get("archived") == "true",
	}
	switch q.Get("status") {
	case "out":
		f.Status = inventory.StockOut
	case "low":
		f.Status = inventory.StockLow
	case "in":
		f.Status = inventory.StockIn
	}
	writeJSON(w, http.StatusOK, toItemDTOs(h.Service.Items().List(f)))
}

// CreateItem registers an item, recording any opening stock as a
// spot-check transaction.
// POST /api/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	result, err := h.Service.CreateItem(r.Context(), production.CreateItemCommand{
		Name:            req.Name,
		SKU:             req.SKU,
		Type:            inventory.ItemType(req.Type),
		InventoryUnit:   req.InventoryUnit,
		ReorderPoint:    req.ReorderPoint,
		InitialQuantity: req.InitialQuantity,
		UnitCost:        req.UnitCost,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	item, err := h.Service.Items().Get(result.ItemID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateItemResponse{
		Item:          toItemDTO(item),
		TransactionID: string(result.TransactionID),
	})
}

// GetItem returns one item.
// GET /api/items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Items().Get(ledger.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// ArchiveItem soft-deletes an item. History stays intact.
// POST /api/items/{id}/archive
func (h *Handler) ArchiveItem(w http.ResponseWriter, r *http.Request) {
	id := ledger.ItemID(chi.URLParam(r, "id"))
	if err := h.Service.ArchiveItem(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived", "id": string(id)})
}

// GetTransactions returns the item's full ledger history, oldest first.
// GET /api/items/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.TransactionHistory(r.Context(), ledger.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns all suppliers.
// GET /api/suppliers?archived=true
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers := h.Service.Suppliers().List(r.URL.Query().Get("archived") == "true")
	dtos := make([]SupplierDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSupplier registers a supplier.
// POST /api/suppliers
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	id, err := h.Service.CreateSupplier(r.Context(), inventory.Supplier{
		Name:     req.Name,
		StoreURL: req.StoreURL,
		Phone:    req.Phone,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	sup, err := h.Service.Suppliers().Get(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierDTO(sup))
}

// ArchiveSupplier soft-deletes a supplier.
// POST /api/suppliers/{id}/archive
func (h *Handler) ArchiveSupplier(w http.ResponseWriter, r *http.Request) {
	id := inventory.SupplierID(chi.URLParam(r, "id"))
	if err := h.Service.Suppliers().Archive(id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived", "id": string(id)})
}

// =============================================================================
// RECIPE HANDLERS
// =============================================================================

// ListRecipes returns the latest version of every recipe.
// GET /api/recipes?archived=true
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := h.Service.Recipes().List(r.URL.Query().Get("archived") == "true")
	dtos := make([]RecipeDTO, len(recipes))
	for i, rec := range recipes {
		dtos[i] = toRecipeDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecipe registers a recipe at version 1.
// POST /api/recipes
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	id, err := h.Service.CreateRecipe(r.Context(), recipeFromRequest(req))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec, err := h.Service.Recipes().Latest(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeDTO(rec))
}

// GetRecipe returns the latest version of a recipe.
// GET /api/recipes/{id}
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Recipes().Latest(recipe.RecipeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(rec))
}

// UpdateRecipe appends a new version; historical batches keep pointing at
// the version that produced them.
// PUT /api/recipes/{id}
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	rec, err := h.Service.UpdateRecipe(r.Context(), recipe.RecipeID(chi.URLParam(r, "id")), recipeFromRequest(req))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeDTO(rec))
}

// GetRecipeCapacity answers "how many batches can I make right now" and
// names the limiting ingredient.
// GET /api/recipes/{id}/capacity
func (h *Handler) GetRecipeCapacity(w http.ResponseWriter, r *http.Request) {
	id := recipe.RecipeID(chi.URLParam(r, "id"))
	capacity, err := h.Service.RecipeCapacity(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CapacityDTO{
		RecipeID:       string(id),
		MaxBatches:     capacity.Count,
		LimitingItemID: string(capacity.LimitingItemID),
	})
}

func recipeFromRequest(req CreateRecipeRequest) recipe.Recipe {
	ingredients := make([]recipe.Ingredient, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		ingredients[i] = recipe.Ingredient{ItemID: ledger.ItemID(ing.ItemID), Quantity: ing.Quantity}
	}
	return recipe.Recipe{
		Name:                  req.Name,
		YieldsItemID:          ledger.ItemID(req.YieldsItemID),
		ExpectedYield:         req.ExpectedYield,
		LaborMinutes:          req.LaborMinutes,
		ProjectedMaterialCost: req.ProjectedMaterialCost,
		Ingredients:           ingredients,
	}
}

// =============================================================================
// PURCHASE HANDLERS
// =============================================================================

// ListPurchases returns purchases, newest first.
// GET /api/purchases
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases := h.Service.Purchases()
	dtos := make([]PurchaseDTO, len(purchases))
	for i, p := range purchases {
		dtos[i] = toPurchaseDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPurchase receives stock and reprices weighted-average costs.
// POST /api/purchases
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req RecordPurchaseRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}
	purchaseDate, err := parseDate(req.PurchaseDate, "purchaseDate")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	lines := make([]production.PurchaseLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = production.PurchaseLine{
			ItemID:    ledger.ItemID(l.ItemID),
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
			LotNumber: l.LotNumber,
		}
	}

	purchase, err := h.Service.RecordPurchase(r.Context(), production.RecordPurchaseCommand{
		SupplierID:   req.SupplierID,
		PurchaseDate: purchaseDate,
		Notes:        req.Notes,
		Lines:        lines,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(purchase))
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// ListBatches returns production batches, newest first.
// GET /api/batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches := h.Service.Batches()
	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordBatch commits one production run: consumes ingredients, creates
// output, computes actual cost and yield. All-or-nothing.
// POST /api/batches
func (h *Handler) RecordBatch(w http.ResponseWriter, r *http.Request) {
	var req RecordBatchRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	batch, err := h.Service.RecordBatch(r.Context(), production.RecordBatchCommand{
		RecipeID:  recipe.RecipeID(req.RecipeID),
		Date:      date,
		Batches:   req.Batches,
		QtyMade:   req.QtyMade,
		LaborCost: req.LaborCost,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(batch))
}

// =============================================================================
// SPOT CHECK HANDLERS
// =============================================================================

// ListSpotChecks returns count corrections, newest first.
// GET /api/spot-checks
func (h *Handler) ListSpotChecks(w http.ResponseWriter, r *http.Request) {
	checks := h.Service.SpotChecks()
	dtos := make([]SpotCheckDTO, len(checks))
	for i, sc := range checks {
		dtos[i] = toSpotCheckDTO(sc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordSpotCheck reconciles a physical count against the ledger. Rejects
// with 409 when the stock moved since the count was taken.
// POST /api/spot-checks
func (h *Handler) RecordSpotCheck(w http.ResponseWriter, r *http.Request) {
	var req RecordSpotCheckRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	sc, err := h.Service.RecordSpotCheck(r.Context(), production.RecordSpotCheckCommand{
		ItemID:           ledger.ItemID(req.ItemID),
		PreviousQuantity: req.PreviousQuantity,
		CountedQuantity:  req.CountedQuantity,
		Reason:           req.Reason,
		Notes:            req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSpotCheckDTO(sc))
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// ListSales returns sales, newest first.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales := h.Service.Sales()
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordSale deducts finished product and rolls the monthly aggregate.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	sale, err := h.Service.RecordSale(r.Context(), production.RecordSaleCommand{
		ProductID: ledger.ItemID(req.ProductID),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Date:      date,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// ListSalesMonths returns the monthly rollups, newest first.
// GET /api/sales/months
func (h *Handler) ListSalesMonths(w http.ResponseWriter, r *http.Request) {
	months := h.Service.SalesMonths()
	dtos := make([]SalesMonthDTO, len(months))
	for i, sm := range months {
		dtos[i] = toSalesMonthDTO(sm)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the action-center metrics.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	m := h.Service.Dashboard(time.Now().UTC())
	writeJSON(w, http.StatusOK, DashboardDTO{
		InventoryValue:   m.InventoryValue,
		LowStock:         toItemDTOs(m.LowStock),
		OutOfStock:       toItemDTOs(m.OutOfStock),
		BatchesThisMonth: m.BatchesThisMonth,
		AverageYield:     m.AverageYield,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrStaleCount),
		errors.Is(err, ledger.ErrDuplicateSKU),
		errors.Is(err, ledger.ErrDuplicateTransaction),
		errors.Is(err, ledger.ErrItemArchived):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient stock", err)
	case errors.Is(err, ledger.ErrLockContention):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Busy, retry", err)
	default:
		h.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// parseDate accepts RFC3339 or bare YYYY-MM-DD; empty means "now".
func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, &ledger.ValidationError{Field: field, Message: "must be RFC3339 or YYYY-MM-DD"}
}
