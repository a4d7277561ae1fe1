/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the engine with realistic
	data for demos. Each scenario creates suppliers, items, recipes, and a
	few recorded operations so every dashboard panel has something to show.

AVAILABLE SCENARIOS:

	bakery:       Artisan bakery with flour, honey, salt, jars, bread
	empty-shelf:  Same catalog but stock run down to reorder territory

HOW SCENARIOS WORK:
 1. Create suppliers
 2. Create items with opening counts
 3. Create recipes
 4. Record a purchase and a production batch

USAGE VIA API:

	POST /api/scenarios/load
	{"name": "bakery"}

NOTE:

	Scenarios append to the current state; they do not reset it. Load them
	into a fresh in-memory engine in development.

SEE ALSO:
  - handlers.go: Response helpers
  - server.go: Routes
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		Name:        "bakery",
		Description: "Artisan bakery: ingredients, packaging, two recipes, one purchase, one batch",
	},
	{
		Name:        "empty-shelf",
		Description: "Bakery catalog with stock drawn down to reorder territory",
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario populates the engine with a named demo dataset.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	var err error
	switch req.Name {
	case "bakery":
		err = loadBakeryScenario(r.Context(), h.Service)
	case "empty-shelf":
		err = loadEmptyShelfScenario(r.Context(), h.Service)
	default:
		h.writeDomainError(w, &ledger.ValidationError{Field: "name", Message: "unknown scenario"})
		return
	}
	if err != nil {
		h.writeDomainError(w, fmt.Errorf("failed to load scenario %q: %w", req.Name, err))
		return
	}

	h.log.Info().Str("scenario", req.Name).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.Name})
}

// =============================================================================
// LOADERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type bakery struct {
	flour       ledger.ItemID
	honey       ledger.ItemID
	salt        ledger.ItemID
	jars        ledger.ItemID
	bread       ledger.ItemID
	honeyJars   ledger.ItemID
	breadRecipe recipe.RecipeID
	jarRecipe   recipe.RecipeID
	millID      inventory.SupplierID
}

// loadBakeryCatalog seeds the shared suppliers/items/recipes.
func loadBakeryCatalog(ctx context.Context, svc *production.Service) (bakery, error) {
	var b bakery

	mill, err := svc.CreateSupplier(ctx, inventory.Supplier{
		Name:     "Golden Grain Mill",
		StoreURL: "https://goldengrainmill.example.com",
		Phone:    "+1-555-0101",
	})
	if err != nil {
		return b, err
	}
	b.millID = mill
	if _, err := svc.CreateSupplier(ctx, inventory.Supplier{
		Name:  "Hillside Apiary",
		Phone: "+1-555-0102",
	}); err != nil {
		return b, err
	}

	items := []struct {
		dst *ledger.ItemID
		cmd production.CreateItemCommand
	}{
		{&b.flour, production.CreateItemCommand{
			Name: "Organic Flour", SKU: "ORG-FLOUR-001", Type: inventory.TypeIngredient,
			InventoryUnit: "lbs", ReorderPoint: dec("10"),
			InitialQuantity: dec("50"), UnitCost: dec("0.75"),
		}},
		{&b.honey, production.CreateItemCommand{
			Name: "Raw Honey", SKU: "RAW-HONEY-001", Type: inventory.TypeIngredient,
			InventoryUnit: "lbs", ReorderPoint: dec("5"),
			InitialQuantity: dec("20"), UnitCost: dec("4.50"),
		}},
		{&b.salt, production.CreateItemCommand{
			Name: "Sea Salt", SKU: "SEA-SALT-001", Type: inventory.TypeIngredient,
			InventoryUnit: "lbs", ReorderPoint: dec("2"),
			InitialQuantity: dec("8"), UnitCost: dec("1.20"),
		}},
		{&b.jars, production.CreateItemCommand{
			Name: "Mason Jars (8oz)", SKU: "JAR-8OZ-001", Type: inventory.TypePackaging,
			InventoryUnit: "pcs", ReorderPoint: dec("24"),
			InitialQuantity: dec("100"), UnitCost: dec("0.85"),
		}},
		{&b.bread, production.CreateItemCommand{
			Name: "Honey Wheat Bread", SKU: "BREAD-HW-001", Type: inventory.TypeProduct,
			InventoryUnit: "loaves", ReorderPoint: dec("4"),
		}},
		{&b.honeyJars, production.CreateItemCommand{
			Name: "Artisan Honey (8oz)", SKU: "HONEY-8OZ-001", Type: inventory.TypeProduct,
			InventoryUnit: "jars", ReorderPoint: dec("6"),
		}},
	}
	for _, it := range items {
		result, err := svc.CreateItem(ctx, it.cmd)
		if err != nil {
			return b, err
		}
		*it.dst = result.ItemID
	}

	b.breadRecipe, err = svc.CreateRecipe(ctx, recipe.Recipe{
		Name:                  "Honey Wheat Bread",
		YieldsItemID:          b.bread,
		ExpectedYield:         dec("2"),
		LaborMinutes:          180,
		ProjectedMaterialCost: dec("6.50"),
		Ingredients: []recipe.Ingredient{
			{ItemID: b.flour, Quantity: dec("2")},
			{ItemID: b.honey, Quantity: dec("0.5")},
			{ItemID: b.salt, Quantity: dec("0.1")},
		},
	})
	if err != nil {
		return b, err
	}

	b.jarRecipe, err = svc.CreateRecipe(ctx, recipe.Recipe{
		Name:                  "Artisan Honey Jars",
		YieldsItemID:          b.honeyJars,
		ExpectedYield:         dec("12"),
		LaborMinutes:          45,
		ProjectedMaterialCost: dec("16.50"),
		Ingredients: []recipe.Ingredient{
			{ItemID: b.honey, Quantity: dec("6")},
			{ItemID: b.jars, Quantity: dec("12")},
		},
	})
	return b, err
}

func loadBakeryScenario(ctx context.Context, svc *production.Service) error {
	b, err := loadBakeryCatalog(ctx, svc)
	if err != nil {
		return err
	}

	// A restock purchase that moves the flour weighted-average cost.
	if _, err := svc.RecordPurchase(ctx, production.RecordPurchaseCommand{
		SupplierID:   string(b.millID),
		PurchaseDate: time.Now().UTC().Add(-48 * time.Hour),
		Notes:        "Weekly restock",
		Lines: []production.PurchaseLine{
			{ItemID: b.flour, Quantity: dec("25"), UnitCost: dec("0.82"), LotNumber: "LOT-2401"},
			{ItemID: b.salt, Quantity: dec("5"), UnitCost: dec("1.10")},
		},
	}); err != nil {
		return err
	}

	// One committed bread batch so yield metrics are populated.
	_, err = svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID:  b.breadRecipe,
		Date:      time.Now().UTC().Add(-24 * time.Hour),
		Batches:   2,
		QtyMade:   dec("4"),
		LaborCost: dec("45.00"),
		Notes:     "Morning bake",
	})
	return err
}

func loadEmptyShelfScenario(ctx context.Context, svc *production.Service) error {
	b, err := loadBakeryCatalog(ctx, svc)
	if err != nil {
		return err
	}

	// Run honey down below its reorder point via production.
	if _, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID:  b.jarRecipe,
		Batches:   3,
		QtyMade:   dec("34"),
		LaborCost: dec("30.00"),
	}); err != nil {
		return err
	}

	// Spot check finds the salt shelf nearly empty.
	salt, err := svc.Items().Get(b.salt)
	if err != nil {
		return err
	}
	_, err = svc.RecordSpotCheck(ctx, production.RecordSpotCheckCommand{
		ItemID:           b.salt,
		PreviousQuantity: salt.CurrentQuantity,
		CountedQuantity:  dec("1.5"),
		Reason:           "cycle count",
		Notes:            "spillage during transfer",
	})
	return err
}
