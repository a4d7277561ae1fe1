package production_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/ledger/store"
	"github.com/artisan/ledger-engine/logger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService() *production.Service {
	books := inventory.NewBooks(ledger.New(store.NewMemory()), inventory.NewRegistry())
	return production.NewService(books, inventory.NewSupplierRegistry(), recipe.NewBook(), logger.Nop())
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// createItem registers an item with opening stock and returns its id.
func createItem(t *testing.T, svc *production.Service, name, sku string, itemType inventory.ItemType, qty, cost string) ledger.ItemID {
	t.Helper()
	result, err := svc.CreateItem(context.Background(), production.CreateItemCommand{
		Name:            name,
		SKU:             sku,
		Type:            itemType,
		InventoryUnit:   "lbs",
		ReorderPoint:    dec("5"),
		InitialQuantity: dec(qty),
		UnitCost:        dec(cost),
	})
	require.NoError(t, err)
	return result.ItemID
}

func createSupplier(t *testing.T, svc *production.Service) inventory.SupplierID {
	t.Helper()
	id, err := svc.CreateSupplier(context.Background(), inventory.Supplier{Name: "Golden Grain Mill"})
	require.NoError(t, err)
	return id
}

// =============================================================================
// CREATE ITEM
// =============================================================================

func TestCreateItem_OpeningStockGoesThroughLedger(t *testing.T) {
	// GIVEN: A new item with 50 units of opening stock at $0.75
	// WHEN: Creating it
	// THEN: The stock arrives as a spot_check transaction and the cost is seeded

	svc := newTestService()
	ctx := context.Background()

	result, err := svc.CreateItem(ctx, production.CreateItemCommand{
		Name:            "Organic Flour",
		SKU:             "ORG-FLOUR-001",
		Type:            inventory.TypeIngredient,
		InventoryUnit:   "lbs",
		ReorderPoint:    dec("10"),
		InitialQuantity: dec("50"),
		UnitCost:        dec("0.75"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.TransactionID)

	item, err := svc.Items().Get(result.ItemID)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(item.CurrentQuantity))
	assert.True(t, dec("0.75").Equal(item.WeightedAverageCost))

	history, err := svc.TransactionHistory(ctx, result.ItemID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.TxSpotCheck, history[0].Type)
	assert.Equal(t, result.TransactionID, history[0].ID)
}

func TestCreateItem_NoOpeningStock_NoTransaction(t *testing.T) {
	svc := newTestService()

	result, err := svc.CreateItem(context.Background(), production.CreateItemCommand{
		Name:          "Honey Wheat Bread",
		SKU:           "BREAD-001",
		Type:          inventory.TypeProduct,
		InventoryUnit: "loaves",
	})
	require.NoError(t, err)
	assert.Empty(t, result.TransactionID)

	history, err := svc.TransactionHistory(context.Background(), result.ItemID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// =============================================================================
// RECIPES AND CAPACITY
// =============================================================================

func TestCreateRecipe_UnknownIngredient_Rejected(t *testing.T) {
	svc := newTestService()
	bread := createItem(t, svc, "Bread", "BREAD-001", inventory.TypeProduct, "0", "0")

	_, err := svc.CreateRecipe(context.Background(), recipe.Recipe{
		Name:          "Bread",
		YieldsItemID:  bread,
		ExpectedYield: dec("2"),
		Ingredients:   []recipe.Ingredient{{ItemID: "item-ghost", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestRecipeCapacity_ArchivedIngredientCountsAsZero(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	flour := createItem(t, svc, "Flour", "FLOUR-001", inventory.TypeIngredient, "10", "1")
	bread := createItem(t, svc, "Bread", "BREAD-001", inventory.TypeProduct, "0", "0")

	recID, err := svc.CreateRecipe(ctx, recipe.Recipe{
		Name:          "Bread",
		YieldsItemID:  bread,
		ExpectedYield: dec("2"),
		Ingredients:   []recipe.Ingredient{{ItemID: flour, Quantity: dec("2")}},
	})
	require.NoError(t, err)

	capacity, err := svc.RecipeCapacity(recID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), capacity.Count)

	require.NoError(t, svc.ArchiveItem(ctx, flour))

	capacity, err = svc.RecipeCapacity(recID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), capacity.Count)
	assert.Equal(t, flour, capacity.LimitingItemID)
}

func TestRecipeCapacity_IndependentOfReorderPoint(t *testing.T) {
	// GIVEN: Two services differing only in the flour reorder point; one
	// flags the flour as low stock, the other as comfortably stocked
	capacityWith := func(reorder string) int64 {
		svc := newTestService()
		ctx := context.Background()

		result, err := svc.CreateItem(ctx, production.CreateItemCommand{
			Name:            "Flour",
			SKU:             "FLOUR-001",
			Type:            inventory.TypeIngredient,
			InventoryUnit:   "lbs",
			ReorderPoint:    dec(reorder),
			InitialQuantity: dec("10"),
			UnitCost:        dec("1"),
		})
		require.NoError(t, err)
		bread := createItem(t, svc, "Bread", "BREAD-001", inventory.TypeProduct, "0", "0")

		recID, err := svc.CreateRecipe(ctx, recipe.Recipe{
			Name:          "Bread",
			YieldsItemID:  bread,
			ExpectedYield: dec("2"),
			Ingredients:   []recipe.Ingredient{{ItemID: result.ItemID, Quantity: dec("2")}},
		})
		require.NoError(t, err)

		capacity, err := svc.RecipeCapacity(recID)
		require.NoError(t, err)
		return capacity.Count
	}

	// WHEN/THEN: Capacity depends on stock alone, never the reorder point
	assert.Equal(t, int64(5), capacityWith("0"))
	assert.Equal(t, int64(5), capacityWith("50"))
}

func TestArchiveItem_NeverSplitsAConcurrentPurchase(t *testing.T) {
	// GIVEN: A two-line purchase racing an archive of the second line's item
	// THEN: The two serialize through the item locks: either the whole
	//       purchase lands before the archive, or no line lands at all
	for round := 0; round < 25; round++ {
		svc := newTestService()
		ctx := context.Background()

		flour := createItem(t, svc, "Flour", "FLOUR-001", inventory.TypeIngredient, "0", "0")
		salt := createItem(t, svc, "Salt", "SALT-001", inventory.TypeIngredient, "0", "0")
		supplier := createSupplier(t, svc)

		var wg sync.WaitGroup
		var purchaseErr, archiveErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, purchaseErr = svc.RecordPurchase(ctx, production.RecordPurchaseCommand{
				SupplierID: string(supplier),
				Lines: []production.PurchaseLine{
					{ItemID: flour, Quantity: dec("5"), UnitCost: dec("1")},
					{ItemID: salt, Quantity: dec("5"), UnitCost: dec("1")},
				},
			})
		}()
		go func() {
			defer wg.Done()
			archiveErr = svc.ArchiveItem(ctx, salt)
		}()
		wg.Wait()

		if archiveErr != nil {
			assert.True(t, ledger.IsRetryable(archiveErr), "unexpected archive error: %v", archiveErr)
		}

		flourHist, err := svc.TransactionHistory(ctx, flour)
		require.NoError(t, err)
		saltHist, err := svc.TransactionHistory(ctx, salt)
		require.NoError(t, err)
		assert.Equal(t, len(flourHist), len(saltHist), "a concurrent archive split the purchase")

		if purchaseErr != nil {
			ok := errors.Is(purchaseErr, ledger.ErrItemArchived) || ledger.IsRetryable(purchaseErr)
			assert.True(t, ok, "unexpected purchase error: %v", purchaseErr)
			assert.Empty(t, flourHist)
		} else {
			assert.Len(t, flourHist, 1)
		}
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_InventoryValueAndStockSignals(t *testing.T) {
	svc := newTestService()

	// 10 lbs @ $2 = $20, plus 2 units @ $5 = $10, total $30.
	createItem(t, svc, "Flour", "FLOUR-001", inventory.TypeIngredient, "10", "2")
	low := createItem(t, svc, "Honey", "HONEY-001", inventory.TypeIngredient, "2", "5")

	m := svc.Dashboard(time.Now().UTC())
	assert.True(t, dec("30").Equal(m.InventoryValue), "got %s", m.InventoryValue)

	// Honey at 2 <= reorder point 5 is low stock.
	require.Len(t, m.LowStock, 1)
	assert.Equal(t, low, m.LowStock[0].ID)
	assert.Empty(t, m.OutOfStock)
	assert.Equal(t, 0, m.BatchesThisMonth)
}

// =============================================================================
// TRANSACTION HISTORY
// =============================================================================

func TestTransactionHistory_UnknownItem(t *testing.T) {
	svc := newTestService()
	_, err := svc.TransactionHistory(context.Background(), "item-ghost")
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}
