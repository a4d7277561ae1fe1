package production_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// breadSetup creates flour/honey/bread and a recipe consuming 2 flour and
// 0.5 honey per batch, yielding 2 loaves.
func breadSetup(t *testing.T, svc *production.Service, flourQty, honeyQty string) (flour, honey, bread ledger.ItemID, recID recipe.RecipeID) {
	t.Helper()
	flour = createItem(t, svc, "Flour", "FLOUR-001", inventory.TypeIngredient, flourQty, "0.75")
	honey = createItem(t, svc, "Honey", "HONEY-001", inventory.TypeIngredient, honeyQty, "4.50")
	bread = createItem(t, svc, "Bread", "BREAD-001", inventory.TypeProduct, "0", "0")

	var err error
	recID, err = svc.CreateRecipe(context.Background(), recipe.Recipe{
		Name:                  "Honey Wheat Bread",
		YieldsItemID:          bread,
		ExpectedYield:         dec("2"),
		LaborMinutes:          180,
		ProjectedMaterialCost: dec("3.75"),
		Ingredients: []recipe.Ingredient{
			{ItemID: flour, Quantity: dec("2")},
			{ItemID: honey, Quantity: dec("0.5")},
		},
	})
	require.NoError(t, err)
	return flour, honey, bread, recID
}

func TestRecordBatch_ConsumesAndCreates(t *testing.T) {
	// GIVEN: 50 flour and 20 honey on hand
	// WHEN: Committing 2 batch runs producing 4 loaves
	// THEN: Ingredients drop, output rises, costs and yield are computed

	svc := newTestService()
	ctx := context.Background()
	flour, honey, bread, recID := breadSetup(t, svc, "50", "20")

	batch, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID:  recID,
		Batches:   2,
		QtyMade:   dec("4"),
		LaborCost: dec("45"),
	})
	require.NoError(t, err)
	assert.Equal(t, production.BatchCommitted, batch.Status)

	// Material: 4*0.75 + 1*4.50 = 7.50. Actual: 7.50 + 45 = 52.50.
	assert.True(t, dec("7.50").Equal(batch.MaterialCost), "material %s", batch.MaterialCost)
	assert.True(t, dec("52.50").Equal(batch.ActualCost), "actual %s", batch.ActualCost)
	// Variance: 7.50 - 3.75*2 = 0.
	assert.True(t, batch.CostVariance.IsZero(), "variance %s", batch.CostVariance)
	// Yield: 4 / (2*2) * 100 = 100%.
	assert.True(t, dec("100").Equal(batch.YieldPercentage), "yield %s", batch.YieldPercentage)

	for id, want := range map[ledger.ItemID]string{flour: "46", honey: "19", bread: "4"} {
		item, err := svc.Items().Get(id)
		require.NoError(t, err)
		assert.True(t, dec(want).Equal(item.CurrentQuantity), "%s: want %s got %s", item.Name, want, item.CurrentQuantity)
	}

	// One usage tx per ingredient plus one creation tx.
	assert.Len(t, batch.TransactionIDs, 3)
	history, err := svc.TransactionHistory(ctx, bread)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.TxBatchCreation, history[0].Type)
	assert.Equal(t, batch.ID, history[0].SourceID)
}

func TestRecordBatch_InsufficientStock_NothingMoves(t *testing.T) {
	// GIVEN: Enough flour but only 0.4 honey (needs 0.5)
	// WHEN: Committing a batch
	// THEN: The whole batch is rejected and no quantity changed

	svc := newTestService()
	ctx := context.Background()
	flour, honey, bread, recID := breadSetup(t, svc, "50", "0.4")

	batch, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID: recID,
		QtyMade:  dec("2"),
	})
	require.Error(t, err)
	assert.Equal(t, production.BatchRejected, batch.Status)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, honey, stockErr.ItemID)
	assert.True(t, dec("0.5").Equal(stockErr.Required))
	assert.True(t, dec("0.4").Equal(stockErr.Available))

	// All-or-nothing: flour untouched even though it was sufficient.
	for id, want := range map[ledger.ItemID]string{flour: "50", honey: "0.4", bread: "0"} {
		item, err := svc.Items().Get(id)
		require.NoError(t, err)
		assert.True(t, dec(want).Equal(item.CurrentQuantity))
	}
	assert.Empty(t, svc.Batches())
}

func TestRecordBatch_YieldBelowExpected(t *testing.T) {
	// 3 loaves out of an expected 4 is a 75% yield.
	svc := newTestService()
	_, _, _, recID := breadSetup(t, svc, "50", "20")

	batch, err := svc.RecordBatch(context.Background(), production.RecordBatchCommand{
		RecipeID: recID,
		Batches:  2,
		QtyMade:  dec("3"),
	})
	require.NoError(t, err)
	assert.True(t, dec("75").Equal(batch.YieldPercentage), "got %s", batch.YieldPercentage)
}

func TestRecordBatch_VarianceTracksIngredientRepricing(t *testing.T) {
	// GIVEN: Flour repriced above the recipe's projection
	// WHEN: Committing a batch
	// THEN: The variance is positive (over budget), material-only

	svc := newTestService()
	ctx := context.Background()
	flour, _, _, recID := breadSetup(t, svc, "50", "20")
	supplier := createSupplier(t, svc)

	// Push flour from $0.75 to $1.50: 50@0.75 + 50@2.25 -> avg 1.50.
	_, err := svc.RecordPurchase(ctx, production.RecordPurchaseCommand{
		SupplierID: string(supplier),
		Lines:      []production.PurchaseLine{{ItemID: flour, Quantity: dec("50"), UnitCost: dec("2.25")}},
	})
	require.NoError(t, err)

	batch, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID:  recID,
		QtyMade:   dec("2"),
		LaborCost: dec("10"),
	})
	require.NoError(t, err)

	// Material: 2*1.50 + 0.5*4.50 = 5.25. Projected: 3.75. Variance: +1.50.
	assert.True(t, dec("5.25").Equal(batch.MaterialCost), "material %s", batch.MaterialCost)
	assert.True(t, dec("1.50").Equal(batch.CostVariance), "variance %s", batch.CostVariance)
	// Labor is excluded from the variance but included in actual cost.
	assert.True(t, dec("15.25").Equal(batch.ActualCost))
}

func TestRecordBatch_DefaultsToOneBatch(t *testing.T) {
	svc := newTestService()
	flour, _, _, recID := breadSetup(t, svc, "50", "20")

	batch, err := svc.RecordBatch(context.Background(), production.RecordBatchCommand{
		RecipeID: recID,
		QtyMade:  dec("2"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), batch.Batches)

	item, err := svc.Items().Get(flour)
	require.NoError(t, err)
	assert.True(t, dec("48").Equal(item.CurrentQuantity))
}

func TestRecordBatch_UsesLatestRecipeVersion(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	flour, honey, bread, recID := breadSetup(t, svc, "50", "20")

	// v2 halves the flour per batch.
	_, err := svc.UpdateRecipe(ctx, recID, recipe.Recipe{
		Name:                  "Honey Wheat Bread",
		YieldsItemID:          bread,
		ExpectedYield:         dec("2"),
		ProjectedMaterialCost: dec("3.00"),
		Ingredients: []recipe.Ingredient{
			{ItemID: flour, Quantity: dec("1")},
			{ItemID: honey, Quantity: dec("0.5")},
		},
	})
	require.NoError(t, err)

	batch, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
		RecipeID: recID,
		QtyMade:  dec("2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.RecipeVersion)

	item, err := svc.Items().Get(flour)
	require.NoError(t, err)
	assert.True(t, dec("49").Equal(item.CurrentQuantity))
}

func TestRecordBatch_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, _, _, recID := breadSetup(t, svc, "50", "20")

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := svc.RecordBatch(ctx, production.RecordBatchCommand{RecipeID: "rec-ghost", QtyMade: dec("1")})
		assert.ErrorIs(t, err, ledger.ErrRecipeNotFound)
	})

	t.Run("zero qty made", func(t *testing.T) {
		_, err := svc.RecordBatch(ctx, production.RecordBatchCommand{RecipeID: recID})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})

	t.Run("negative labor cost", func(t *testing.T) {
		_, err := svc.RecordBatch(ctx, production.RecordBatchCommand{
			RecipeID: recID, QtyMade: dec("1"), LaborCost: dec("-1"),
		})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}
