package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
)

func flour() inventory.Item {
	return inventory.Item{
		Name:          "Organic Flour",
		SKU:           "ORG-FLOUR-001",
		Type:          inventory.TypeIngredient,
		InventoryUnit: "lbs",
		ReorderPoint:  dec("10"),
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_Create_StartsAtZero(t *testing.T) {
	// Quantity and cost on the input are ignored; stock arrives through
	// ledger transactions only.
	r := inventory.NewRegistry()

	in := flour()
	in.CurrentQuantity = dec("99")
	in.WeightedAverageCost = dec("5")

	id, err := r.Create(in)
	require.NoError(t, err)

	item, err := r.Get(id)
	require.NoError(t, err)
	assert.True(t, item.CurrentQuantity.IsZero())
	assert.True(t, item.WeightedAverageCost.IsZero())
	assert.False(t, item.CreatedAt.IsZero())
}

func TestRegistry_Create_DuplicateSKU_Rejected(t *testing.T) {
	r := inventory.NewRegistry()

	first, err := r.Create(flour())
	require.NoError(t, err)

	dup := flour()
	dup.Name = "Different Name"
	_, err = r.Create(dup)

	var skuErr *ledger.DuplicateSKUError
	require.ErrorAs(t, err, &skuErr)
	assert.Equal(t, "ORG-FLOUR-001", skuErr.SKU)
	assert.Equal(t, first, skuErr.ExistingID)
	assert.ErrorIs(t, err, ledger.ErrDuplicateSKU)
}

func TestRegistry_Create_ValidatesRequiredFields(t *testing.T) {
	r := inventory.NewRegistry()

	cases := []struct {
		name   string
		mutate func(*inventory.Item)
	}{
		{"missing name", func(i *inventory.Item) { i.Name = "" }},
		{"missing sku", func(i *inventory.Item) { i.SKU = "" }},
		{"bad type", func(i *inventory.Item) { i.Type = "gadget" }},
		{"missing unit", func(i *inventory.Item) { i.InventoryUnit = "" }},
		{"negative reorder point", func(i *inventory.Item) { i.ReorderPoint = dec("-1") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := flour()
			tc.mutate(&item)
			_, err := r.Create(item)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}
}

func TestRegistry_Archive_KeepsItemReadable(t *testing.T) {
	r := inventory.NewRegistry()
	id, err := r.Create(flour())
	require.NoError(t, err)

	require.NoError(t, r.Archive(id))

	item, err := r.Get(id)
	require.NoError(t, err)
	assert.True(t, item.IsArchived)

	// Hidden from default listings, visible when asked for.
	assert.Empty(t, r.List(inventory.Filter{}))
	assert.Len(t, r.List(inventory.Filter{IncludeArchived: true}), 1)
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := inventory.NewRegistry()
	_, err := r.Get("item-nope")
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestRegistry_List_Filters(t *testing.T) {
	r := inventory.NewRegistry()

	_, err := r.Create(flour())
	require.NoError(t, err)
	_, err = r.Create(inventory.Item{
		Name: "Mason Jars", SKU: "JAR-001", Type: inventory.TypePackaging, InventoryUnit: "pcs",
	})
	require.NoError(t, err)

	assert.Len(t, r.List(inventory.Filter{Type: inventory.TypeIngredient}), 1)
	assert.Len(t, r.List(inventory.Filter{Search: "jar"}), 1)
	assert.Len(t, r.List(inventory.Filter{Search: "ORG-FLOUR"}), 1)
	assert.Empty(t, r.List(inventory.Filter{Search: "honey"}))

	// Sorted by name.
	all := r.List(inventory.Filter{})
	require.Len(t, all, 2)
	assert.Equal(t, "Mason Jars", all[0].Name)
	assert.Equal(t, "Organic Flour", all[1].Name)
}

// =============================================================================
// REORDER CLASSIFICATION
// =============================================================================

func TestSnapshot_PartitionsByReorderPoint(t *testing.T) {
	r := inventory.NewRegistry()

	mk := func(name, sku, qty, reorder string) ledger.ItemID {
		id, err := r.Create(inventory.Item{
			Name: name, SKU: sku, Type: inventory.TypeIngredient,
			InventoryUnit: "lbs", ReorderPoint: dec(reorder),
		})
		require.NoError(t, err)
		item, err := r.Get(id)
		require.NoError(t, err)
		item.CurrentQuantity = dec(qty)
		require.NoError(t, r.Restore(item))
		return id
	}

	mk("Out", "SKU-OUT", "0", "10")
	mk("AtReorder", "SKU-LOW", "10", "10") // boundary: exactly at reorder = low
	mk("Plenty", "SKU-IN", "11", "10")

	snap := r.Snapshot()
	require.Len(t, snap.OutOfStock, 1)
	require.Len(t, snap.LowStock, 1)
	require.Len(t, snap.InStock, 1)
	assert.Equal(t, "Out", snap.OutOfStock[0].Name)
	assert.Equal(t, "AtReorder", snap.LowStock[0].Name)
	assert.Equal(t, "Plenty", snap.InStock[0].Name)
}

func TestItem_Value(t *testing.T) {
	item := inventory.Item{CurrentQuantity: dec("4"), WeightedAverageCost: dec("2.5")}
	assert.True(t, decimal.NewFromInt(10).Equal(item.Value()))
}
