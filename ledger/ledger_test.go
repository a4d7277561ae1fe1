package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger() *ledger.Ledger {
	return ledger.New(store.NewMemory())
}

var baseTime = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func tx(id string, item string, change, newQty string, txType ledger.TransactionType, offset time.Duration) ledger.Transaction {
	return ledger.Transaction{
		ID:             ledger.TransactionID(id),
		ItemID:         ledger.ItemID(item),
		QuantityChange: dec(change),
		NewQuantity:    dec(newQty),
		Type:           txType,
		Timestamp:      baseTime.Add(offset),
		CreatedAt:      baseTime.Add(offset),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// CHAIN INVARIANT TESTS
// =============================================================================

func TestLedger_Append_ExtendsChain(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Appending two consistent transactions
	// THEN: Both land and the balance is their sum

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-1", "item-1", "50", "50", ledger.TxPurchase, 0))
	require.NoError(t, err)
	_, err = l.Append(ctx, tx("tx-2", "item-1", "-20", "30", ledger.TxSale, time.Minute))
	require.NoError(t, err)

	balance, err := l.Balance(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(balance), "balance should be 30, got %s", balance)
	assert.NoError(t, l.Verify(ctx, "item-1"))
}

func TestLedger_Append_BrokenChain_Rejected(t *testing.T) {
	// GIVEN: An item at quantity 50
	// WHEN: Appending a transaction whose NewQuantity does not extend the chain
	// THEN: It is rejected with InvariantError and nothing is written

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-1", "item-1", "50", "50", ledger.TxPurchase, 0))
	require.NoError(t, err)

	bad := tx("tx-2", "item-1", "-20", "25", ledger.TxSale, time.Minute) // should be 30
	_, err = l.Append(ctx, bad)

	var invErr *ledger.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, ledger.ErrLedgerInvariant)

	history, err := l.History(ctx, "item-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLedger_Append_NegativeQuantity_Rejected(t *testing.T) {
	// GIVEN: An item at quantity 10
	// WHEN: Appending a sale that would drive quantity below zero
	// THEN: It is rejected with InvariantError

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-1", "item-1", "10", "10", ledger.TxPurchase, 0))
	require.NoError(t, err)

	_, err = l.Append(ctx, tx("tx-2", "item-1", "-15", "-5", ledger.TxSale, time.Minute))
	assert.ErrorIs(t, err, ledger.ErrLedgerInvariant)
}

func TestLedger_Append_DuplicateID_Rejected(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-1", "item-1", "10", "10", ledger.TxPurchase, 0))
	require.NoError(t, err)

	_, err = l.Append(ctx, tx("tx-1", "item-1", "5", "15", ledger.TxPurchase, time.Minute))
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
}

// =============================================================================
// SHAPE VALIDATION TESTS
// =============================================================================

func TestLedger_Append_SignMustMatchType(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	cases := []struct {
		name string
		tx   ledger.Transaction
	}{
		{"purchase must increase", tx("tx-1", "item-1", "-5", "-5", ledger.TxPurchase, 0)},
		{"sale must decrease", tx("tx-2", "item-1", "5", "5", ledger.TxSale, 0)},
		{"batch_usage must decrease", tx("tx-3", "item-1", "5", "5", ledger.TxBatchUsage, 0)},
		{"batch_creation must increase", tx("tx-4", "item-1", "-5", "-5", ledger.TxBatchCreation, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Append(ctx, tc.tx)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}
}

func TestLedger_Append_ZeroChange_Rejected(t *testing.T) {
	l := newTestLedger()
	_, err := l.Append(context.Background(), tx("tx-1", "item-1", "0", "0", ledger.TxSpotCheck, 0))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestLedger_Append_SpotCheckGoesEitherWay(t *testing.T) {
	// Spot checks correct drift in both directions.
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-1", "item-1", "10", "10", ledger.TxSpotCheck, 0))
	require.NoError(t, err)
	_, err = l.Append(ctx, tx("tx-2", "item-1", "-3", "7", ledger.TxSpotCheck, time.Minute))
	require.NoError(t, err)
	assert.NoError(t, l.Verify(ctx, "item-1"))
}

// =============================================================================
// BATCH APPEND TESTS
// =============================================================================

func TestLedger_AppendBatch_AllOrNothing(t *testing.T) {
	// GIVEN: A batch where the last transaction breaks the chain
	// WHEN: Appending the batch
	// THEN: No transaction from the batch is visible

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, tx("tx-0", "item-1", "10", "10", ledger.TxPurchase, 0))
	require.NoError(t, err)

	err = l.AppendBatch(ctx, []ledger.Transaction{
		tx("tx-1", "item-1", "-2", "8", ledger.TxBatchUsage, time.Minute),
		tx("tx-2", "item-2", "-1", "-1", ledger.TxBatchUsage, time.Minute), // negative
	})
	require.Error(t, err)

	history, err := l.History(ctx, "item-1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "no partial writes")
}

func TestLedger_AppendBatch_ThreadsSameItemChain(t *testing.T) {
	// A batch may touch one item repeatedly; each transaction must extend
	// the quantity projected by the previous one in the batch.
	l := newTestLedger()
	ctx := context.Background()

	err := l.AppendBatch(ctx, []ledger.Transaction{
		tx("tx-1", "item-1", "10", "10", ledger.TxPurchase, 0),
		tx("tx-2", "item-1", "5", "15", ledger.TxPurchase, time.Minute),
	})
	require.NoError(t, err)

	balance, err := l.Balance(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(balance))
	assert.NoError(t, l.Verify(ctx, "item-1"))
}

func TestLedger_AppendBatch_Empty_Rejected(t *testing.T) {
	l := newTestLedger()
	err := l.AppendBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// ORDERING
// =============================================================================

func TestMemoryStore_LoadKeepsAppendOrder(t *testing.T) {
	// GIVEN: A backdated transaction appended after a current one
	// WHEN: Loading the history
	// THEN: It comes back in append order; the business date never
	//       reorders the chain

	m := store.NewMemory()
	ctx := context.Background()

	current := tx("tx-1", "item-1", "10", "10", ledger.TxPurchase, time.Hour)
	backdated := tx("tx-2", "item-1", "5", "15", ledger.TxPurchase, 0)

	require.NoError(t, m.Append(ctx, current))
	require.NoError(t, m.Append(ctx, backdated))

	txs, err := m.Load(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TransactionID("tx-1"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("tx-2"), txs[1].ID)

	last, err := m.Last(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionID("tx-2"), last.ID)
}

func TestAppend_BackdatedTimestampExtendsChain(t *testing.T) {
	// GIVEN: A chain whose tail carries today's date
	l := newTestLedger()
	ctx := context.Background()
	_, err := l.Append(ctx, tx("tx-1", "item-1", "10", "10", ledger.TxSpotCheck, 24*time.Hour))
	require.NoError(t, err)

	// WHEN: A retroactive entry dated before the tail is appended
	_, err = l.Append(ctx, tx("tx-2", "item-1", "5", "15", ledger.TxPurchase, 0))
	require.NoError(t, err)

	// THEN: It lands at the tail and the prefix-sum replay still holds
	require.NoError(t, l.Verify(ctx, "item-1"))

	balance, err := l.Balance(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("15")))
}

// =============================================================================
// COST ROUNDING
// =============================================================================

func TestRoundCost_FourDecimalPlaces(t *testing.T) {
	assert.True(t, dec("3.1416").Equal(ledger.RoundCost(dec("3.14159"))))
	assert.True(t, dec("2").Equal(ledger.RoundCost(dec("2"))))
	assert.True(t, dec("0.0001").Equal(ledger.RoundCost(dec("0.00005"))))
}
