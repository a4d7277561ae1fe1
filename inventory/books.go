/*
books.go - The single write path for item quantities and costs

PURPOSE:
  Books binds the ledger to the registry: a transaction is first validated
  and appended to the ledger, then the item's cached CurrentQuantity is
  moved to the transaction's post-state. Both happen inside the caller's
  per-item critical section, so the cache can never be observed out of sync
  with the log.

LOCKING CONTRACT:
  Every method here assumes the caller holds the locks (Locks()) of every
  item it touches, acquired in ascending id order for multi-item commands.
  Books does not lock on its own - the command layer owns the critical
  section because validation must happen inside it too.

SEE ALSO:
  - ledger/locks.go: Lock manager
  - costing.go: Weighted-average computation used on receipt
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

// Books is the ledger-backed write surface over the registry.
type Books struct {
	ledger   *ledger.Ledger
	registry *Registry
	locks    *ledger.ItemLocks
}

func NewBooks(l *ledger.Ledger, r *Registry) *Books {
	return &Books{ledger: l, registry: r, locks: ledger.NewItemLocks()}
}

func (b *Books) Registry() *Registry      { return b.registry }
func (b *Books) Ledger() *ledger.Ledger   { return b.ledger }
func (b *Books) Locks() *ledger.ItemLocks { return b.locks }

// Apply appends one transaction and projects it onto the item's cached
// quantity. Caller holds the item's lock.
func (b *Books) Apply(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	appended, err := b.ledger.Append(ctx, tx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := b.registry.applyQuantity(appended); err != nil {
		return ledger.Transaction{}, err
	}
	return appended, nil
}

// ApplyBatch appends several transactions atomically and projects each of
// them. Caller holds every affected item's lock; no partial visibility is
// possible because the locks are released only after this returns.
func (b *Books) ApplyBatch(ctx context.Context, txs []ledger.Transaction) error {
	if err := b.ledger.AppendBatch(ctx, txs); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := b.registry.applyQuantity(tx); err != nil {
			return err
		}
	}
	return nil
}

// OpeningCount records an item's starting stock as a spot-check transaction
// and seeds its cost. With zero prior stock the weighted average collapses
// to the opening unit cost exactly. Caller holds the item's lock.
func (b *Books) OpeningCount(ctx context.Context, itemID ledger.ItemID, qty, unitCost decimal.Decimal, sourceID string, at time.Time) (ledger.Transaction, error) {
	item, err := b.registry.Get(itemID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx := ledger.Transaction{
		ID:             ledger.NewTransactionID(),
		ItemID:         itemID,
		QuantityChange: qty,
		NewQuantity:    item.CurrentQuantity.Add(qty),
		Type:           ledger.TxSpotCheck,
		SourceID:       sourceID,
		Timestamp:      at,
		CreatedAt:      time.Now().UTC(),
	}

	appended, err := b.Apply(ctx, tx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := b.registry.setCost(itemID, ledger.RoundCost(unitCost)); err != nil {
		return ledger.Transaction{}, err
	}
	return appended, nil
}

// MarkCounted records that a spot check confirmed the live quantity, so no
// correcting transaction was needed.
func (b *Books) MarkCounted(itemID ledger.ItemID, at time.Time) error {
	return b.registry.markCounted(itemID, at)
}

// ReceiveLine processes one purchase line item: the weighted-average cost
// is recomputed from the PRE-purchase quantity, then the quantity increase
// is appended. Caller holds the item's lock.
func (b *Books) ReceiveLine(ctx context.Context, itemID ledger.ItemID, qty, unitCost decimal.Decimal, sourceID string, at time.Time) (ledger.Transaction, error) {
	item, err := b.registry.Get(itemID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if item.IsArchived {
		return ledger.Transaction{}, ledger.ErrItemArchived
	}

	newCost := WeightedAverage(item.CurrentQuantity, item.WeightedAverageCost, qty, unitCost)

	tx := ledger.Transaction{
		ID:             ledger.NewTransactionID(),
		ItemID:         itemID,
		QuantityChange: qty,
		NewQuantity:    item.CurrentQuantity.Add(qty),
		Type:           ledger.TxPurchase,
		SourceID:       sourceID,
		Timestamp:      at,
		CreatedAt:      time.Now().UTC(),
	}

	appended, err := b.Apply(ctx, tx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := b.registry.setCost(itemID, newCost); err != nil {
		return ledger.Transaction{}, err
	}
	return appended, nil
}
