/*
ledger.go - Append-only inventory transaction log

PURPOSE:
  The Ledger is the single source of truth for "current quantity". Every
  purchase receipt, batch debit/credit, spot-check correction, and sale is
  recorded here. Cached quantities on items are projections of this log.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. SIGN-VS-TYPE: purchase and batch_creation increase; batch_usage and
     sale decrease; spot_check can go either way.
  3. PREFIX-SUM: NewQuantity[n] == NewQuantity[n-1] + QuantityChange[n]
     (zero base for the first transaction).
  4. NON-NEGATIVE: no transaction may drive NewQuantity below zero.

  Violations of 3 or 4 surface as InvariantError. Upstream command
  validation makes them unreachable, so an InvariantError in the wild means
  a design or concurrency defect, not bad user input.

CONCURRENCY:
  The Ledger itself does not lock. Callers serialize all writes touching an
  item through that item's lock (see locks.go) so the read-modify-write of
  the prefix chain cannot interleave.

SEE ALSO:
  - store.go: Persistence interface
  - locks.go: Per-item serialization
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger validates and appends transactions on top of a Store.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append validates a single transaction against the item's current chain
// and persists it. The caller must hold the item's lock.
func (l *Ledger) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := validateShape(tx); err != nil {
		return Transaction{}, err
	}

	last, err := l.store.Last(ctx, tx.ItemID)
	if err != nil {
		return Transaction{}, err
	}
	if err := checkChain(tx, prevQuantity(last)); err != nil {
		return Transaction{}, err
	}

	if err := l.store.Append(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// AppendBatch validates and persists several transactions atomically.
// Transactions in the batch may touch the same item more than once (e.g. a
// purchase with two lines for one item); the chain check threads the
// projected quantity through the batch in order. The caller must hold the
// locks of every item involved.
func (l *Ledger) AppendBatch(ctx context.Context, txs []Transaction) error {
	if len(txs) == 0 {
		return &ValidationError{Message: "empty transaction batch"}
	}

	projected := make(map[ItemID]decimal.Decimal, len(txs))
	for _, tx := range txs {
		if err := validateShape(tx); err != nil {
			return err
		}
		prev, seen := projected[tx.ItemID]
		if !seen {
			last, err := l.store.Last(ctx, tx.ItemID)
			if err != nil {
				return err
			}
			prev = prevQuantity(last)
		}
		if err := checkChain(tx, prev); err != nil {
			return err
		}
		projected[tx.ItemID] = tx.NewQuantity
	}

	return l.store.AppendBatch(ctx, txs)
}

// History returns the full ordered transaction sequence for an item.
// Finite and restartable: each call re-reads from the store.
func (l *Ledger) History(ctx context.Context, itemID ItemID) ([]Transaction, error) {
	return l.store.Load(ctx, itemID)
}

// Balance computes the item's quantity as the running sum of its history.
// This is the authoritative value; registry quantities must agree with it.
func (l *Ledger) Balance(ctx context.Context, itemID ItemID) (decimal.Decimal, error) {
	txs, err := l.store.Load(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.QuantityChange)
	}
	return sum, nil
}

// Verify replays an item's history and checks prefix-sum consistency.
// Used by audits and tests; a failure here means the store was corrupted
// or a writer bypassed Append.
func (l *Ledger) Verify(ctx context.Context, itemID ItemID) error {
	txs, err := l.store.Load(ctx, itemID)
	if err != nil {
		return err
	}
	running := decimal.Zero
	for i, tx := range txs {
		running = running.Add(tx.QuantityChange)
		if !tx.NewQuantity.Equal(running) {
			return &InvariantError{
				ItemID:  itemID,
				Detail:  fmt.Sprintf("prefix-sum mismatch at position %d (tx %s)", i, tx.ID),
				Balance: running,
			}
		}
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateShape(tx Transaction) error {
	if tx.ID == "" {
		return &ValidationError{Field: "id", Message: "transaction id is required"}
	}
	if tx.ItemID == "" {
		return &ValidationError{Field: "itemId", Message: "item id is required"}
	}
	if !tx.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", tx.Type)}
	}
	if tx.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	if tx.QuantityChange.IsZero() {
		return &ValidationError{Field: "quantityChange", Message: "quantity change must be non-zero"}
	}
	if tx.Type.Increases() && !tx.QuantityChange.IsPositive() {
		return &ValidationError{Field: "quantityChange",
			Message: fmt.Sprintf("%s transactions must increase quantity", tx.Type)}
	}
	if tx.Type.Decreases() && !tx.QuantityChange.IsNegative() {
		return &ValidationError{Field: "quantityChange",
			Message: fmt.Sprintf("%s transactions must decrease quantity", tx.Type)}
	}
	return nil
}

func checkChain(tx Transaction, prev decimal.Decimal) error {
	expected := prev.Add(tx.QuantityChange)
	if !tx.NewQuantity.Equal(expected) {
		return &InvariantError{
			ItemID:  tx.ItemID,
			Detail:  fmt.Sprintf("newQuantity %s does not extend the chain (expected %s)", tx.NewQuantity, expected),
			Balance: prev,
		}
	}
	if tx.NewQuantity.IsNegative() {
		return &InvariantError{
			ItemID:  tx.ItemID,
			Detail:  fmt.Sprintf("transaction %s would drive quantity negative", tx.ID),
			Balance: tx.NewQuantity,
		}
	}
	return nil
}

func prevQuantity(last *Transaction) decimal.Decimal {
	if last == nil {
		return decimal.Zero
	}
	return last.NewQuantity
}
