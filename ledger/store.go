/*
store.go - Persistence interface for the transaction log

PURPOSE:
  Defines the interface between the ledger and its storage. Implementations
  keep the append-only contract; the in-memory store backs tests and
  memory-only deployments, the SQLite store adds durability.

APPEND-ONLY CONTRACT:
  - Append():      single transaction write
  - AppendBatch(): atomic multi-transaction write (all-or-nothing)
  - NO Update() or Delete() methods exist. Corrections are new spot_check
    transactions.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: durable SQLite store

SEE ALSO:
  - ledger.go: Validation layer on top of the Store
*/
package ledger

import "context"

// Store handles persistence of transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a transaction. Fails with ErrDuplicateTransaction
	// if the transaction id already exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for an item in append order. Business
	// timestamps may be backdated, so append order is the chain order.
	Load(ctx context.Context, itemID ItemID) ([]Transaction, error)

	// Last returns the tail of an item's chain, or nil if the item has no
	// history yet.
	Last(ctx context.Context, itemID ItemID) (*Transaction, error)
}
