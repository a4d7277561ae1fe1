/*
Package ledger provides the append-only inventory transaction log.

PURPOSE:
  This package contains the core types and the Ledger itself: every
  quantity-changing event in the system (purchase receipt, batch usage,
  batch output, spot-check correction, sale) is recorded here as an
  immutable Transaction. An item's current quantity is always the running
  sum of its transactions - the ledger is authoritative, cached quantities
  elsewhere are projections.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry recording a quantity change
  - TransactionType: Which kind of event caused the change
  - ItemID/TransactionID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never edited; corrections are new
     spot_check transactions
  2. Precision: decimal.Decimal everywhere - no floating-point drift
  3. Redundancy with assertion: NewQuantity is stored on every transaction
     and verified against the prefix sum on append

SEE ALSO:
  - ledger.go: Append validation and history queries
  - store.go: Persistence interface
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type TransactionID string

// NewTransactionID returns a fresh random transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID("txn-" + uuid.NewString())
}

// =============================================================================
// COST PRECISION
// =============================================================================

// CostPrecision is the number of decimal digits carried for per-unit costs.
// Matches the `$X.XXXX per unit` convention of purchase entry.
const CostPrecision = 4

// RoundCost normalizes a per-unit cost to CostPrecision digits.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostPrecision)
}

// =============================================================================
// TRANSACTION - Atomic change to an item's quantity
// =============================================================================

type TransactionType string

const (
	TxPurchase      TransactionType = "purchase"       // Purchase line received (+)
	TxBatchUsage    TransactionType = "batch_usage"    // Ingredient consumed by a batch (-)
	TxBatchCreation TransactionType = "batch_creation" // Batch output produced (+)
	TxSpotCheck     TransactionType = "spot_check"     // Manual count correction (+/-)
	TxSale          TransactionType = "sale"           // Product sold (-)
)

// Increases reports whether this type must carry a positive QuantityChange.
func (t TransactionType) Increases() bool {
	return t == TxPurchase || t == TxBatchCreation
}

// Decreases reports whether this type must carry a negative QuantityChange.
func (t TransactionType) Decreases() bool {
	return t == TxBatchUsage || t == TxSale
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxBatchUsage, TxBatchCreation, TxSpotCheck, TxSale:
		return true
	}
	return false
}

// Transaction is one immutable entry in an item's history.
//
// INVARIANT: for one item, in append order, transactions form a strictly
// determined prefix-sum sequence: NewQuantity[n] == NewQuantity[n-1] +
// QuantityChange[n] (zero for the first entry). Created once, never mutated
// or deleted. Timestamp is the business date and may be backdated; stores
// keep chains in append order, so a retroactive entry extends the chain
// rather than rewriting it.
type Transaction struct {
	ID             TransactionID
	ItemID         ItemID
	QuantityChange decimal.Decimal // signed
	NewQuantity    decimal.Decimal // post-state, redundant but asserted
	Type           TransactionType
	SourceID       string // the Purchase/Batch/SpotCheck/Sale id that caused it
	Timestamp      time.Time // business date, possibly retroactive
	CreatedAt      time.Time // append time
}
