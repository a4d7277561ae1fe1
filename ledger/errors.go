/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error types in one place. Callers classify failures with errors.Is /
  errors.As; the HTTP layer maps each category to a status code.

ERROR CATEGORIES:
  1. Validation errors   - malformed command input, never retried
  2. Conflict errors     - stale counts, duplicate SKUs (client re-fetches)
  3. Stock errors        - batch/sale would overdraw an item
  4. Invariant errors    - internal bug signals; logged, never retried
  5. Lock contention     - transient, retried internally with backoff

SEE ALSO:
  - ledger.go: Raises invariant errors on append
  - locks.go: Raises ErrLockContention
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all malformed-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a batch or sale would consume
	// more of an item than is on hand. The whole command is rejected.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStaleCount is returned when a spot check's previousQuantity no
	// longer matches the item's live quantity. The caller must re-fetch
	// and resubmit; this is an expected optimistic-concurrency conflict.
	ErrStaleCount = errors.New("stale count")

	// ErrDuplicateSKU is returned on create-time SKU uniqueness violations.
	ErrDuplicateSKU = errors.New("duplicate SKU")

	// ErrLedgerInvariant is returned when an append would break the
	// prefix-sum chain or drive a quantity negative. Correct upstream
	// validation makes this unreachable, so its presence is a bug signal:
	// it is logged and never retried.
	ErrLedgerInvariant = errors.New("ledger invariant violated")

	// ErrDuplicateTransaction is returned when a transaction id is appended
	// twice. Protects against double-submitted commands.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrLockContention is returned when per-item locks could not be
	// acquired within the retry budget. Transient; safe to retry.
	ErrLockContention = errors.New("item lock contention")

	// Not-found sentinels.
	ErrItemNotFound     = errors.New("item not found")
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrItemArchived     = errors.New("item is archived")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a malformed or missing command input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientStockError identifies the short item and the shortfall.
type InsufficientStockError struct {
	ItemID    ItemID
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: required %s, available %s",
		e.ItemID, e.Required, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StaleCountError reports an optimistic-concurrency conflict on a spot check.
type StaleCountError struct {
	ItemID   ItemID
	Expected decimal.Decimal // what the caller thought the quantity was
	Actual   decimal.Decimal // the live quantity
}

func (e *StaleCountError) Error() string {
	return fmt.Sprintf("stale count for %s: previous quantity %s, current is %s",
		e.ItemID, e.Expected, e.Actual)
}

func (e *StaleCountError) Unwrap() error { return ErrStaleCount }

// DuplicateSKUError reports a SKU uniqueness violation.
type DuplicateSKUError struct {
	SKU        string
	ExistingID ItemID
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("SKU %q already in use by item %s", e.SKU, e.ExistingID)
}

func (e *DuplicateSKUError) Unwrap() error { return ErrDuplicateSKU }

// InvariantError carries the detail of a broken ledger invariant.
type InvariantError struct {
	ItemID  ItemID
	Detail  string
	Balance decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger invariant violated for %s: %s (balance %s)",
		e.ItemID, e.Detail, e.Balance)
}

func (e *InvariantError) Unwrap() error { return ErrLedgerInvariant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockContention)
}

// IsClientError returns true if the error is due to invalid client input
// or an expected conflict, as opposed to a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrStaleCount) ||
		errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrDuplicateTransaction) ||
		errors.Is(err, ErrItemArchived)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrRecipeNotFound) ||
		errors.Is(err, ErrSupplierNotFound)
}
