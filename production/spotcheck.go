/*
spotcheck.go - Manual count corrections

PURPOSE:
  A spot check reconciles a physical count with the books. The caller
  reports the quantity they saw when they started counting
  (previousQuantity); if it no longer matches the live quantity the count
  is stale - someone recorded a purchase, batch, or sale in between - and
  the command is rejected with StaleCountError so the caller can re-count.

  A matching count with no drift updates LastCountedDate and appends
  nothing; the ledger only records actual changes.
*/
package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
)

type RecordSpotCheckCommand struct {
	ItemID           ledger.ItemID
	PreviousQuantity decimal.Decimal
	CountedQuantity  decimal.Decimal
	Reason           string
	Notes            string
}

// RecordSpotCheck validates and records one count correction.
func (s *Service) RecordSpotCheck(ctx context.Context, cmd RecordSpotCheckCommand) (SpotCheck, error) {
	if cmd.CountedQuantity.IsNegative() {
		return SpotCheck{}, &ledger.ValidationError{Field: "countedQuantity", Message: "counted quantity must be 0 or greater"}
	}
	if cmd.Reason == "" {
		return SpotCheck{}, &ledger.ValidationError{Field: "reason", Message: "reason is required"}
	}
	if _, err := s.books.Registry().Get(cmd.ItemID); err != nil {
		return SpotCheck{}, err
	}

	release, err := s.books.Locks().Acquire(cmd.ItemID)
	if err != nil {
		return SpotCheck{}, err
	}
	defer release()

	// Re-read under the lock: the optimistic-concurrency check must see
	// the quantity no other writer can be changing.
	item, err := s.books.Registry().Get(cmd.ItemID)
	if err != nil {
		return SpotCheck{}, err
	}
	if !item.CurrentQuantity.Equal(cmd.PreviousQuantity) {
		return SpotCheck{}, &ledger.StaleCountError{
			ItemID:   cmd.ItemID,
			Expected: cmd.PreviousQuantity,
			Actual:   item.CurrentQuantity,
		}
	}

	now := time.Now().UTC()
	check := SpotCheck{
		ID:               newID("spot"),
		ItemID:           cmd.ItemID,
		PreviousQuantity: cmd.PreviousQuantity,
		NewQuantity:      cmd.CountedQuantity,
		Reason:           cmd.Reason,
		Notes:            cmd.Notes,
		Timestamp:        now,
	}

	delta := cmd.CountedQuantity.Sub(item.CurrentQuantity)
	if delta.IsZero() {
		// Count confirmed the books; nothing to correct.
		if err := s.books.MarkCounted(cmd.ItemID, now); err != nil {
			return SpotCheck{}, err
		}
	} else {
		tx, err := s.books.Apply(ctx, ledger.Transaction{
			ID:             ledger.NewTransactionID(),
			ItemID:         cmd.ItemID,
			QuantityChange: delta,
			NewQuantity:    cmd.CountedQuantity,
			Type:           ledger.TxSpotCheck,
			SourceID:       check.ID,
			Timestamp:      now,
			CreatedAt:      now,
		})
		if err != nil {
			return SpotCheck{}, err
		}
		check.TransactionID = tx.ID
		s.publisher.TransactionRecorded(ctx, tx)
	}

	if err := s.persistItem(ctx, cmd.ItemID); err != nil {
		return SpotCheck{}, err
	}
	if s.persist != nil {
		if err := s.persist.SaveSpotCheck(ctx, check); err != nil {
			return SpotCheck{}, err
		}
	}

	s.mu.Lock()
	s.spotChecks = append(s.spotChecks, check)
	s.mu.Unlock()

	s.signalStock(ctx, cmd.ItemID)

	s.log.Info().
		Str("spot_check_id", check.ID).
		Str("item_id", string(cmd.ItemID)).
		Str("delta", delta.String()).
		Str("reason", cmd.Reason).
		Msg("spot check recorded")
	return check, nil
}
