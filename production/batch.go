/*
batch.go - Batch processor

PURPOSE:
  Orchestrates a production run as a small state machine:

      Requested -> Validated -> Committed   (terminal)
      Requested -> Rejected                 (terminal)

  Validated: every ingredient's required quantity (per-batch quantity x
  batches being made) fits within its current stock. Any shortfall rejects
  the WHOLE batch with InsufficientStock - no partial debits, ever.

  Committed: one batch_usage transaction per ingredient (negative) and one
  batch_creation transaction for the output (positive, qtyMade) are
  appended atomically. Material cost is the sum of ingredient quantities
  times their weighted-average cost at commit time - consumption reads the
  average, it never recomputes it.

  All affected item locks (ingredients + output) are held from before
  validation until after the durable append, so the all-or-nothing rule is
  a concurrency invariant too, not just a validation rule.

COST VARIANCE:
  Material-only: actual material cost minus the recipe's projected material
  cost scaled to the batches produced. Labor is tracked separately.
*/
package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/recipe"
)

var oneHundred = decimal.NewFromInt(100)

type RecordBatchCommand struct {
	RecipeID  recipe.RecipeID
	Date      time.Time
	Batches   int64 // recipe runs; defaults to 1
	QtyMade   decimal.Decimal
	LaborCost decimal.Decimal
	Notes     string
}

// RecordBatch validates and commits one production run.
func (s *Service) RecordBatch(ctx context.Context, cmd RecordBatchCommand) (Batch, error) {
	r, err := s.recipes.Latest(cmd.RecipeID)
	if err != nil {
		return Batch{}, err
	}
	if cmd.Batches <= 0 {
		cmd.Batches = 1
	}
	if !cmd.QtyMade.IsPositive() {
		return Batch{}, &ledger.ValidationError{Field: "qtyMade", Message: "quantity made must be greater than 0"}
	}
	if cmd.LaborCost.IsNegative() {
		return Batch{}, &ledger.ValidationError{Field: "laborCost", Message: "labor cost must be 0 or greater"}
	}
	if cmd.Date.IsZero() {
		cmd.Date = time.Now().UTC()
	}
	output, err := s.books.Registry().Get(r.YieldsItemID)
	if err != nil {
		return Batch{}, err
	}
	if output.IsArchived {
		return Batch{}, ledger.ErrItemArchived
	}

	batch := Batch{
		ID:            newID("batch"),
		RecipeID:      r.ID,
		RecipeVersion: r.Version,
		Status:        BatchRequested,
		DateCreated:   cmd.Date,
		Batches:       cmd.Batches,
		QtyMade:       cmd.QtyMade,
		LaborCost:     cmd.LaborCost,
		Notes:         cmd.Notes,
		CreatedAt:     time.Now().UTC(),
	}

	// Lock every touched item before reading any quantity; validation and
	// commit share one critical section.
	locked := make([]ledger.ItemID, 0, len(r.Ingredients)+1)
	for _, ing := range r.Ingredients {
		locked = append(locked, ing.ItemID)
	}
	locked = append(locked, r.YieldsItemID)

	release, err := s.books.Locks().Acquire(locked...)
	if err != nil {
		return Batch{}, err
	}
	defer release()

	batches := decimal.NewFromInt(cmd.Batches)
	txs := make([]ledger.Transaction, 0, len(r.Ingredients)+1)
	materialCost := decimal.Zero

	for _, ing := range r.Ingredients {
		item, err := s.books.Registry().Get(ing.ItemID)
		if err != nil {
			return Batch{}, err
		}
		required := ing.Quantity.Mul(batches)
		if required.GreaterThan(item.CurrentQuantity) {
			batch.Status = BatchRejected
			return batch, &ledger.InsufficientStockError{
				ItemID:    ing.ItemID,
				Required:  required,
				Available: item.CurrentQuantity,
			}
		}
		materialCost = materialCost.Add(required.Mul(item.WeightedAverageCost))
		txs = append(txs, ledger.Transaction{
			ID:             ledger.NewTransactionID(),
			ItemID:         ing.ItemID,
			QuantityChange: required.Neg(),
			NewQuantity:    item.CurrentQuantity.Sub(required),
			Type:           ledger.TxBatchUsage,
			SourceID:       batch.ID,
			Timestamp:      cmd.Date,
			CreatedAt:      time.Now().UTC(),
		})
	}
	batch.Status = BatchValidated

	// Re-read the output under the lock; the pre-lock read was only for
	// the archived check.
	output, err = s.books.Registry().Get(r.YieldsItemID)
	if err != nil {
		return Batch{}, err
	}

	txs = append(txs, ledger.Transaction{
		ID:             ledger.NewTransactionID(),
		ItemID:         r.YieldsItemID,
		QuantityChange: cmd.QtyMade,
		NewQuantity:    output.CurrentQuantity.Add(cmd.QtyMade),
		Type:           ledger.TxBatchCreation,
		SourceID:       batch.ID,
		Timestamp:      cmd.Date,
		CreatedAt:      time.Now().UTC(),
	})

	if err := s.books.ApplyBatch(ctx, txs); err != nil {
		batch.Status = BatchRejected
		return batch, err
	}
	batch.Status = BatchCommitted

	batch.MaterialCost = materialCost.Round(2)
	batch.ActualCost = batch.MaterialCost.Add(cmd.LaborCost).Round(2)
	batch.CostVariance = batch.MaterialCost.Sub(r.ProjectedMaterialCost.Mul(batches)).Round(2)
	batch.YieldPercentage = cmd.QtyMade.Div(r.ExpectedYield.Mul(batches)).Mul(oneHundred).Round(2)
	for _, tx := range txs {
		batch.TransactionIDs = append(batch.TransactionIDs, tx.ID)
	}

	for _, id := range locked {
		if err := s.persistItem(ctx, id); err != nil {
			return Batch{}, err
		}
	}
	if s.persist != nil {
		if err := s.persist.SaveBatch(ctx, batch); err != nil {
			return Batch{}, err
		}
	}

	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()

	for _, tx := range txs {
		s.publisher.TransactionRecorded(ctx, tx)
	}
	for _, id := range locked {
		s.signalStock(ctx, id)
	}

	s.log.Info().
		Str("batch_id", batch.ID).
		Str("recipe_id", string(r.ID)).
		Int64("batches", cmd.Batches).
		Str("qty_made", cmd.QtyMade.String()).
		Str("material_cost", batch.MaterialCost.String()).
		Msg("batch committed")
	return batch, nil
}
