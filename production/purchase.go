/*
purchase.go - Purchase recording

PURPOSE:
  RecordPurchase turns a supplier order into ledger state: one purchase
  transaction per line item, with the weighted-average cost recomputed from
  the pre-receipt quantity before each line lands. All line-item locks are
  taken up front (ascending id order), so a purchase is atomic with respect
  to concurrent batches, sales, and spot checks.

INVARIANT:
  Purchase.GrandTotal == sum of line TotalCost.
*/
package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
)

// PurchaseLine is one incoming lot of one item.
type PurchaseLine struct {
	ItemID    ledger.ItemID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	LotNumber string
}

type RecordPurchaseCommand struct {
	SupplierID   string
	PurchaseDate time.Time
	Notes        string
	Lines        []PurchaseLine
}

// RecordPurchase validates and commits a purchase.
func (s *Service) RecordPurchase(ctx context.Context, cmd RecordPurchaseCommand) (Purchase, error) {
	if len(cmd.Lines) == 0 {
		return Purchase{}, &ledger.ValidationError{Field: "lineItems", Message: "at least one line item is required"}
	}
	supplier, err := s.suppliers.Get(inventory.SupplierID(cmd.SupplierID))
	if err != nil {
		return Purchase{}, err
	}
	if cmd.PurchaseDate.IsZero() {
		cmd.PurchaseDate = time.Now().UTC()
	}

	itemIDs := make([]ledger.ItemID, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		if !line.Quantity.IsPositive() {
			return Purchase{}, &ledger.ValidationError{Field: "quantity", Message: "line quantity must be greater than 0"}
		}
		if line.UnitCost.IsNegative() {
			return Purchase{}, &ledger.ValidationError{Field: "unitCost", Message: "unit cost must be 0 or greater"}
		}
		item, err := s.books.Registry().Get(line.ItemID)
		if err != nil {
			return Purchase{}, err
		}
		if item.IsArchived {
			return Purchase{}, ledger.ErrItemArchived
		}
		itemIDs = append(itemIDs, line.ItemID)
	}

	release, err := s.books.Locks().Acquire(itemIDs...)
	if err != nil {
		return Purchase{}, err
	}
	defer release()

	purchase := Purchase{
		ID:           newID("pur"),
		SupplierID:   supplier.ID,
		PurchaseDate: cmd.PurchaseDate,
		GrandTotal:   decimal.Zero,
		Notes:        cmd.Notes,
		CreatedAt:    time.Now().UTC(),
	}

	var recorded []ledger.Transaction
	for _, line := range cmd.Lines {
		tx, err := s.books.ReceiveLine(ctx, line.ItemID, line.Quantity, ledger.RoundCost(line.UnitCost), purchase.ID, cmd.PurchaseDate)
		if err != nil {
			return Purchase{}, err
		}
		recorded = append(recorded, tx)

		total := line.Quantity.Mul(ledger.RoundCost(line.UnitCost)).Round(2)
		purchase.Lines = append(purchase.Lines, PurchaseLineItem{
			ID:            newID("pli"),
			ItemID:        line.ItemID,
			Quantity:      line.Quantity,
			UnitCost:      ledger.RoundCost(line.UnitCost),
			TotalCost:     total,
			LotNumber:     line.LotNumber,
			TransactionID: tx.ID,
		})
		purchase.GrandTotal = purchase.GrandTotal.Add(total)
	}

	// Durable writes happen before the locks drop.
	for _, id := range itemIDs {
		if err := s.persistItem(ctx, id); err != nil {
			return Purchase{}, err
		}
	}
	if s.persist != nil {
		if err := s.persist.SavePurchase(ctx, purchase); err != nil {
			return Purchase{}, err
		}
	}

	s.mu.Lock()
	s.purchases = append(s.purchases, purchase)
	s.mu.Unlock()

	for _, tx := range recorded {
		s.publisher.TransactionRecorded(ctx, tx)
	}
	for _, id := range itemIDs {
		s.signalStock(ctx, id)
	}

	s.log.Info().
		Str("purchase_id", purchase.ID).
		Str("supplier_id", string(supplier.ID)).
		Int("lines", len(purchase.Lines)).
		Str("grand_total", purchase.GrandTotal.String()).
		Msg("purchase recorded")
	return purchase, nil
}
