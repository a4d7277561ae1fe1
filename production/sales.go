/*
sales.go - Per-event sales and monthly rollups

PURPOSE:
  RecordSale appends one `sale` transaction per sold product - the
  ledger-accurate record - and maintains the SalesMonth rollup that feeds
  reports. The rollup is a derived view, never a write source; an imported
  rollup (POS backfill) can coexist with manual entries but ledger
  transactions stay authoritative.
*/
package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
)

type RecordSaleCommand struct {
	ProductID ledger.ItemID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Date      time.Time
	Notes     string
}

// RecordSale validates and records one sale of a finished product.
func (s *Service) RecordSale(ctx context.Context, cmd RecordSaleCommand) (Sale, error) {
	if !cmd.Quantity.IsPositive() {
		return Sale{}, &ledger.ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
	}
	if cmd.UnitPrice.IsNegative() {
		return Sale{}, &ledger.ValidationError{Field: "unitPrice", Message: "unit price must be 0 or greater"}
	}
	if cmd.Date.IsZero() {
		cmd.Date = time.Now().UTC()
	}

	item, err := s.books.Registry().Get(cmd.ProductID)
	if err != nil {
		return Sale{}, err
	}
	if item.IsArchived {
		return Sale{}, ledger.ErrItemArchived
	}
	if item.Type != inventory.TypeProduct {
		return Sale{}, &ledger.ValidationError{Field: "productId", Message: "only product items can be sold"}
	}

	release, err := s.books.Locks().Acquire(cmd.ProductID)
	if err != nil {
		return Sale{}, err
	}
	defer release()

	// Re-read under the lock before the stock check.
	item, err = s.books.Registry().Get(cmd.ProductID)
	if err != nil {
		return Sale{}, err
	}
	if cmd.Quantity.GreaterThan(item.CurrentQuantity) {
		return Sale{}, &ledger.InsufficientStockError{
			ItemID:    cmd.ProductID,
			Required:  cmd.Quantity,
			Available: item.CurrentQuantity,
		}
	}

	sale := Sale{
		ID:        newID("sale"),
		ItemID:    cmd.ProductID,
		Quantity:  cmd.Quantity,
		UnitPrice: cmd.UnitPrice.Round(2),
		Total:     cmd.Quantity.Mul(cmd.UnitPrice).Round(2),
		Date:      cmd.Date,
		Notes:     cmd.Notes,
	}

	tx, err := s.books.Apply(ctx, ledger.Transaction{
		ID:             ledger.NewTransactionID(),
		ItemID:         cmd.ProductID,
		QuantityChange: cmd.Quantity.Neg(),
		NewQuantity:    item.CurrentQuantity.Sub(cmd.Quantity),
		Type:           ledger.TxSale,
		SourceID:       sale.ID,
		Timestamp:      cmd.Date,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Sale{}, err
	}
	sale.TransactionID = tx.ID

	if err := s.persistItem(ctx, cmd.ProductID); err != nil {
		return Sale{}, err
	}
	if s.persist != nil {
		if err := s.persist.SaveSale(ctx, sale); err != nil {
			return Sale{}, err
		}
	}

	month := s.rollUpSale(sale)
	if s.persist != nil {
		if err := s.persist.SaveSalesMonth(ctx, month); err != nil {
			return Sale{}, err
		}
	}

	s.publisher.TransactionRecorded(ctx, tx)
	s.signalStock(ctx, cmd.ProductID)

	s.log.Info().
		Str("sale_id", sale.ID).
		Str("item_id", string(cmd.ProductID)).
		Str("quantity", cmd.Quantity.String()).
		Str("total", sale.Total.String()).
		Msg("sale recorded")
	return sale, nil
}

// rollUpSale folds one sale into its month's aggregate.
func (s *Service) rollUpSale(sale Sale) SalesMonth {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, sale)

	key := salesMonthKey{ItemID: sale.ItemID, Year: sale.Date.Year(), Month: sale.Date.Month()}
	sm, ok := s.salesMonths[key]
	if !ok {
		sm = &SalesMonth{
			ID:         newID("sales"),
			ItemID:     sale.ItemID,
			Year:       key.Year,
			Month:      key.Month,
			DataSource: "manual",
		}
		s.salesMonths[key] = sm
	}
	sm.QuantitySold = sm.QuantitySold.Add(sale.Quantity)
	return *sm
}
