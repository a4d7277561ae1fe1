/*
Package sqlite provides the durable SQLite-backed storage for the engine.

PURPOSE:
  Implements ledger.Store (the append-only transaction log) and
  production.Persister (write-through copies of catalog rows and
  production records). In production with PostgreSQL the same schema
  applies with minor dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE ever touches the transactions table; corrections
  are new spot_check transactions. Catalog rows (items, suppliers,
  recipes) are upserted because they are projections, not history.

DURABILITY CONTRACT:
  The command layer calls these writers inside its per-item critical
  section, so the durable state is never observed ahead of or behind the
  in-memory ledger.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

SEE ALSO:
  - ledger/store.go: Store interface this implements
  - production/types.go: Persister interface this implements
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
)

// Store implements ledger.Store and production.Persister over SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	_ ledger.Store         = (*Store)(nil)
	_ production.Persister = (*Store)(nil)
)

// New opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger). seq is the chain order: the
	-- prefix-sum invariant holds in append order, not business-date order,
	-- because timestamp may be backdated for retroactive entry.
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		item_id TEXT NOT NULL,
		quantity_change TEXT NOT NULL,
		new_quantity TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		source_id TEXT,
		timestamp TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: per-item history in chain order
	CREATE INDEX IF NOT EXISTS idx_transactions_item_seq
		ON transactions(item_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transactions_source
		ON transactions(source_id) WHERE source_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_type
		ON transactions(tx_type);

	-- Items (catalog projection; quantity and cost are cached values)
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		item_type TEXT NOT NULL,
		inventory_unit TEXT NOT NULL,
		current_quantity TEXT NOT NULL,
		weighted_average_cost TEXT NOT NULL,
		reorder_point TEXT NOT NULL,
		last_counted_date TEXT,
		is_archived BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		store_url TEXT,
		phone TEXT,
		is_archived BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Recipes (immutable versioned rows; ingredient list kept as JSON)
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		is_archived BOOLEAN DEFAULT FALSE,
		yields_item_id TEXT NOT NULL,
		expected_yield TEXT NOT NULL,
		labor_minutes INTEGER DEFAULT 0,
		projected_material_cost TEXT NOT NULL,
		ingredients_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (id, version)
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL,
		purchase_date TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		notes TEXT,
		lines_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		recipe_id TEXT NOT NULL,
		recipe_version INTEGER NOT NULL,
		status TEXT NOT NULL,
		date_created TEXT NOT NULL,
		batches INTEGER NOT NULL,
		qty_made TEXT NOT NULL,
		yield_percentage TEXT NOT NULL,
		material_cost TEXT NOT NULL,
		labor_cost TEXT NOT NULL,
		actual_cost TEXT NOT NULL,
		cost_variance TEXT NOT NULL,
		notes TEXT,
		transaction_ids_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS spot_checks (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		previous_quantity TEXT NOT NULL,
		new_quantity TEXT NOT NULL,
		reason TEXT NOT NULL,
		notes TEXT,
		timestamp TEXT NOT NULL,
		transaction_id TEXT
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		notes TEXT,
		transaction_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales_months (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		quantity_sold TEXT NOT NULL,
		data_source TEXT NOT NULL,
		UNIQUE(item_id, year, month)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

const insertTransaction = `
	INSERT INTO transactions
	(id, item_id, quantity_change, new_quantity, tx_type, source_id, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTx(ctx, s.db, tx)
}

// AppendBatch writes every transaction inside a single SQL transaction:
// either all land or none do.
func (s *Store) AppendBatch(ctx context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := appendTx(ctx, dbtx, tx); err != nil {
			dbtx.Rollback()
			return err
		}
	}
	return dbtx.Commit()
}

// execer lets appendTx run against either *sql.DB or *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendTx(ctx context.Context, db execer, tx ledger.Transaction) error {
	_, err := db.ExecContext(ctx, insertTransaction,
		tx.ID,
		tx.ItemID,
		tx.QuantityChange.String(),
		tx.NewQuantity.String(),
		tx.Type,
		nullString(tx.SourceID),
		tx.Timestamp.UTC().Format(time.RFC3339Nano),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ledger.ErrDuplicateTransaction
	}
	return err
}

func (s *Store) Load(ctx context.Context, itemID ledger.ItemID) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, quantity_change, new_quantity, tx_type, source_id, timestamp, created_at
		FROM transactions WHERE item_id = ?
		ORDER BY seq`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) Last(ctx context.Context, itemID ledger.ItemID) (*ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, quantity_change, new_quantity, tx_type, source_id, timestamp, created_at
		FROM transactions WHERE item_id = ?
		ORDER BY seq DESC LIMIT 1`, itemID)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx                 ledger.Transaction
		change, newQty     string
		sourceID           sql.NullString
		timestamp, created string
	)
	err := row.Scan(&tx.ID, &tx.ItemID, &change, &newQty, &tx.Type, &sourceID, &timestamp, &created)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.QuantityChange, err = decimal.NewFromString(change); err != nil {
		return ledger.Transaction{}, err
	}
	if tx.NewQuantity, err = decimal.NewFromString(newQty); err != nil {
		return ledger.Transaction{}, err
	}
	tx.SourceID = sourceID.String
	if tx.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return ledger.Transaction{}, err
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// =============================================================================
// PERSISTER (production.Persister interface)
// =============================================================================

func (s *Store) SaveItem(ctx context.Context, item inventory.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items
		(id, sku, name, item_type, inventory_unit, current_quantity, weighted_average_cost,
		 reorder_point, last_counted_date, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			current_quantity = excluded.current_quantity,
			weighted_average_cost = excluded.weighted_average_cost,
			reorder_point = excluded.reorder_point,
			last_counted_date = excluded.last_counted_date,
			is_archived = excluded.is_archived`,
		item.ID, item.SKU, item.Name, item.Type, item.InventoryUnit,
		item.CurrentQuantity.String(), item.WeightedAverageCost.String(),
		item.ReorderPoint.String(), nullTime(item.LastCountedDate),
		item.IsArchived, item.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SaveSupplier(ctx context.Context, sup inventory.Supplier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, store_url, phone, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			store_url = excluded.store_url,
			phone = excluded.phone,
			is_archived = excluded.is_archived`,
		sup.ID, sup.Name, nullString(sup.StoreURL), nullString(sup.Phone),
		sup.IsArchived, sup.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SaveRecipe(ctx context.Context, r recipe.Recipe) error {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes
		(id, version, name, is_archived, yields_item_id, expected_yield,
		 labor_minutes, projected_material_cost, ingredients_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET is_archived = excluded.is_archived`,
		r.ID, r.Version, r.Name, r.IsArchived, r.YieldsItemID,
		r.ExpectedYield.String(), r.LaborMinutes, r.ProjectedMaterialCost.String(),
		string(ingredients), r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SavePurchase(ctx context.Context, p production.Purchase) error {
	lines, err := json.Marshal(p.Lines)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, purchase_date, grand_total, notes, lines_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SupplierID, p.PurchaseDate.UTC().Format(time.RFC3339Nano),
		p.GrandTotal.String(), nullString(p.Notes), string(lines),
		p.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SaveBatch(ctx context.Context, b production.Batch) error {
	txIDs, err := json.Marshal(b.TransactionIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches
		(id, recipe_id, recipe_version, status, date_created, batches, qty_made,
		 yield_percentage, material_cost, labor_cost, actual_cost, cost_variance,
		 notes, transaction_ids_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.RecipeID, b.RecipeVersion, b.Status,
		b.DateCreated.UTC().Format(time.RFC3339Nano), b.Batches,
		b.QtyMade.String(), b.YieldPercentage.String(), b.MaterialCost.String(),
		b.LaborCost.String(), b.ActualCost.String(), b.CostVariance.String(),
		nullString(b.Notes), string(txIDs), b.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SaveSpotCheck(ctx context.Context, sc production.SpotCheck) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spot_checks
		(id, item_id, previous_quantity, new_quantity, reason, notes, timestamp, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.ItemID, sc.PreviousQuantity.String(), sc.NewQuantity.String(),
		sc.Reason, nullString(sc.Notes), sc.Timestamp.UTC().Format(time.RFC3339Nano),
		nullString(string(sc.TransactionID)))
	return err
}

func (s *Store) SaveSale(ctx context.Context, sale production.Sale) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, item_id, quantity, unit_price, total, sale_date, notes, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ItemID, sale.Quantity.String(), sale.UnitPrice.String(),
		sale.Total.String(), sale.Date.UTC().Format(time.RFC3339Nano),
		nullString(sale.Notes), string(sale.TransactionID))
	return err
}

func (s *Store) SaveSalesMonth(ctx context.Context, sm production.SalesMonth) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_months (id, item_id, year, month, quantity_sold, data_source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, year, month) DO UPDATE SET
			quantity_sold = excluded.quantity_sold,
			data_source = excluded.data_source`,
		sm.ID, sm.ItemID, sm.Year, int(sm.Month), sm.QuantitySold.String(), sm.DataSource)
	return err
}

// =============================================================================
// BOOT-TIME LOADS
// =============================================================================

// LoadItems returns all item rows for registry rehydration at startup.
func (s *Store) LoadItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, item_type, inventory_unit, current_quantity,
		       weighted_average_cost, reorder_point, last_counted_date, is_archived, created_at
		FROM items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var (
			item               inventory.Item
			qty, cost, reorder string
			lastCounted        sql.NullString
			created            string
		)
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.Type, &item.InventoryUnit,
			&qty, &cost, &reorder, &lastCounted, &item.IsArchived, &created); err != nil {
			return nil, err
		}
		if item.CurrentQuantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if item.WeightedAverageCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		if item.ReorderPoint, err = decimal.NewFromString(reorder); err != nil {
			return nil, err
		}
		if lastCounted.Valid {
			if item.LastCountedDate, err = time.Parse(time.RFC3339Nano, lastCounted.String); err != nil {
				return nil, err
			}
		}
		if item.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) LoadSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, store_url, phone, is_archived, created_at FROM suppliers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []inventory.Supplier
	for rows.Next() {
		var (
			sup             inventory.Supplier
			storeURL, phone sql.NullString
			created         string
		)
		if err := rows.Scan(&sup.ID, &sup.Name, &storeURL, &phone, &sup.IsArchived, &created); err != nil {
			return nil, err
		}
		sup.StoreURL = storeURL.String
		sup.Phone = phone.String
		if sup.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// LoadRecipes returns every recipe version ordered ascending per recipe,
// ready to feed recipe.Book.Restore in sequence.
func (s *Store) LoadRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, name, is_archived, yields_item_id, expected_yield,
		       labor_minutes, projected_material_cost, ingredients_json, created_at
		FROM recipes ORDER BY id, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []recipe.Recipe
	for rows.Next() {
		var (
			r                         recipe.Recipe
			yield, projected, ingJSON string
			created                   string
		)
		if err := rows.Scan(&r.ID, &r.Version, &r.Name, &r.IsArchived, &r.YieldsItemID,
			&yield, &r.LaborMinutes, &projected, &ingJSON, &created); err != nil {
			return nil, err
		}
		if r.ExpectedYield, err = decimal.NewFromString(yield); err != nil {
			return nil, err
		}
		if r.ProjectedMaterialCost, err = decimal.NewFromString(projected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ingJSON), &r.Ingredients); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

func (s *Store) LoadPurchases(ctx context.Context) ([]production.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, purchase_date, grand_total, notes, lines_json, created_at
		FROM purchases ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []production.Purchase
	for rows.Next() {
		var (
			p                          production.Purchase
			date, total, lines, created string
			notes                      sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.SupplierID, &date, &total, &notes, &lines, &created); err != nil {
			return nil, err
		}
		if p.PurchaseDate, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, err
		}
		if p.GrandTotal, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		p.Notes = notes.String
		if err := json.Unmarshal([]byte(lines), &p.Lines); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (s *Store) LoadBatches(ctx context.Context) ([]production.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, recipe_version, status, date_created, batches, qty_made,
		       yield_percentage, material_cost, labor_cost, actual_cost, cost_variance,
		       notes, transaction_ids_json, created_at
		FROM batches ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []production.Batch
	for rows.Next() {
		var (
			b                                      production.Batch
			date, qty, yield, material             string
			labor, actual, variance, txIDs, created string
			notes                                  sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.RecipeID, &b.RecipeVersion, &b.Status, &date, &b.Batches,
			&qty, &yield, &material, &labor, &actual, &variance, &notes, &txIDs, &created); err != nil {
			return nil, err
		}
		if b.DateCreated, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, err
		}
		if b.QtyMade, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if b.YieldPercentage, err = decimal.NewFromString(yield); err != nil {
			return nil, err
		}
		if b.MaterialCost, err = decimal.NewFromString(material); err != nil {
			return nil, err
		}
		if b.LaborCost, err = decimal.NewFromString(labor); err != nil {
			return nil, err
		}
		if b.ActualCost, err = decimal.NewFromString(actual); err != nil {
			return nil, err
		}
		if b.CostVariance, err = decimal.NewFromString(variance); err != nil {
			return nil, err
		}
		b.Notes = notes.String
		if err := json.Unmarshal([]byte(txIDs), &b.TransactionIDs); err != nil {
			return nil, err
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *Store) LoadSpotChecks(ctx context.Context) ([]production.SpotCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, previous_quantity, new_quantity, reason, notes, timestamp, transaction_id
		FROM spot_checks ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []production.SpotCheck
	for rows.Next() {
		var (
			sc              production.SpotCheck
			prev, newQty, ts string
			notes, txID     sql.NullString
		)
		if err := rows.Scan(&sc.ID, &sc.ItemID, &prev, &newQty, &sc.Reason, &notes, &ts, &txID); err != nil {
			return nil, err
		}
		if sc.PreviousQuantity, err = decimal.NewFromString(prev); err != nil {
			return nil, err
		}
		if sc.NewQuantity, err = decimal.NewFromString(newQty); err != nil {
			return nil, err
		}
		sc.Notes = notes.String
		if sc.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		sc.TransactionID = ledger.TransactionID(txID.String)
		checks = append(checks, sc)
	}
	return checks, rows.Err()
}

func (s *Store) LoadSales(ctx context.Context) ([]production.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, quantity, unit_price, total, sale_date, notes, transaction_id
		FROM sales ORDER BY sale_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []production.Sale
	for rows.Next() {
		var (
			sale                    production.Sale
			qty, price, total, date string
			notes                   sql.NullString
			txID                    string
		)
		if err := rows.Scan(&sale.ID, &sale.ItemID, &qty, &price, &total, &date, &notes, &txID); err != nil {
			return nil, err
		}
		if sale.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if sale.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if sale.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if sale.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, err
		}
		sale.Notes = notes.String
		sale.TransactionID = ledger.TransactionID(txID)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) LoadSalesMonths(ctx context.Context) ([]production.SalesMonth, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, year, month, quantity_sold, data_source
		FROM sales_months ORDER BY year, month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []production.SalesMonth
	for rows.Next() {
		var (
			sm       production.SalesMonth
			month    int
			quantity string
		)
		if err := rows.Scan(&sm.ID, &sm.ItemID, &sm.Year, &month, &quantity, &sm.DataSource); err != nil {
			return nil, err
		}
		sm.Month = time.Month(month)
		if sm.QuantitySold, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		months = append(months, sm)
	}
	return months, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
