package inventory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB implements DB on a local SQLite file. Stocks get real columns so
// they can be inspected with the sqlite3 shell; bill imports are stored as
// JSON documents.
type SQLiteDB struct {
	conn *sql.DB
}

// NewSQLiteDB opens (or creates) the database file and its schema
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	db := &SQLiteDB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

func (d *SQLiteDB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS stocks (
  sku TEXT PRIMARY KEY,
  quantity INTEGER NOT NULL DEFAULT 0,
  color TEXT NOT NULL DEFAULT '',
  size TEXT NOT NULL DEFAULT '',
  last_updated TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
`
	_, err := d.conn.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d *SQLiteDB) SaveStock(stock *Stock) error {
	_, err := d.conn.Exec(`
INSERT INTO stocks (sku, quantity, color, size, last_updated, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sku) DO UPDATE SET
  quantity=excluded.quantity,
  color=excluded.color,
  size=excluded.size,
  last_updated=excluded.last_updated,
  updated_at=excluded.updated_at
`, stock.SKU, stock.Quantity, stock.Color, stock.Size,
		formatTime(stock.LastUpdated), formatTime(stock.CreatedAt), formatTime(stock.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving stock %s: %w", stock.SKU, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (*Stock, error) {
	var s Stock
	var lastUpdated, createdAt, updatedAt string
	if err := row.Scan(&s.SKU, &s.Quantity, &s.Color, &s.Size, &lastUpdated, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.LastUpdated = parseTime(lastUpdated)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

const stockColumns = `sku, quantity, color, size, last_updated, created_at, updated_at`

func (d *SQLiteDB) GetStock(sku string) (*Stock, error) {
	row := d.conn.QueryRow(`SELECT `+stockColumns+` FROM stocks WHERE sku = ?`, sku)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock %w: %s", ErrNotFound, sku)
	}
	if err != nil {
		return nil, fmt.Errorf("reading stock %s: %w", sku, err)
	}
	return stock, nil
}

func (d *SQLiteDB) ListStocks() ([]*Stock, error) {
	rows, err := d.conn.Query(`SELECT ` + stockColumns + ` FROM stocks ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("listing stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]*Stock, 0)
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("reading stock row: %w", err)
		}
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

func (d *SQLiteDB) DeleteStock(sku string) error {
	if _, err := d.conn.Exec(`DELETE FROM stocks WHERE sku = ?`, sku); err != nil {
		return fmt.Errorf("deleting stock %s: %w", sku, err)
	}
	return nil
}

func (d *SQLiteDB) SaveBill(bill *BillImport) error {
	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshaling bill: %w", err)
	}
	_, err = d.conn.Exec(`
INSERT INTO bills (id, status, created_at, data) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET status=excluded.status, data=excluded.data
`, bill.ID, string(bill.Status), formatTime(bill.CreatedAt), string(data))
	if err != nil {
		return fmt.Errorf("saving bill %s: %w", bill.ID, err)
	}
	return nil
}

func (d *SQLiteDB) GetBill(id string) (*BillImport, error) {
	var data string
	err := d.conn.QueryRow(`SELECT data FROM bills WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading bill %s: %w", id, err)
	}
	var bill BillImport
	if err := json.Unmarshal([]byte(data), &bill); err != nil {
		return nil, fmt.Errorf("unmarshaling bill: %w", err)
	}
	return &bill, nil
}

func (d *SQLiteDB) ListBills() ([]*BillImport, error) {
	rows, err := d.conn.Query(`SELECT data FROM bills ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	defer rows.Close()

	bills := make([]*BillImport, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("reading bill row: %w", err)
		}
		var bill BillImport
		if err := json.Unmarshal([]byte(data), &bill); err != nil {
			return nil, fmt.Errorf("unmarshaling bill: %w", err)
		}
		bills = append(bills, &bill)
	}
	return bills, rows.Err()
}

func (d *SQLiteDB) DeleteBill(id string) error {
	if _, err := d.conn.Exec(`DELETE FROM bills WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting bill %s: %w", id, err)
	}
	return nil
}

func (d *SQLiteDB) Close() error {
	return d.conn.Close()
}
