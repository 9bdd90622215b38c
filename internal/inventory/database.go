package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	stocksBucket = "stocks"
	billsBucket  = "bills"
)

// DB defines the interface for database operations
type DB interface {
	// SaveStock inserts or replaces a stock record keyed by SKU
	SaveStock(stock *Stock) error

	// GetStock retrieves a stock record by SKU
	GetStock(sku string) (*Stock, error)

	// ListStocks returns every stock record
	ListStocks() ([]*Stock, error)

	// DeleteStock removes a stock record
	DeleteStock(sku string) error

	// SaveBill inserts or replaces a bill import
	SaveBill(bill *BillImport) error

	// GetBill retrieves a bill import by ID
	GetBill(id string) (*BillImport, error)

	// ListBills returns every bill import
	ListBills() ([]*BillImport, error)

	// DeleteBill removes a bill import
	DeleteBill(id string) error

	Close() error
}

// BoltDB implements DB with one JSON document per key
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file and its buckets
func NewBoltDB(path string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{stocksBucket, billsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s record: %w", bucket, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

// get returns false when the key is absent
func (b *BoltDB) get(bucket, key string, v any) (bool, error) {
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, v)
	})
	return found, err
}

func (b *BoltDB) remove(bucket, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

func (b *BoltDB) SaveStock(stock *Stock) error {
	return b.put(stocksBucket, stock.SKU, stock)
}

func (b *BoltDB) GetStock(sku string) (*Stock, error) {
	var stock Stock
	found, err := b.get(stocksBucket, sku, &stock)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling stock: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("stock %w: %s", ErrNotFound, sku)
	}
	return &stock, nil
}

// ListStocks returns stocks in key order, which is SKU order
func (b *BoltDB) ListStocks() ([]*Stock, error) {
	stocks := make([]*Stock, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stocksBucket)).ForEach(func(k, v []byte) error {
			var stock Stock
			if err := json.Unmarshal(v, &stock); err != nil {
				return fmt.Errorf("unmarshaling stock %s: %w", k, err)
			}
			stocks = append(stocks, &stock)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

func (b *BoltDB) DeleteStock(sku string) error {
	return b.remove(stocksBucket, sku)
}

func (b *BoltDB) SaveBill(bill *BillImport) error {
	return b.put(billsBucket, bill.ID, bill)
}

func (b *BoltDB) GetBill(id string) (*BillImport, error) {
	var bill BillImport
	found, err := b.get(billsBucket, id, &bill)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling bill: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("bill %w: %s", ErrNotFound, id)
	}
	return &bill, nil
}

func (b *BoltDB) ListBills() ([]*BillImport, error) {
	bills := make([]*BillImport, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(billsBucket)).ForEach(func(k, v []byte) error {
			var bill BillImport
			if err := json.Unmarshal(v, &bill); err != nil {
				return fmt.Errorf("unmarshaling bill %s: %w", k, err)
			}
			bills = append(bills, &bill)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (b *BoltDB) DeleteBill(id string) error {
	return b.remove(billsBucket, id)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
