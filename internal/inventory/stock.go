package inventory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/quantify/internal/billparse"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStockExists      = errors.New("stock already exists")
	ErrInvalidStock     = errors.New("invalid stock")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrBillApplied      = errors.New("bill already applied")
	ErrNoItems          = errors.New("bill has no items")
)

// Stock is the on-hand quantity of one SKU
type Stock struct {
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Color       string    `json:"color,omitempty"`
	Size        string    `json:"size,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	maxColorLen = 30
	maxSizeLen  = 20
)

var stockSKU = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// normalizeSKU is how SKUs are keyed everywhere: trimmed and uppercase
func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// validate checks a stock record after its SKU has been normalized
func (s *Stock) validate() error {
	switch {
	case !stockSKU.MatchString(s.SKU):
		return fmt.Errorf("%w: sku %q may only contain A-Z, 0-9, hyphens and underscores", ErrInvalidStock, s.SKU)
	case s.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidStock)
	case len([]rune(s.Color)) > maxColorLen:
		return fmt.Errorf("%w: color cannot exceed %d characters", ErrInvalidStock, maxColorLen)
	case len([]rune(s.Size)) > maxSizeLen:
		return fmt.Errorf("%w: size cannot exceed %d characters", ErrInvalidStock, maxSizeLen)
	}
	return nil
}

// StockChanges holds the optional fields of a stock update
type StockChanges struct {
	Quantity *int    `json:"quantity,omitempty"`
	Color    *string `json:"color,omitempty"`
	Size     *string `json:"size,omitempty"`
}

// StockQuery filters, sorts and pages a stock listing
type StockQuery struct {
	Search      string
	Color       string
	Size        string
	MinQuantity *int
	MaxQuantity *int
	SortBy      string // sku, quantity, last_updated or created_at
	SortOrder   string // asc or desc
	Page        int
	Limit       int
}

// StockPage is one page of a stock listing
type StockPage struct {
	Stocks     []*Stock   `json:"stocks"`
	Pagination Pagination `json:"pagination"`
	Summary    Summary    `json:"summary"`
}

// Pagination describes where a page sits in the filtered result
type Pagination struct {
	Current      int `json:"current"`
	Total        int `json:"total"`
	Count        int `json:"count"`
	TotalRecords int `json:"total_records"`
}

// Summary totals the whole inventory alongside the filtered count
type Summary struct {
	TotalStocks     int `json:"total_stocks"`
	TotalQuantity   int `json:"total_quantity"`
	FilteredResults int `json:"filtered_results"`
}

// Operation is how a batch update applies its quantities
type Operation string

const (
	OperationAdd      Operation = "add"
	OperationSubtract Operation = "subtract"
	OperationSet      Operation = "set"
)

// ParseOperation reads an operation name, using def when s is empty
func ParseOperation(s string, def Operation) (Operation, error) {
	if s == "" {
		return def, nil
	}
	switch op := Operation(strings.ToLower(s)); op {
	case OperationAdd, OperationSubtract, OperationSet:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q (expected add, subtract or set)", ErrInvalidOperation, s)
}

// StockUpdate is one entry of a batch update
type StockUpdate struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// BatchResult reports the outcome of every entry of a batch update
type BatchResult struct {
	Successful []BatchSuccess `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
	NotFound   []string       `json:"not_found"`
}

// Partial reports whether any entry failed or referenced a missing SKU
func (r *BatchResult) Partial() bool {
	return len(r.Failed) > 0 || len(r.NotFound) > 0
}

type BatchSuccess struct {
	SKU         string `json:"sku"`
	OldQuantity int    `json:"old_quantity"`
	NewQuantity int    `json:"new_quantity"`
	Change      int    `json:"change"`
}

type BatchFailure struct {
	SKU       string `json:"sku"`
	Reason    string `json:"reason"`
	Current   *int   `json:"current,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

// BillStatus tracks a bill import through parsing and applying
type BillStatus string

const (
	BillParsed  BillStatus = "parsed"
	BillEmpty   BillStatus = "empty"
	BillApplied BillStatus = "applied"
	// BillPartial means applying stopped on a storage error after some
	// stock changes were saved; it cannot be applied again
	BillPartial BillStatus = "partial"
)

// BillImport is an uploaded bill and the items read from it
type BillImport struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename,omitempty"`
	File        string           `json:"file,omitempty"` // storage key of the uploaded document
	ContentType string           `json:"content_type,omitempty"`
	Strategy    string           `json:"strategy,omitempty"`
	Text        string           `json:"text"`
	Items       []billparse.Item `json:"items"`
	Rejected    []RejectedItem   `json:"rejected,omitempty"`
	Status      BillStatus       `json:"status"`
	Operation   Operation        `json:"operation,omitempty"`
	Result      *BatchResult     `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	AppliedAt   *time.Time       `json:"applied_at,omitempty"`
}

// RejectedItem is a parsed item that failed validation
type RejectedItem = billparse.Rejection

// ValidationReport splits an item list into valid and rejected items
type ValidationReport struct {
	Valid    []billparse.Item `json:"valid"`
	Rejected []RejectedItem   `json:"rejected"`
}
