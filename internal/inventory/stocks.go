package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// ListStocks filters, sorts and pages the inventory. The summary totals
// cover every stock, not just the filtered ones.
func (s *Service) ListStocks(q StockQuery) (*StockPage, error) {
	all, err := s.db.ListStocks()
	if err != nil {
		return nil, fmt.Errorf("listing stocks: %w", err)
	}

	summary := Summary{TotalStocks: len(all)}
	filtered := make([]*Stock, 0, len(all))
	for _, stock := range all {
		summary.TotalQuantity += stock.Quantity
		if q.matches(stock) {
			filtered = append(filtered, stock)
		}
	}
	summary.FilteredResults = len(filtered)

	sortStocks(filtered, q.SortBy, strings.EqualFold(q.SortOrder, "desc"))

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	// compare page counts first so huge page numbers cannot overflow
	start := len(filtered)
	if page-1 <= len(filtered)/limit {
		start = min((page-1)*limit, len(filtered))
	}
	end := min(start+limit, len(filtered))
	stocks := filtered[start:end]

	return &StockPage{
		Stocks: stocks,
		Pagination: Pagination{
			Current:      page,
			Total:        (len(filtered) + limit - 1) / limit,
			Count:        len(stocks),
			TotalRecords: len(filtered),
		},
		Summary: summary,
	}, nil
}

func (q StockQuery) matches(stock *Stock) bool {
	if q.Search != "" && !strings.Contains(stock.SKU, strings.ToUpper(strings.TrimSpace(q.Search))) {
		return false
	}
	if q.Color != "" && !strings.EqualFold(stock.Color, q.Color) {
		return false
	}
	if q.Size != "" && !strings.EqualFold(stock.Size, q.Size) {
		return false
	}
	if q.MinQuantity != nil && stock.Quantity < *q.MinQuantity {
		return false
	}
	if q.MaxQuantity != nil && stock.Quantity > *q.MaxQuantity {
		return false
	}
	return true
}

// sortStocks orders by SKU unless another known field is requested; SKU
// breaks ties so pages are stable.
func sortStocks(stocks []*Stock, by string, desc bool) {
	less := func(a, b *Stock) bool { return a.SKU < b.SKU }
	switch by {
	case "quantity":
		less = func(a, b *Stock) bool {
			if a.Quantity != b.Quantity {
				return a.Quantity < b.Quantity
			}
			return a.SKU < b.SKU
		}
	case "last_updated":
		less = func(a, b *Stock) bool {
			if !a.LastUpdated.Equal(b.LastUpdated) {
				return a.LastUpdated.Before(b.LastUpdated)
			}
			return a.SKU < b.SKU
		}
	case "created_at":
		less = func(a, b *Stock) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.SKU < b.SKU
		}
	}
	sort.SliceStable(stocks, func(i, j int) bool {
		if desc {
			return less(stocks[j], stocks[i])
		}
		return less(stocks[i], stocks[j])
	})
}

// GetStock retrieves a stock record by SKU
func (s *Service) GetStock(sku string) (*Stock, error) {
	stock, err := s.db.GetStock(normalizeSKU(sku))
	if err != nil {
		return nil, fmt.Errorf("getting stock: %w", err)
	}
	return stock, nil
}

// CreateStock adds a new SKU to the inventory
func (s *Service) CreateStock(stock Stock) (*Stock, error) {
	stock.SKU = normalizeSKU(stock.SKU)
	stock.Color = strings.TrimSpace(stock.Color)
	stock.Size = strings.TrimSpace(stock.Size)
	if err := stock.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.GetStock(stock.SKU)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrStockExists, stock.SKU)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("checking existing stock: %w", err)
	}

	now := s.timeSource.Now()
	stock.CreatedAt = now
	stock.UpdatedAt = now
	stock.LastUpdated = now

	if err := s.db.SaveStock(&stock); err != nil {
		return nil, fmt.Errorf("saving stock: %w", err)
	}
	slog.Info("Created stock", "sku", stock.SKU, "quantity", stock.Quantity)
	return &stock, nil
}

// UpdateStock applies the fields present in changes
func (s *Service) UpdateStock(sku string, changes StockChanges) (*Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.db.GetStock(normalizeSKU(sku))
	if err != nil {
		return nil, fmt.Errorf("getting stock for update: %w", err)
	}

	now := s.timeSource.Now()
	if changes.Quantity != nil {
		stock.Quantity = *changes.Quantity
		stock.LastUpdated = now
	}
	if changes.Color != nil {
		stock.Color = strings.TrimSpace(*changes.Color)
	}
	if changes.Size != nil {
		stock.Size = strings.TrimSpace(*changes.Size)
	}
	if err := stock.validate(); err != nil {
		return nil, err
	}
	stock.UpdatedAt = now

	if err := s.db.SaveStock(stock); err != nil {
		return nil, fmt.Errorf("saving stock: %w", err)
	}
	return stock, nil
}

// DeleteStock removes a SKU from the inventory
func (s *Service) DeleteStock(sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeSKU(sku)
	if _, err := s.db.GetStock(key); err != nil {
		return fmt.Errorf("getting stock for deletion: %w", err)
	}
	if err := s.db.DeleteStock(key); err != nil {
		return fmt.Errorf("deleting stock: %w", err)
	}
	slog.Info("Deleted stock", "sku", key)
	return nil
}

const (
	reasonNegative        = "Quantity would become negative"
	reasonInvalidQuantity = "Invalid quantity"
)

// BatchUpdate applies every update in order. Each SKU ends up in exactly one
// of the successful, failed or not-found lists; only a storage error aborts
// the batch.
func (s *Service) BatchUpdate(updates []StockUpdate, op Operation) (*BatchResult, error) {
	switch op {
	case OperationAdd, OperationSubtract, OperationSet:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BatchResult{
		Successful: []BatchSuccess{},
		Failed:     []BatchFailure{},
		NotFound:   []string{},
	}
	now := s.timeSource.Now()

	for _, u := range updates {
		sku := normalizeSKU(u.SKU)
		requested := u.Quantity

		if requested < 0 {
			result.Failed = append(result.Failed, BatchFailure{SKU: sku, Reason: reasonInvalidQuantity, Requested: &requested})
			continue
		}

		stock, err := s.db.GetStock(sku)
		if errors.Is(err, ErrNotFound) {
			result.NotFound = append(result.NotFound, sku)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("getting stock %s: %w", sku, err)
		}

		old := stock.Quantity
		next := old
		switch op {
		case OperationAdd:
			next = old + requested
		case OperationSubtract:
			next = old - requested
		case OperationSet:
			next = requested
		}
		if next < 0 {
			current := old
			result.Failed = append(result.Failed, BatchFailure{SKU: sku, Reason: reasonNegative, Current: &current, Requested: &requested})
			continue
		}

		stock.Quantity = next
		stock.LastUpdated = now
		stock.UpdatedAt = now
		if err := s.db.SaveStock(stock); err != nil {
			return result, fmt.Errorf("saving stock %s: %w", sku, err)
		}
		result.Successful = append(result.Successful, BatchSuccess{
			SKU:         sku,
			OldQuantity: old,
			NewQuantity: next,
			Change:      next - old,
		})
	}

	slog.Info("Applied batch update",
		"operation", op,
		"successful", len(result.Successful),
		"failed", len(result.Failed),
		"not_found", len(result.NotFound),
	)
	return result, nil
}
