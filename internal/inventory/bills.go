package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zombor/quantify/internal/billparse"
	"github.com/zombor/quantify/internal/scanning"
)

// ParseBill stores an uploaded bill, reads its text and extracts the items
// on it. A bill without recognisable items is recorded with status empty.
func (s *Service) ParseBill(ctx context.Context, filename string, data []byte, contentType string) (*BillImport, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	contentType = scanning.DetectContentType(filename, contentType, data)

	key, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving bill file: %w", err)
	}

	text, err := s.scanner.ScanText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan bill",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if derr := s.storage.Delete(key); derr != nil {
			slog.Warn("Failed to delete bill file", "file", key, "error", derr)
		}
		return nil, fmt.Errorf("scanning bill: %w", err)
	}

	bill := s.buildImport(text)
	bill.ID = id
	bill.Filename = filename
	bill.File = key
	bill.ContentType = contentType
	bill.CreatedAt = now

	if err := s.db.SaveBill(bill); err != nil {
		if derr := s.storage.Delete(key); derr != nil {
			slog.Warn("Failed to delete bill file", "file", key, "error", derr)
		}
		return nil, fmt.Errorf("saving bill: %w", err)
	}

	slog.Info("Parsed bill",
		"id", id,
		"filename", filename,
		"strategy", bill.Strategy,
		"items", len(bill.Items),
		"rejected", len(bill.Rejected),
	)
	return bill, nil
}

// ParseText extracts items from pasted bill text. Nothing is persisted.
func (s *Service) ParseText(text string) *BillImport {
	bill := s.buildImport(text)
	bill.CreatedAt = s.timeSource.Now()
	return bill
}

func (s *Service) buildImport(text string) *BillImport {
	result := billparse.Extract(text)
	report := s.ValidateItems(result.Items)

	bill := &BillImport{
		Text:     text,
		Strategy: result.Strategy,
		Items:    report.Valid,
		Rejected: report.Rejected,
		Status:   BillParsed,
	}
	if len(bill.Items) == 0 {
		bill.Status = BillEmpty
	}
	return bill
}

// ValidateItems splits items into those that pass the bill item validator
// and those that do not, with the reason for each rejection
func (s *Service) ValidateItems(items []billparse.Item) ValidationReport {
	valid, rejected := billparse.Screen(items)
	return ValidationReport{Valid: valid, Rejected: rejected}
}

// ApplyBill turns the items of a parsed bill into a batch update. An empty
// operation means subtract: a bill records goods leaving the inventory.
func (s *Service) ApplyBill(id string, op Operation) (*BillImport, error) {
	if op == "" {
		op = OperationSubtract
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	if bill.Status == BillApplied || bill.Status == BillPartial {
		return nil, fmt.Errorf("%w: %s", ErrBillApplied, id)
	}
	if len(bill.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoItems, id)
	}

	updates := make([]StockUpdate, 0, len(bill.Items))
	for _, item := range bill.Items {
		updates = append(updates, StockUpdate{SKU: item.SKU, Quantity: item.Qty})
	}

	result, err := s.BatchUpdate(updates, op)
	if err != nil {
		if result != nil && len(result.Successful) > 0 {
			s.markApplied(bill, BillPartial, op, result)
			if serr := s.db.SaveBill(bill); serr != nil {
				slog.Error("Failed to record partially applied bill", "id", id, "error", serr)
			}
		}
		return nil, fmt.Errorf("applying bill %s: %w", id, err)
	}

	s.markApplied(bill, BillApplied, op, result)

	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("saving applied bill: %w", err)
	}
	return bill, nil
}

func (s *Service) markApplied(bill *BillImport, status BillStatus, op Operation, result *BatchResult) {
	appliedAt := s.timeSource.Now()
	bill.Status = status
	bill.Operation = op
	bill.Result = result
	bill.AppliedAt = &appliedAt
}

// GetBill retrieves a bill import by ID
func (s *Service) GetBill(id string) (*BillImport, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return bill, nil
}

// ListBills returns every bill import, newest first
func (s *Service) ListBills() ([]*BillImport, error) {
	bills, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].CreatedAt.After(bills[j].CreatedAt)
	})
	return bills, nil
}

// GetBillFile returns the uploaded document of a bill and its content type
func (s *Service) GetBillFile(id string) ([]byte, string, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill: %w", err)
	}
	if bill.File == "" {
		return nil, "", fmt.Errorf("bill file %w: %s", ErrNotFound, id)
	}

	data, err := s.storage.Get(bill.File)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill file: %w", err)
	}
	return data, bill.ContentType, nil
}

// DeleteBill removes a bill import and its file
func (s *Service) DeleteBill(id string) error {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return fmt.Errorf("getting bill for deletion: %w", err)
	}

	if bill.File != "" {
		if err := s.storage.Delete(bill.File); err != nil {
			slog.Warn("Failed to delete bill file", "file", bill.File, "error", err)
		}
	}

	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill: %w", err)
	}
	return nil
}
