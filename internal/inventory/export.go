package inventory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Stocks"

var exportHeaders = []string{"SKU", "Quantity", "Color", "Size", "Last Updated"}

// ExportStocks writes the whole inventory, in SKU order, as an XLSX workbook
func (s *Service) ExportStocks(w io.Writer) error {
	stocks, err := s.db.ListStocks()
	if err != nil {
		return fmt.Errorf("listing stocks for export: %w", err)
	}
	sortStocks(stocks, "sku", false)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("naming export sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for i, stock := range stocks {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		write(1, stock.SKU)
		write(2, stock.Quantity)
		write(3, stock.Color)
		write(4, stock.Size)
		write(5, stock.LastUpdated.Format("2006-01-02 15:04:05"))
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 22)
	_ = f.SetColWidth(exportSheet, "B", "D", 12)
	_ = f.SetColWidth(exportSheet, "E", "E", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	slog.Debug("Exported stocks", "rows", len(stocks))
	return nil
}
