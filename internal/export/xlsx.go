package export

import (
	"fmt"
	"io"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the transactions.
const SheetName = "Transactions"

var (
	xlsxHeader = []interface{}{"Date", "Concept", "Detail", "Amount", "Kind", "Category"}
	xlsxWidths = []float64{12, 25, 40, 12, 10, 15}
)

// XLSXWriter writes transactions as an Excel workbook.
type XLSXWriter struct {
	logger logging.Logger
}

// NewXLSXWriter creates an XLSXWriter.
func NewXLSXWriter(logger logging.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logging.OrDefault(logger)}
}

func (x *XLSXWriter) build(transactions []models.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error naming sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "F1", style)
	}

	for i, tx := range transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		row := []interface{}{
			tx.DateText,
			tx.Concept,
			tx.Description,
			tx.Amount.Round(2).InexactFloat64(),
			string(tx.Kind),
			tx.CategoryOrDefault(),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	for i, width := range xlsxWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error setting column width: %w", err)
		}
	}
	return f, nil
}

// Write writes the workbook to w.
func (x *XLSXWriter) Write(w io.Writer, transactions []models.Transaction) error {
	f, err := x.build(transactions)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing XLSX: %w", err)
	}
	return nil
}

// WriteFile writes the workbook to path.
func (x *XLSXWriter) WriteFile(path string, transactions []models.Transaction) error {
	x.logger.WithFields(
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(transactions)),
	).Info("Writing transactions to XLSX file")

	f, err := x.build(transactions)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.WithError(err).Warn("Failed to close workbook")
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving XLSX file: %w", err)
	}
	return nil
}
