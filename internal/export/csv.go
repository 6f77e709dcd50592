// Package export writes classified transactions as CSV or XLSX, and reads
// back CSV files it produced.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// BOM is the UTF-8 byte order mark written before CSV output so that
// spreadsheet applications detect the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow is the column layout of exported files.
type csvRow struct {
	Date     string `csv:"Date"`
	Concept  string `csv:"Concept"`
	Detail   string `csv:"Detail"`
	Amount   string `csv:"Amount"`
	Kind     string `csv:"Kind"`
	Category string `csv:"Category"`
}

func toRow(tx models.Transaction) csvRow {
	return csvRow{
		Date:     tx.DateText,
		Concept:  tx.Concept,
		Detail:   tx.Description,
		Amount:   currencyutils.FormatPlain(tx.Amount),
		Kind:     string(tx.Kind),
		Category: tx.CategoryOrDefault(),
	}
}

// CSVOptions configures CSV output.
type CSVOptions struct {
	Delimiter rune
	BOM       bool
}

// DefaultCSVOptions writes comma-separated values with a BOM.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', BOM: true}
}

// CSVWriter writes transactions as CSV.
type CSVWriter struct {
	opts   CSVOptions
	logger logging.Logger
}

// NewCSVWriter creates a CSVWriter. A zero delimiter means comma.
func NewCSVWriter(opts CSVOptions, logger logging.Logger) *CSVWriter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVWriter{opts: opts, logger: logging.OrDefault(logger)}
}

// Write writes the header and one row per transaction to w.
func (c *CSVWriter) Write(w io.Writer, transactions []models.Transaction) error {
	if transactions == nil {
		return errors.New("cannot write nil transactions to CSV")
	}
	if c.opts.BOM {
		if _, err := w.Write(BOM); err != nil {
			return fmt.Errorf("error writing BOM: %w", err)
		}
	}

	rows := make([]csvRow, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, toRow(tx))
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = c.opts.Delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteFile writes transactions to path, creating parent directories.
func (c *CSVWriter) WriteFile(path string, transactions []models.Transaction) error {
	c.logger.WithFields(
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(transactions)),
		logging.F(logging.FieldDelimiter, string(c.opts.Delimiter)),
	).Info("Writing transactions to CSV file")

	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path) // #nosec G304 -- output path chosen by the user
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	buf := bufio.NewWriter(file)
	if err := c.Write(buf, transactions); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadCSV parses a file produced by CSVWriter. The BOM is optional.
func ReadCSV(r io.Reader, delimiter rune) ([]models.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, BOM)
	if delimiter == 0 {
		delimiter = ','
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	var rows []csvRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV: %w", err)
	}

	transactions := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q: %w", i+2, row.Amount, err)
		}
		tx := models.NewTransaction(dateutils.ParseDate(row.Date), row.Date, row.Concept, row.Detail, amount)
		tx.Category = row.Category
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, delimiter rune) ([]models.Transaction, error) {
	file, err := os.Open(path) // #nosec G304 -- input path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadCSV(file, delimiter)
}
