// Package common contains shared functionality for command handlers
package common

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/pdfparser"
	"fjacquet/statement-csv/internal/pipeline"
	"fjacquet/statement-csv/internal/validation"
)

// ErrNoContainer is returned when a command runs without the root setup.
var ErrNoContainer = errors.New("container not initialized")

// Output formats of the converted transactions.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Require returns c, or ErrNoContainer when it is nil.
func Require(c *container.Container) (*container.Container, error) {
	if c == nil {
		return nil, ErrNoContainer
	}
	return c, nil
}

// ResolveUser returns the --user flag value, or data.user when it is empty.
func ResolveUser(c *container.Container, flag string) (string, error) {
	user := strings.TrimSpace(flag)
	if user == "" {
		user = c.GetConfig().Data.User
	}
	if err := validation.IsValidUserID(user); err != nil {
		return "", err
	}
	return user, nil
}

// ValidateInput checks the statement file, and its PDF header when validate
// is set.
func ValidateInput(path string, validate bool, log logging.Logger) error {
	if err := validation.IsValidInputFile(path); err != nil {
		return err
	}
	if !validate {
		return nil
	}
	log.Info("Validating format...")
	if err := pdfparser.ValidatePDF(path); err != nil {
		return fmt.Errorf("error validating file: %w", err)
	}
	log.Info("Validation successful.")
	return nil
}

// WriteTransactions writes txs to path in the given format.
func WriteTransactions(c *container.Container, txs []models.Transaction, path, format string) error {
	switch format {
	case FormatXLSX:
		return c.XLSXWriter().WriteFile(path, txs)
	case FormatCSV, "":
		return c.CSVWriter().WriteFile(path, txs)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintResult prints the per-file summary of a processed statement.
func PrintResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "%s: %d transactions (%s)\n", res.File, len(res.Transactions), res.Extractor)
	if res.Outcome != nil {
		fmt.Fprintln(w, res.Outcome.Message())
	}
	if res.BatchID != "" {
		fmt.Fprintf(w, "Saved as batch %s\n", res.BatchID)
	}
}
