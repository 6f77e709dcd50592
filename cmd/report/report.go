// Package report prints the totals and per-category views of a statement.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/export"
	"fjacquet/statement-csv/internal/fileutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/report"
	"fjacquet/statement-csv/internal/validation"

	"github.com/spf13/cobra"
)

var (
	// outputFormat holds the desired output format for the report (json, xml, text).
	outputFormat string
	// currency selects the symbol and separators of amounts in text reports.
	currency string
	// user whose learned categories apply when the input is a PDF.
	user string
)

// Cmd represents the report command
var Cmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a statement by category",
	Long: `Summarize the transactions of a statement: totals, expenses per category,
category flows and the expense and balance series by date.

The input is either a PDF statement, which is converted without being
saved, or a CSV file written by the convert command.

Example:
  statement-csv report -i extracte.csv --format json -o extracte.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.Require(root.GetContainer())
		if err != nil {
			return err
		}
		logger := c.GetLogger()

		// Validate output format
		if err := validation.IsValidOutputFormat(outputFormat); err != nil {
			return err
		}

		input := root.SharedFlags.Input
		txs, err := loadTransactions(cmd, c, input)
		if err != nil {
			return err
		}

		generator := report.NewReportGenerator(logger, currency)
		reportBytes, err := generator.GenerateReport(report.Build(filepath.Base(input), txs), outputFormat)
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		outputFile := root.SharedFlags.Output
		if outputFile != "" {
			if err := fileutils.WriteFile(outputFile, reportBytes, models.PermissionReportFile); err != nil {
				return fmt.Errorf("failed to write report to file %s: %w", outputFile, err)
			}
			logger.Info("Report written to file", logging.F(logging.FieldFile, outputFile))
			return nil
		}
		if _, err := cmd.OutOrStdout().Write(reportBytes); err != nil {
			return fmt.Errorf("failed to write report to stdout: %w", err)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&outputFormat, "format", "text", "Report format: text, json or xml")
	Cmd.Flags().StringVar(&currency, "currency", "EUR", "Currency of the amounts")
	Cmd.Flags().StringVar(&user, "user", "", "User whose learned categories apply to a PDF input (default data.user)")
}

func loadTransactions(cmd *cobra.Command, c *container.Container, input string) ([]models.Transaction, error) {
	if strings.EqualFold(filepath.Ext(input), fileutils.StatementExt) {
		if err := common.ValidateInput(input, root.SharedFlags.Validate, c.GetLogger()); err != nil {
			return nil, err
		}
		userID, err := common.ResolveUser(c, user)
		if err != nil {
			return nil, err
		}
		res, err := c.NewProcessor(container.ProcessorOptions{UserID: userID}).Process(cmd.Context(), input)
		if err != nil {
			return nil, err
		}
		return res.Transactions, nil
	}

	if !fileutils.FileExists(input) {
		return nil, fmt.Errorf("input file does not exist: %s", input)
	}
	return export.ReadCSVFile(input, c.GetConfig().Delimiter())
}
