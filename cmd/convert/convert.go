// Package convert handles PDF statement conversion commands
package convert

import (
	"fmt"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/fileutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/textutils"

	"github.com/spf13/cobra"
)

// Flags of the convert command.
type Flags struct {
	XLSX     bool
	AI       bool
	User     string
	DumpText bool
	NoSave   bool
}

var flags Flags

// Cmd represents the convert command
var Cmd = &cobra.Command{
	Use:     "convert",
	Aliases: []string{"pdf"},
	Short:   "Convert a PDF statement to CSV",
	Long: `Convert a bank statement PDF to CSV (or XLSX) format.

The bank is detected from the statement text and the matching extractor
is tried first. Transactions are categorized and saved as a batch in the
user's history unless --no-save is given.

Example:
  statement-csv convert -i extracte.pdf -o extracte.csv --ai`,
	RunE: convertFunc,
}

func init() {
	Cmd.Flags().BoolVar(&flags.XLSX, "xlsx", false, "Write an XLSX workbook instead of CSV")
	Cmd.Flags().BoolVar(&flags.AI, "ai", false, "Categorize uncategorized transactions with Gemini")
	Cmd.Flags().StringVar(&flags.User, "user", "", "User whose learned categories and history are used (default data.user)")
	Cmd.Flags().BoolVar(&flags.DumpText, "dump-text", false, "Print the reflowed statement text")
	Cmd.Flags().BoolVar(&flags.NoSave, "no-save", false, "Do not save the batch in the history")
}

func convertFunc(cmd *cobra.Command, args []string) error {
	c, err := common.Require(root.GetContainer())
	if err != nil {
		return err
	}
	logger := c.GetLogger()
	cfg := c.GetConfig()
	input := root.SharedFlags.Input

	logger.Info("Convert command called",
		logging.F(logging.FieldFile, input))

	if err := common.ValidateInput(input, root.SharedFlags.Validate, logger); err != nil {
		return err
	}
	user, err := common.ResolveUser(c, flags.User)
	if err != nil {
		return err
	}

	p := c.NewProcessor(container.ProcessorOptions{
		UserID: user,
		UseAI:  flags.AI || cfg.AI.Enabled,
		Save:   !flags.NoSave,
	})
	res, err := p.Process(cmd.Context(), input)
	out := cmd.OutOrStdout()
	if flags.DumpText && res != nil {
		fmt.Fprintf(out, "--- %s text (%s) ---\n", res.File, res.Bank)
		fmt.Fprintln(out, textutils.Snippet(res.Document.Text, cfg.Extraction.DumpTextChars))
		fmt.Fprintln(out, "---")
	}
	if err != nil {
		return err
	}

	format, ext := common.FormatCSV, ".csv"
	if flags.XLSX {
		format, ext = common.FormatXLSX, ".xlsx"
	}
	output := fileutils.OutputPath(input, root.SharedFlags.Output, ext)
	if err := common.WriteTransactions(c, res.Transactions, output, format); err != nil {
		return fmt.Errorf("error writing %s: %w", output, err)
	}

	common.PrintResult(out, res)
	fmt.Fprintf(out, "Written to %s\n", output)
	logger.Info("Conversion completed successfully!",
		logging.F(logging.FieldFile, output),
		logging.F(logging.FieldCount, len(res.Transactions)))
	return nil
}
