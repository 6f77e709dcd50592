// Package batch handles batch processing of statement files
package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/batch"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/fileutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/pipeline"
	"fjacquet/statement-csv/internal/validation"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of statements processed at the same time.
const DefaultWorkers = 4

// Flags of the batch command.
type Flags struct {
	Merge   bool
	Dedup   bool
	XLSX    bool
	AI      bool
	User    string
	NoSave  bool
	Workers int
}

var flags Flags

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch process statements from a directory",
	Long: `Batch process PDF statements from an input directory and output them to another directory.

Every PDF in the input directory is converted independently; a statement
that fails is reported and skipped. With --merge the transactions of all
statements are written to a single file named after their date range, and
--dedup drops the movements that overlapping statements report twice.

Example:
  statement-csv batch -i statements/ -o csv/ --merge --dedup`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().BoolVar(&flags.Merge, "merge", false, "Write one merged file instead of one file per statement")
	Cmd.Flags().BoolVar(&flags.Dedup, "dedup", false, "Drop transactions repeated across statements (with --merge)")
	Cmd.Flags().BoolVar(&flags.XLSX, "xlsx", false, "Write XLSX workbooks instead of CSV")
	Cmd.Flags().BoolVar(&flags.AI, "ai", false, "Categorize uncategorized transactions with Gemini")
	Cmd.Flags().StringVar(&flags.User, "user", "", "User whose learned categories and history are used (default data.user)")
	Cmd.Flags().BoolVar(&flags.NoSave, "no-save", false, "Do not save the batches in the history")
	Cmd.Flags().IntVar(&flags.Workers, "workers", DefaultWorkers, "Statements processed concurrently")

	// Override the usage text for the input/output flags in batch context
	Cmd.SetUsageTemplate(`Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags (for batch, -i/-o refer to directories):
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)
}

func batchFunc(cmd *cobra.Command, args []string) error {
	c, err := common.Require(root.GetContainer())
	if err != nil {
		return err
	}
	logger := c.GetLogger()

	// Use the shared flags from root command
	inputDir := root.SharedFlags.Input
	outputDir := root.SharedFlags.Output
	if outputDir == "" {
		outputDir = inputDir
	}
	logger.Info("Batch command called",
		logging.F("input_dir", inputDir),
		logging.F("output_dir", outputDir))

	if err := validation.IsValidInputDir(inputDir); err != nil {
		return err
	}
	if err := fileutils.EnsureDirectoryExists(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	user, err := common.ResolveUser(c, flags.User)
	if err != nil {
		return err
	}

	files, err := fileutils.FindStatements(inputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No PDF statements found in input directory")
		fmt.Fprintln(cmd.OutOrStdout(), "No PDF statements found.")
		return nil
	}
	logger.Info("Found files for processing", logging.F(logging.FieldCount, len(files)))

	p := c.NewProcessor(container.ProcessorOptions{
		UserID: user,
		UseAI:  flags.AI || c.GetConfig().AI.Enabled,
		Save:   !flags.NoSave,
	})
	results := processAll(cmd.Context(), p, files, flags.Workers)

	format, ext := common.FormatCSV, "csv"
	if flags.XLSX {
		format, ext = common.FormatXLSX, "xlsx"
	}
	out := cmd.OutOrStdout()

	merged := batch.NewAggregator(logger).Merge(results)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", filepath.Base(r.File), r.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %d transactions (%s)\n", filepath.Base(r.File), len(r.Transactions), r.Extractor)
		if flags.Merge {
			continue
		}
		path := fileutils.OutputPath(r.File, outputDir, "."+ext)
		if err := common.WriteTransactions(c, r.Transactions, path, format); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}

	if flags.Merge && len(merged.Files) > 0 {
		txs := merged.Transactions
		if flags.Dedup {
			txs = merged.Deduplicated()
		}
		path := filepath.Join(outputDir, batch.OutputFilename("statements", merged.DateRange, ext))
		if err := common.WriteTransactions(c, txs, path, format); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
		fmt.Fprintf(out, "Merged %d transactions into %s\n", len(txs), path)
	}
	if len(merged.Duplicates) > 0 {
		fmt.Fprintf(out, "%d transactions appear in more than one statement\n", len(merged.Duplicates))
	}

	logger.Info(fmt.Sprintf("Batch processing completed. %d of %d statements converted.", len(merged.Files), len(files)))
	if len(merged.Files) == 0 {
		return fmt.Errorf("no statement could be converted")
	}
	return nil
}

// processAll runs the pipeline on every file, at most workers at a time. A
// failing statement does not stop the others.
func processAll(ctx context.Context, p *pipeline.Processor, files []string, workers int) []batch.StatementResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]batch.StatementResult, len(files))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			res, err := p.Process(ctx, file)
			results[i] = batch.StatementResult{File: file, Err: err}
			if err == nil {
				results[i].Extractor = res.Extractor
				results[i].Transactions = res.Transactions
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
