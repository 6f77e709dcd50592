// Package history lists and exports the saved statement batches of a user.
package history

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/store"

	"github.com/spf13/cobra"
)

var (
	user    string
	batchID string
)

// Cmd represents the history command
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "List the saved statement batches",
	Long: `List the statement batches saved for a user, newest first, with their
transaction count and totals. With --id the transactions of one batch are
written as CSV to --output, or to stdout.

Example:
  statement-csv history --user ana
  statement-csv history --user ana --id 6f1c... -o gener.csv`,
	RunE: historyFunc,
}

func init() {
	Cmd.Flags().StringVar(&user, "user", "", "User whose history is listed (default data.user)")
	Cmd.Flags().StringVar(&batchID, "id", "", "Export the transactions of this batch")
}

func historyFunc(cmd *cobra.Command, args []string) error {
	c, err := common.Require(root.GetContainer())
	if err != nil {
		return err
	}
	userID, err := common.ResolveUser(c, user)
	if err != nil {
		return err
	}
	if batchID != "" {
		return exportBatch(cmd, c, userID)
	}

	summaries, err := c.GetStore().GetHistory(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("error loading history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintf(out, "No saved statements for %s\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tFILE\tTRANSACTIONS\tINCOME\tEXPENSES\tBALANCE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.FileName,
			s.Aggregates.TransactionCount,
			currencyutils.FormatAmount(s.Aggregates.TotalIncome, ""),
			currencyutils.FormatAmount(s.Aggregates.TotalExpenses, ""),
			balance(s.Aggregates),
		)
	}
	return w.Flush()
}

func balance(agg models.Aggregates) string {
	if !agg.FinalBalance.Valid {
		return "-"
	}
	return currencyutils.FormatAmount(agg.FinalBalance.Decimal, "")
}

func exportBatch(cmd *cobra.Command, c *container.Container, userID string) error {
	reader, ok := c.GetStore().(store.BatchReader)
	if !ok {
		return fmt.Errorf("the configured store cannot load batches")
	}
	b, err := reader.GetBatch(cmd.Context(), userID, batchID)
	if err != nil {
		return err
	}
	if root.SharedFlags.Output == "" {
		return c.CSVWriter().Write(cmd.OutOrStdout(), b.Transactions)
	}
	if err := c.CSVWriter().WriteFile(root.SharedFlags.Output, b.Transactions); err != nil {
		return fmt.Errorf("error writing %s: %w", root.SharedFlags.Output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d transactions written to %s\n", len(b.Transactions), root.SharedFlags.Output)
	return nil
}
