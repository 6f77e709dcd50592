// Package categorize handles transaction categorization commands
package categorize

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/currencyutils"
	"fjacquet/statement-csv/internal/dateutils"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Flags of the categorize command.
type Flags struct {
	Description string
	Concept     string
	Amount      string
	Date        string
	User        string
	AI          bool
}

var flags Flags

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize a single transaction",
	Long: `Categorize a single transaction from its description and concept.

Every strategy is tried in order (learned corrections, keyword rules and,
with --ai, the Gemini API) and the outcome of each is printed.

Example:
  statement-csv categorize -d "Compra targeta MERCADONA" -a -23,40`,
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&flags.Description, "description", "d", "", "Transaction description")
	Cmd.Flags().StringVarP(&flags.Concept, "concept", "c", "", "Transaction concept (optional)")
	Cmd.Flags().StringVarP(&flags.Amount, "amount", "a", "", "Transaction amount, negative for expenses (optional)")
	Cmd.Flags().StringVarP(&flags.Date, "date", "t", "", "Transaction date, dd/mm/yyyy (optional)")
	Cmd.Flags().StringVar(&flags.User, "user", "", "User whose learned categories are used (default data.user)")
	Cmd.Flags().BoolVar(&flags.AI, "ai", false, "Also ask Gemini")
	_ = Cmd.MarkFlagRequired("description")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	c, err := common.Require(root.GetContainer())
	if err != nil {
		return err
	}
	logger := c.GetLogger()
	logger.Info("Categorize command called", logging.F(logging.FieldDescription, flags.Description))

	user, err := common.ResolveUser(c, flags.User)
	if err != nil {
		return err
	}
	tx, err := buildTransaction(flags)
	if err != nil {
		return err
	}
	if flags.AI {
		if err := c.EnableRemote(); err != nil {
			logger.WithError(err).Warn("Gemini is not available, using the local rules only")
		}
	}

	classifier, err := c.NewClassifier(cmd.Context(), user)
	if err != nil {
		return err
	}
	results := classifier.Explain(cmd.Context(), tx)
	category, found := results.Best()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Strategies: %s\n", results.Summary())
	for _, e := range results.Errors() {
		fmt.Fprintf(out, "  %v\n", e)
	}
	if !found {
		fmt.Fprintf(out, "No strategy matched, category: %s\n", category)
		return nil
	}
	fmt.Fprintf(out, "Category: %s\n", category)
	return nil
}

func buildTransaction(f Flags) (models.Transaction, error) {
	if strings.TrimSpace(f.Description) == "" {
		return models.Transaction{}, fmt.Errorf("description is required for categorization")
	}
	amount := decimal.Zero
	if f.Amount != "" {
		parsed, ok := parseAmount(f.Amount)
		if !ok {
			return models.Transaction{}, fmt.Errorf("invalid amount: %s", f.Amount)
		}
		amount = parsed
	}
	date := time.Now()
	if f.Date != "" {
		date = dateutils.ParseDate(f.Date)
		if dateutils.IsEpoch(date) {
			return models.Transaction{}, fmt.Errorf("invalid date: %s", f.Date)
		}
	}
	return models.NewTransaction(date, dateutils.FormatDisplay(date), f.Concept, f.Description, amount), nil
}

// parseAmount accepts both "-23.40" and the statement form "-23,40 €".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, "€", "")
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d, true
	}
	return currencyutils.ParseAmount(s)
}
