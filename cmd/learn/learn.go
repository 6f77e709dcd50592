// Package learn records a user's category correction for a transaction.
package learn

import (
	"fmt"
	"strings"

	"fjacquet/statement-csv/cmd/common"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/categorizer"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/models"

	"github.com/spf13/cobra"
)

var (
	description string
	concept     string
	category    string
	user        string
)

// Cmd represents the learn command
var Cmd = &cobra.Command{
	Use:   "learn",
	Short: "Teach the category of a transaction",
	Long: `Record the category of a transaction for a user. Later conversions
classify transactions with the same description and concept, or a close
variant of them, with this category before any other rule.

Categories: ` + strings.Join(models.AllCategories, ", ") + `

Example:
  statement-csv learn -d "Bizum recibido" -c Bizum --category Income --user ana`,
	RunE: learnFunc,
}

func init() {
	Cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description")
	Cmd.Flags().StringVarP(&concept, "concept", "c", "", "Transaction concept")
	Cmd.Flags().StringVar(&category, "category", "", "Category to learn")
	Cmd.Flags().StringVar(&user, "user", "", "User the correction belongs to (default data.user)")
	_ = Cmd.MarkFlagRequired("description")
	_ = Cmd.MarkFlagRequired("category")
}

func learnFunc(cmd *cobra.Command, args []string) error {
	c, err := common.Require(root.GetContainer())
	if err != nil {
		return err
	}
	userID, err := common.ResolveUser(c, user)
	if err != nil {
		return err
	}
	if categorizer.LearnedKey(description, concept) == "" {
		return fmt.Errorf("description and concept cannot both be empty")
	}

	tx := models.Transaction{Description: description, Concept: concept}
	p := c.NewProcessor(container.ProcessorOptions{UserID: userID})
	tx, err = p.Reclassify(cmd.Context(), userID, tx, category)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Learned %q as %s for %s\n",
		categorizer.LearnedKey(tx.Description, tx.Concept), tx.Category, userID)
	return nil
}
