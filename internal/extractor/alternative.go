package extractor

import (
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/reflow"
)

// Alternative re-derives the text from the glyph runs with the looser line
// threshold and runs the table extractor on it.
type Alternative struct{}

// NewAlternative creates the alternative glyph-level extractor.
func NewAlternative() *Alternative { return &Alternative{} }

func (*Alternative) Name() string { return "alternative" }

func (*Alternative) Extract(doc *reflow.Document) []models.Transaction {
	if len(doc.Pages) == 0 {
		return nil
	}
	loose := reflow.Loose(doc.Pages)
	return extractTable(loose.Text)
}
