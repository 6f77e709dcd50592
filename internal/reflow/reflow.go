// Package reflow rebuilds line-oriented text from the positioned glyph runs
// of a PDF page.
package reflow

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultThreshold is the baseline distance, in points, that starts a new line.
	DefaultThreshold = 3.0
	// LooseThreshold is used by the alternative reflow.
	LooseThreshold = 5.0
)

// GlyphRun is one piece of text as positioned on a page.
type GlyphRun struct {
	Text string
	EOL  bool
	Y    float64
}

// Document is the reflowed text of a statement.
type Document struct {
	Text  string
	Lines []string
	// Pages keeps the source runs so the text can be re-derived with other settings.
	Pages [][]GlyphRun
}

// Reflow concatenates the runs of each page, inserting a newline whenever the
// rounded baseline moves by more than threshold. Pages are separated by a blank line.
func Reflow(pages [][]GlyphRun, threshold float64) Document {
	var b strings.Builder
	for _, page := range pages {
		var lastY float64
		for i, run := range page {
			y := math.Round(run.Y)
			if i > 0 && math.Abs(y-lastY) > threshold {
				b.WriteByte('\n')
			}
			b.WriteString(norm.NFC.String(run.Text))
			if !run.EOL {
				b.WriteByte(' ')
			}
			lastY = y
		}
		b.WriteString("\n\n")
	}
	return NewDocument(b.String(), pages)
}

// Loose reflows all pages as a single stream using the unrounded baseline and
// LooseThreshold. Every run is followed by a space.
func Loose(pages [][]GlyphRun) Document {
	var b strings.Builder
	first := true
	var lastY float64
	for _, page := range pages {
		for _, run := range page {
			if !first && math.Abs(run.Y-lastY) > LooseThreshold {
				b.WriteByte('\n')
			}
			b.WriteString(norm.NFC.String(run.Text))
			b.WriteByte(' ')
			lastY = run.Y
			first = false
		}
	}
	return NewDocument(b.String(), pages)
}

// NewDocument builds a Document from already flattened text.
func NewDocument(text string, pages [][]GlyphRun) Document {
	text = norm.NFC.String(text)
	return Document{Text: text, Lines: SplitLines(text), Pages: pages}
}

// FromText builds a Document with no glyph pages, as when text is supplied directly.
func FromText(text string) *Document {
	doc := NewDocument(text, nil)
	return &doc
}

// SplitLines splits text on newlines and drops blank lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
