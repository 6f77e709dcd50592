// Package pdfparser reads positioned glyph runs out of PDF files.
package pdfparser

import (
	"context"

	"fjacquet/statement-csv/internal/reflow"
)

// GlyphSource defines the interface for extracting glyph runs from PDF files.
// Pages are returned in document order.
type GlyphSource interface {
	ExtractRuns(ctx context.Context, pdfPath string) ([][]reflow.GlyphRun, error)
}

// MockGlyphSource implements GlyphSource for testing purposes.
type MockGlyphSource struct {
	Pages [][]reflow.GlyphRun
	Err   error
	Calls int
}

// NewMockGlyphSource creates a MockGlyphSource returning the given pages or error.
func NewMockGlyphSource(pages [][]reflow.GlyphRun, err error) *MockGlyphSource {
	return &MockGlyphSource{Pages: pages, Err: err}
}

// ExtractRuns returns the predefined pages or error.
func (m *MockGlyphSource) ExtractRuns(ctx context.Context, _ string) ([][]reflow.GlyphRun, error) {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Pages, nil
}

// RunsFromLines builds a single page with one EOL run per line, spaced so that
// each line reflows onto its own row. Handy for feeding plain text through the pipeline.
func RunsFromLines(lines ...string) [][]reflow.GlyphRun {
	page := make([]reflow.GlyphRun, 0, len(lines))
	y := 800.0
	for _, l := range lines {
		page = append(page, reflow.GlyphRun{Text: l, EOL: true, Y: y})
		y -= 12
	}
	return [][]reflow.GlyphRun{page}
}
