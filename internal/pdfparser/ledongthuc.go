package pdfparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/parsererror"
	"fjacquet/statement-csv/internal/reflow"

	"github.com/ledongthuc/pdf"
)

const (
	pdfMagic = "%PDF-"
	// baselineTolerance is how far two glyphs may sit vertically and still share a baseline.
	baselineTolerance = 0.5
	// gapFactor scales the font size into the widest gap still treated as intra-run.
	gapFactor = 0.25
)

// LedongthucSource implements GlyphSource with github.com/ledongthuc/pdf.
type LedongthucSource struct {
	logger logging.Logger
}

// NewLedongthucSource creates a new LedongthucSource.
func NewLedongthucSource(logger logging.Logger) *LedongthucSource {
	return &LedongthucSource{logger: logging.OrDefault(logger)}
}

// ValidatePDF checks that the file starts with the PDF magic bytes.
func ValidatePDF(pdfPath string) error {
	f, err := os.Open(pdfPath) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		return fmt.Errorf("error opening input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(f, head)
	if err != nil || !bytes.Equal(head[:n], []byte(pdfMagic)) {
		return &parsererror.InvalidFormatError{
			FilePath:             pdfPath,
			ExpectedFormat:       "PDF",
			ActualContentSnippet: string(head[:n]),
			Msg:                  "missing %PDF- header",
		}
	}
	return nil
}

// ExtractRuns opens the PDF and returns the glyph runs of every page in order.
func (s *LedongthucSource) ExtractRuns(ctx context.Context, pdfPath string) (pages [][]reflow.GlyphRun, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &parsererror.InvalidFormatError{
				FilePath:       pdfPath,
				ExpectedFormat: "PDF",
				Msg:            fmt.Sprintf("PDF library crashed: %v", r),
			}
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, &parsererror.InvalidFormatError{
			FilePath:       pdfPath,
			ExpectedFormat: "PDF",
			Msg:            err.Error(),
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.WithError(cerr).Warn("Failed to close PDF file",
				logging.F(logging.FieldFile, pdfPath))
		}
	}()

	numPages := r.NumPage()
	pages = make([][]reflow.GlyphRun, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, mergeGlyphs(page.Content().Text))
	}

	s.logger.Debug("Extracted glyph runs",
		logging.F(logging.FieldFile, pdfPath),
		logging.F(logging.FieldPages, len(pages)))
	return pages, nil
}

// mergeGlyphs joins consecutive glyphs sharing a baseline into runs. A run
// breaks at a horizontal gap wider than a fraction of the font size, and the
// last run before a baseline change is marked EOL.
func mergeGlyphs(glyphs []pdf.Text) []reflow.GlyphRun {
	var runs []reflow.GlyphRun
	var cur strings.Builder
	var curY, nextX float64
	open := false

	flush := func(eol bool) {
		if !open {
			return
		}
		if text := strings.TrimSpace(cur.String()); text != "" {
			runs = append(runs, reflow.GlyphRun{Text: text, Y: curY})
		}
		if eol && len(runs) > 0 {
			runs[len(runs)-1].EOL = true
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if open {
			switch {
			case math.Abs(g.Y-curY) > baselineTolerance:
				flush(true)
			case g.X-nextX > g.FontSize*gapFactor && g.FontSize > 0:
				flush(false)
			}
		}
		if !open {
			curY = g.Y
			open = true
		}
		cur.WriteString(g.S)
		nextX = g.X + g.W
	}
	flush(true)
	return runs
}
