package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFamily = "unicode"

// PDFExporter renders datasets into a basic tabular PDF.
// Without a UTF-8 font only cp1252 text renders; other runes (Hangul included) print as '.'.
type PDFExporter struct {
	now  func() time.Time
	font []byte
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// UseUTF8Font loads a TrueType font used for every cell instead of the core fonts.
func (e *PDFExporter) UseUTF8Font(path string) error {
	font, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pdf font: %w", err)
	}
	if len(font) == 0 {
		return fmt.Errorf("pdf font %s is empty", path)
	}
	e.font = font
	return nil
}

// UnicodeCapable reports whether a UTF-8 font is loaded.
func (e *PDFExporter) UnicodeCapable() bool {
	return e.font != nil
}

// Render creates a landscape PDF with a title, a table body and a generated-at footer.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	// gofpdf core fonts are cp1252; the translator keeps latin text intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.font != nil {
		family = unicodeFamily
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8FontFromBytes(family, style, e.font)
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load pdf font: %w", err)
		}
		tr = func(s string) string { return s }
	}

	generated := e.now().UTC().Format(time.RFC3339)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(family, "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("generated %s - page %d", generated, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))

	pdf.SetFont(family, "B", 9)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(truncate(row[header], 48)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
