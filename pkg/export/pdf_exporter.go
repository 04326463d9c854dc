package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 7.0
	wideTableCols = 6
)

// PDFExporter renders datasets as a paginated table. Header cells repeat on
// every page and numeric cells are right aligned.
type PDFExporter struct {
	// Footer is printed left of the page number on every page.
	Footer string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Footer: "Campus Ledger"}
}

// Render lays the table out on A4, switching to landscape for wide tables.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	orientation := "P"
	if len(data.Headers) > wideTableCols {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	pageWidth, _ := pdf.GetPageSize()
	widths := columnWidths(data, pageWidth-2*pdfMargin)
	numeric := numericColumns(data)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s  |  page %d/{nb}", e.Footer, pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()

	row := func(cells []string) {
		for i, value := range cells {
			align := "L"
			if numeric[i] {
				align = "R"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	for _, cells := range data.Rows {
		row(cells)
	}
	if data.Totals != nil {
		pdf.SetFont("Arial", "B", 9)
		row(data.Totals)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the usable width in proportion to the longest cell of
// each column, with a floor so short columns stay legible.
func columnWidths(data Dataset, usable float64) []float64 {
	longest := make([]int, len(data.Headers))
	total := 0
	for _, record := range data.records() {
		for i, cell := range record {
			if n := len(cell); n > longest[i] {
				longest[i] = n
			}
		}
	}
	for i := range longest {
		if longest[i] < 6 {
			longest[i] = 6
		}
		total += longest[i]
	}
	widths := make([]float64, len(longest))
	for i, n := range longest {
		widths[i] = usable * float64(n) / float64(total)
	}
	return widths
}

// numericColumns flags columns whose non-empty body cells all parse as numbers.
func numericColumns(data Dataset) []bool {
	flags := make([]bool, len(data.Headers))
	for col := range data.Headers {
		seen := false
		numeric := true
		for _, row := range data.Rows {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}
		flags[col] = seen && numeric
	}
	return flags
}
