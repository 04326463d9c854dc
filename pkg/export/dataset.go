// Package export renders tabular ledger reports as CSV, PDF and XLSX files.
package export

import "fmt"

// Dataset is a titled table. Rows are positional and must match Headers in
// width. Totals, when set, is rendered as a closing summary row.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Totals  []string
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Validate checks the table is rectangular.
func (d Dataset) Validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(d.Headers))
		}
	}
	if d.Totals != nil && len(d.Totals) != len(d.Headers) {
		return fmt.Errorf("totals row has %d cells, want %d", len(d.Totals), len(d.Headers))
	}
	return nil
}

func (d Dataset) records() [][]string {
	out := make([][]string, 0, len(d.Rows)+2)
	out = append(out, d.Headers)
	out = append(out, d.Rows...)
	if d.Totals != nil {
		out = append(out, d.Totals)
	}
	return out
}
