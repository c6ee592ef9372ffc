// Package export renders tabular datasets as CSV or PDF documents.
package export

import "fmt"

// Column is one output column. Width is a relative weight used by the PDF
// layout; zero means 1.
type Column struct {
	Header string
	Width  float64
}

// Dataset is an ordered table. Each row must hold one value per column.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Headers lists the column headers in order.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}
