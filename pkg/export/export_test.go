package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Dataset {
	return Dataset{
		Title:   "Notes",
		Columns: []Column{{Header: "id"}, {Header: "title", Width: 3}},
		Rows: [][]string{
			{"n1", "Calculus, part 1"},
			{"n2", strings.Repeat("very long title ", 20)},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title", lines[0])
	assert.Equal(t, `n1,"Calculus, part 1"`, lines[1])
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := sample()
	data.Rows = append(data.Rows, []string{"only-one"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresColumns(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestColumnWidthsSpanPage(t *testing.T) {
	widths := columnWidths(sample().Columns)
	assert.InDelta(t, pdfPageWidth, widths[0]+widths[1], 0.001)
	assert.InDelta(t, widths[0]*3, widths[1], 0.001)
}
