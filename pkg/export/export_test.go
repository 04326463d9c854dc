package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Fee Report",
		Headers: []string{"Category", "Count", "Collected"},
		Rows: [][]string{
			{"tuition", "2", "1500.00"},
			{"lab", "1", "250.50"},
		},
		Totals: []string{"total", "3", "1750.50"},
	}
}

func TestDatasetValidate(t *testing.T) {
	require.NoError(t, sampleDataset().Validate())

	assert.Error(t, Dataset{}.Validate())

	ragged := sampleDataset()
	ragged.Rows = append(ragged.Rows, []string{"exam"})
	assert.ErrorContains(t, ragged.Validate(), "row 3")

	badTotals := sampleDataset()
	badTotals.Totals = []string{"total"}
	assert.ErrorContains(t, badTotals.Validate(), "totals")
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("\ufeff")))

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Category", "Count", "Collected"},
		{"tuition", "2", "1500.00"},
		{"lab", "1", "250.50"},
		{"total", "3", "1750.50"},
	}, records)
}

func TestCSVExporterWithoutBOM(t *testing.T) {
	out, err := (&CSVExporter{}).Render(Dataset{Headers: []string{"a,b"}, Rows: [][]string{{`say "hi"`}}})
	require.NoError(t, err)
	assert.Equal(t, "\"a,b\"\n\"say \"\"hi\"\"\"\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterRendersWideLongTables(t *testing.T) {
	data := Dataset{Headers: []string{"Date", "Present", "Late", "Absent", "Total", "Attended", "Attendance (%)"}}
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, []string{"2025-03-01", "20", "2", "3", "25", "22", "84"})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("/Count ")))
}

func TestColumnWidthsShareUsableWidth(t *testing.T) {
	widths := columnWidths(sampleDataset(), 190)
	require.Len(t, widths, 3)
	sum := 0.0
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, 190, sum, 0.001)
	assert.Greater(t, widths[2], widths[1], "Collected is wider than Count")
}

func TestNumericColumns(t *testing.T) {
	assert.Equal(t, []bool{false, true, true}, numericColumns(sampleDataset()))
	assert.Equal(t, []bool{false}, numericColumns(Dataset{Headers: []string{"empty"}}))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Fee Report"}, f.GetSheetList())
	header, err := f.GetCellValue("Fee Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Category", header)
	collected, err := f.GetCellValue("Fee Report", "C3")
	require.NoError(t, err)
	assert.Equal(t, "250.5", collected)
	total, err := f.GetCellValue("Fee Report", "A4")
	require.NoError(t, err)
	assert.Equal(t, "total", total)
}

func TestXLSXExporterTruncatesSheetName(t *testing.T) {
	data := sampleDataset()
	data.Title = "Student 01h2xcejqtf2nbrexx3vqjhp41 Attendance"
	out, err := NewXLSXExporter().Render(data)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList()[0], maxSheetName)
}
