package service

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"fintrack/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []ExportRow {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)
	return []ExportRow{
		{ID: 1, Date: day, Description: "Groceries", Category: "Food & Dining", Amount: 120.10, PaymentMethod: "upi"},
		{ID: 2, Date: day, Description: "Metro card", Category: "Transportation", Amount: 300, PaymentMethod: "debit_card"},
		{ID: 3, Date: day, Description: "Lunch, with team", Category: "Food & Dining", Amount: 79.90, PaymentMethod: "cash", Notes: "split"},
	}
}

func TestRowsFromExpenses(t *testing.T) {
	rows := RowsFromExpenses([]models.Expense{
		{ID: 1, Amount: 10, Category: &models.Category{Name: "Shopping", Color: "#F59E0B"}},
		{ID: 2, Amount: 20},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Shopping", rows[0].Category)
	assert.Equal(t, "#F59E0B", rows[0].CategoryColor)
	assert.Equal(t, "Unknown", rows[1].Category)
}

func TestGroupByCategory(t *testing.T) {
	groups := GroupByCategory(sampleRows())
	require.Len(t, groups, 2)

	assert.Equal(t, "Transportation", groups[0].Name)
	assert.Equal(t, 300.0, groups[0].Total)
	assert.Equal(t, 60.0, groups[0].Percentage)

	assert.Equal(t, "Food & Dining", groups[1].Name)
	assert.Equal(t, 200.0, groups[1].Total)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, 40.0, groups[1].Percentage)
}

func TestBuildMonthlyReport(t *testing.T) {
	report := BuildMonthlyReport(2025, 3, sampleRows())
	assert.Equal(t, ReportPeriod{Year: 2025, Month: 3}, report.Period)
	assert.Equal(t, 3, report.TotalExpenses)
	assert.Equal(t, 500.0, report.TotalAmount)
	assert.Len(t, report.CategoryBreakdown, 2)

	empty := BuildMonthlyReport(2025, 4, nil)
	assert.NotNil(t, empty.Expenses)
	assert.Empty(t, empty.CategoryBreakdown)
	assert.Zero(t, empty.TotalAmount)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, csvBOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, csvBOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, ExportHeaders, records[0])
	assert.Equal(t, []string{"2025-03-14", "Groceries", "Food & Dining", "120.10", "upi", ""}, records[1])
	// 含逗号的字段被正确引用
	assert.Equal(t, "Lunch, with team", records[3][1])
	assert.Equal(t, "split", records[3][5])
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Expenses", "Categories"}, f.GetSheetList())

	rows, err := f.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, ExportHeaders, rows[0])
	assert.Equal(t, "Metro card", rows[2][1])
	assert.Equal(t, "Total", rows[4][0])
	assert.Equal(t, "3 records", rows[4][4])

	cats, err := f.GetRows("Categories")
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Transportation", cats[1][0])
	assert.Equal(t, "Food & Dining", cats[2][0])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.Local)
	require.NoError(t, WritePDF(&buf, sampleRows(), start, end, "INR"))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefgh", 5))
}
