package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"fintrack/models"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// csvBOM 让 Excel 正确识别 UTF-8
const csvBOM = "\xEF\xBB\xBF"

// ExportHeaders 导出文件的列
var ExportHeaders = []string{"Date", "Description", "Category", "Amount", "Payment Method", "Notes"}

// ExportRow 导出的一行消费
type ExportRow struct {
	ID            uint      `json:"id"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	CategoryColor string    `json:"-"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	Notes         string    `json:"-"`
}

// ReportCategory 报表中的类别合计
type ReportCategory struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ReportPeriod 报表所属年月
type ReportPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthlyReport 月度报表
type MonthlyReport struct {
	Period            ReportPeriod     `json:"period"`
	TotalExpenses     int              `json:"totalExpenses"`
	TotalAmount       float64          `json:"totalAmount"`
	CategoryBreakdown []ReportCategory `json:"categoryBreakdown"`
	Expenses          []ExportRow      `json:"expenses"`
}

// RowsFromExpenses 转换为导出行，类别需已预加载
func RowsFromExpenses(expenses []models.Expense) []ExportRow {
	rows := make([]ExportRow, 0, len(expenses))
	for _, e := range expenses {
		row := ExportRow{
			ID:            e.ID,
			Date:          e.Date,
			Description:   e.Description,
			Category:      "Unknown",
			Amount:        e.Amount,
			PaymentMethod: e.PaymentMethod,
			Notes:         e.Notes,
		}
		if e.Category != nil {
			row.Category = e.Category.Name
			row.CategoryColor = e.Category.Color
		}
		rows = append(rows, row)
	}
	return rows
}

// TotalAmount 合计金额，按分累加
func TotalAmount(rows []ExportRow) float64 {
	var cents int64
	for _, r := range rows {
		cents += toCents(r.Amount)
	}
	return fromCents(cents)
}

// GroupByCategory 按类别汇总，金额降序
func GroupByCategory(rows []ExportRow) []ReportCategory {
	type acc struct {
		idx   int
		cents int64
		count int
		color string
	}
	byName := make(map[string]*acc)
	var order []string
	var grand int64
	for _, r := range rows {
		a, ok := byName[r.Category]
		if !ok {
			a = &acc{idx: len(order), color: r.CategoryColor}
			byName[r.Category] = a
			order = append(order, r.Category)
		}
		cents := toCents(r.Amount)
		a.cents += cents
		a.count++
		grand += cents
	}

	out := make([]ReportCategory, 0, len(order))
	for _, name := range order {
		a := byName[name]
		out = append(out, ReportCategory{
			Name:       name,
			Color:      a.color,
			Total:      fromCents(a.cents),
			Count:      a.count,
			Percentage: round2(percentOf(fromCents(a.cents), fromCents(grand))),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

// BuildMonthlyReport 生成月度报表
func BuildMonthlyReport(year, month int, rows []ExportRow) MonthlyReport {
	if rows == nil {
		rows = []ExportRow{}
	}
	return MonthlyReport{
		Period:            ReportPeriod{Year: year, Month: month},
		TotalExpenses:     len(rows),
		TotalAmount:       TotalAmount(rows),
		CategoryBreakdown: GroupByCategory(rows),
		Expenses:          rows,
	}
}

// WriteCSV 写出带 BOM 的 CSV
func WriteCSV(w io.Writer, rows []ExportRow) error {
	if _, err := io.WriteString(w, csvBOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			r.Description,
			r.Category,
			fmt.Sprintf("%.2f", r.Amount),
			r.PaymentMethod,
			r.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF 写出 PDF 报表：汇总加明细表
func WritePDF(w io.Writer, rows []ExportRow, start, end time.Time, currency string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Expense Report", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Expense Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s - %s", start.Format("2006-01-02"), end.Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total Expenses: %d", len(rows)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total Amount: %s %.2f", currency, TotalAmount(rows)), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	widths := []float64{25, 60, 40, 30, 35}
	headers := []string{"Date", "Description", "Category", "Amount", "Payment"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(79, 129, 189)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, r := range rows {
		pdf.CellFormat(widths[0], 7, r.Date.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(truncate(r.Description, 32)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, tr(truncate(r.Category, 20)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%.2f", r.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, strings.ReplaceAll(r.PaymentMethod, "_", " "), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Generated on "+time.Now().Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}

// WriteExcel 写出 Excel：明细表加类别汇总表
func WriteExcel(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}
	dataStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 32)
	f.SetColWidth(sheet, "C", "C", 20)
	f.SetColWidth(sheet, "D", "D", 12)
	f.SetColWidth(sheet, "E", "E", 16)
	f.SetColWidth(sheet, "F", "F", 30)

	for i, header := range ExportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Date.Format("2006-01-02"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Description)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.Category)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Amount)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.PaymentMethod)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Notes)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)
	}

	// 合计行
	summaryRow := len(rows) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.MergeCell(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("C%d", summaryRow))
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow), TotalAmount(rows))
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("%d records", len(rows)))
	f.MergeCell(sheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("F%d", summaryRow))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)

	const catSheet = "Categories"
	if _, err := f.NewSheet(catSheet); err != nil {
		return err
	}
	f.SetColWidth(catSheet, "A", "A", 24)
	f.SetColWidth(catSheet, "B", "D", 14)
	for i, header := range []string{"Category", "Count", "Total", "Percentage"} {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(catSheet, cell, header)
		f.SetCellStyle(catSheet, cell, cell, headerStyle)
	}
	for i, cat := range GroupByCategory(rows) {
		row := i + 2
		f.SetCellValue(catSheet, fmt.Sprintf("A%d", row), cat.Name)
		f.SetCellValue(catSheet, fmt.Sprintf("B%d", row), cat.Count)
		f.SetCellValue(catSheet, fmt.Sprintf("C%d", row), cat.Total)
		f.SetCellValue(catSheet, fmt.Sprintf("D%d", row), cat.Percentage)
		f.SetCellStyle(catSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), dataStyle)
	}

	return f.Write(w)
}
