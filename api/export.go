package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeCSV   = "text/csv; charset=utf-8"
	contentTypePDF   = "application/pdf"
	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	now func() time.Time
}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{now: time.Now}
}

// expenses 查询时间范围内的消费记录，按日期倒序
func (h *ExportHandler) expenses(c *gin.Context, start, end time.Time) ([]service.ExportRow, error) {
	var expenses []models.Expense
	if err := database.DB.WithContext(c.Request.Context()).
		Preload("Category").
		Where("user_id = ? AND date >= ? AND date <= ?", middleware.GetCurrentUserID(c), start, end).
		Order("date DESC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return service.RowsFromExpenses(expenses), nil
}

func (h *ExportHandler) rowsInRange(c *gin.Context) ([]service.ExportRow, time.Time, time.Time, bool) {
	start, end, err := dateRange(c, h.now())
	if err != nil {
		Fail(c, err)
		return nil, start, end, false
	}
	rows, err := h.expenses(c, start, end)
	if err != nil {
		Fail(c, err)
		return nil, start, end, false
	}
	return rows, start, end, true
}

func attachment(c *gin.Context, contentType, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, body)
}

func rangeName(prefix string, start, end time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_to_%s.%s", prefix, start.Format("2006-01-02"), end.Format("2006-01-02"), ext)
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出 CSV
// @Description 按时间范围导出消费记录，缺省为本月
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param startDate query string false "开始日期 (2025-01-01)"
// @Param endDate query string false "结束日期 (2025-01-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "日期格式错误"
// @Router /api/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows, start, end, ok := h.rowsInRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := service.WriteCSV(&buf, rows); err != nil {
		Fail(c, err)
		return
	}
	attachment(c, contentTypeCSV, rangeName("expenses", start, end, "csv"), buf.Bytes())
}

// ExportPDF 导出消费报表为 PDF
// @Summary 导出 PDF
// @Description 汇总和明细表，缺省为本月
// @Tags 导出
// @Produce application/pdf
// @Security BearerAuth
// @Param startDate query string false "开始日期"
// @Param endDate query string false "结束日期"
// @Success 200 {file} file "PDF 文件"
// @Router /api/export/pdf [get]
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	rows, start, end, ok := h.rowsInRange(c)
	if !ok {
		return
	}
	currency := models.DefaultCurrency
	if user := middleware.GetCurrentUser(c); user != nil && user.Currency != "" {
		currency = user.Currency
	}
	var buf bytes.Buffer
	if err := service.WritePDF(&buf, rows, start, end, currency); err != nil {
		Fail(c, err)
		return
	}
	attachment(c, contentTypePDF, rangeName("expense_report", start, end, "pdf"), buf.Bytes())
}

// ExportExcel 导出消费记录为 Excel
// @Summary 导出 Excel
// @Description 明细表加类别汇总表，缺省为本月
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param startDate query string false "开始日期"
// @Param endDate query string false "结束日期"
// @Success 200 {file} file "Excel 文件"
// @Router /api/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	rows, start, end, ok := h.rowsInRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := service.WriteExcel(&buf, rows); err != nil {
		Fail(c, err)
		return
	}
	attachment(c, contentTypeExcel, rangeName("expenses", start, end, "xlsx"), buf.Bytes())
}

// Report 月度消费报表
// @Summary 月度消费报表
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {object} Response{data=service.MonthlyReport} "获取成功"
// @Router /api/export/report [get]
func (h *ExportHandler) Report(c *gin.Context) {
	year, month, err := yearMonth(c, h.now())
	if err != nil {
		Fail(c, err)
		return
	}
	start, end := service.MonthWindow(year, month)
	rows, err := h.expenses(c, start, end)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, service.BuildMonthlyReport(year, month, rows))
}
