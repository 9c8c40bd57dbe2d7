package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"fintrack/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportRouter(userID uint) *gin.Engine {
	router := newTestRouter(userID, models.RoleUser)
	h := NewExportHandler()
	h.now = func() time.Time { return time.Date(2025, 3, 20, 12, 0, 0, 0, time.Local) }
	router.GET("/export/csv", h.ExportCSV)
	router.GET("/export/pdf", h.ExportPDF)
	router.GET("/export/excel", h.ExportExcel)
	router.GET("/export/report", h.Report)
	return router
}

func TestExportHandler_CSV(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT \\* FROM `expenses`").
		WillReturnRows(expenseRows().
			AddRow(2, 1, 300, 5, day, "Metro card", "debit_card", "").
			AddRow(1, 1, 120.1, 3, day, "Groceries", "upi", ""))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().
			AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true).
			AddRow(5, "Transportation", "#3B82F6", "car", nil, true))

	w := doRequest(exportRouter(1), http.MethodGet, "/export/csv?startDate=2025-03-01&endDate=2025-03-31", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "attachment; filename=expenses_2025-03-01_to_2025-03-31.csv", w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Contains(t, body, "Date,Description,Category,Amount,Payment Method,Notes")
	assert.Contains(t, body, "2025-03-14,Metro card,Transportation,300.00,debit_card,")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_DefaultRange(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	mock.ExpectQuery("SELECT \\* FROM `expenses`").WillReturnRows(expenseRows())

	w := doRequest(exportRouter(1), http.MethodGet, "/export/excel", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=expenses_2025-03-01_to_2025-03-20.xlsx", w.Header().Get("Content-Disposition"))
	assert.Equal(t, contentTypeExcel, w.Header().Get("Content-Type"))
}

func TestExportHandler_PDF(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	mock.ExpectQuery("SELECT \\* FROM `expenses`").WillReturnRows(expenseRows())

	w := doRequest(exportRouter(1), http.MethodGet, "/export/pdf?startDate=2025-02-01&endDate=2025-02-28", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=expense_report_2025-02-01_to_2025-02-28.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestExportHandler_BadRange(t *testing.T) {
	w := doRequest(exportRouter(1), http.MethodGet, "/export/csv?startDate=2025-03-10&endDate=2025-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandler_Report(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT \\* FROM `expenses`").
		WillReturnRows(expenseRows().
			AddRow(4, 1, 80, 3, day, "Dinner", "cash", "").
			AddRow(3, 1, 20, 3, day, "Snacks", "cash", ""))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true))

	w := doRequest(exportRouter(1), http.MethodGet, "/export/report?year=2025&month=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := dataOf(t, w)
	assert.Equal(t, float64(2), data["totalExpenses"])
	assert.Equal(t, float64(100), data["totalAmount"])
	breakdown := data["categoryBreakdown"].([]interface{})
	require.Len(t, breakdown, 1)
	assert.Equal(t, float64(100), breakdown[0].(map[string]interface{})["percentage"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_Report_BadMonth(t *testing.T) {
	w := doRequest(exportRouter(1), http.MethodGet, "/export/report?month=13", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Month must be between 1 and 12", decode(t, w)["message"])
}
