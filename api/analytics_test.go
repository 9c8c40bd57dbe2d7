package api

import (
	"net/http"
	"testing"
	"time"

	"fintrack/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func analyticsRouter() *gin.Engine {
	router := newTestRouter(1, models.RoleUser)
	// 参数校验在访问数据库之前完成
	h := NewAnalyticsHandler(nil)
	h.now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local) }
	router.GET("/analytics/summary", h.Summary)
	router.GET("/analytics/trends", h.Trends)
	router.GET("/analytics/yearly", h.Yearly)
	router.GET("/analytics/daily", h.Daily)
	return router
}

func TestAnalyticsHandler_RejectsBadPeriod(t *testing.T) {
	router := analyticsRouter()

	tests := []struct {
		path    string
		message string
	}{
		{"/analytics/summary?month=13", "Month must be between 1 and 12"},
		{"/analytics/daily?month=0", "Month must be between 1 and 12"},
		{"/analytics/summary?year=abc", "year must be a number"},
		{"/analytics/yearly?year=1800", "Year must be between 1970 and 2100"},
		{"/analytics/trends?months=six", "months must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}
