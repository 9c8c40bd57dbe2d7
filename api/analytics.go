package api

import (
	"time"

	"fintrack/middleware"
	"fintrack/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 统计处理器
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	now       func() time.Time
}

// NewAnalyticsHandler 创建统计处理器
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, now: time.Now}
}

func (h *AnalyticsHandler) period(c *gin.Context) (year, month int, err error) {
	return yearMonth(c, h.now())
}

// Summary 月度汇总
// @Summary 月度汇总
// @Description 收支合计、结余、预算使用情况和类别占比，缺省为当月
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {object} Response{data=service.SummaryReport} "获取成功"
// @Router /api/analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	year, month, err := h.period(c)
	if err != nil {
		Fail(c, err)
		return
	}
	report, err := h.analytics.MonthlySummary(c.Request.Context(), middleware.GetCurrentUserID(c), year, month)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, report)
}

// Trends 收支趋势
// @Summary 收支趋势
// @Description 截至本月的连续 N 个月收支，N 默认 6，最大 24，无数据月份为 0
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param months query int false "月数" default(6)
// @Success 200 {object} Response{data=service.TrendSeries} "获取成功"
// @Router /api/analytics/trends [get]
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	months, err := queryInt(c, "months", service.DefaultTrendMonths)
	if err != nil {
		Fail(c, err)
		return
	}
	series, err := h.analytics.Trends(c.Request.Context(), middleware.GetCurrentUserID(c), months, h.now())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, series)
}

// Yearly 年度汇总
// @Summary 年度汇总
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份，缺省为今年"
// @Success 200 {object} Response{data=service.YearlySummary} "获取成功"
// @Router /api/analytics/yearly [get]
func (h *AnalyticsHandler) Yearly(c *gin.Context) {
	year, _, err := h.period(c)
	if err != nil {
		Fail(c, err)
		return
	}
	summary, err := h.analytics.Yearly(c.Request.Context(), middleware.GetCurrentUserID(c), year)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, summary)
}

// Daily 每日消费
// @Summary 每日消费
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {object} Response{data=service.DailySpending} "获取成功"
// @Router /api/analytics/daily [get]
func (h *AnalyticsHandler) Daily(c *gin.Context) {
	year, month, err := h.period(c)
	if err != nil {
		Fail(c, err)
		return
	}
	daily, err := h.analytics.Daily(c.Request.Context(), middleware.GetCurrentUserID(c), year, month)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, daily)
}
