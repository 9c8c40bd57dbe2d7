package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/apperror"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// parsePage 读取 page / limit，limit 上限 100
func parsePage(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}

// parseID 解析路径中的数字 ID
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, apperror.BadRequest("Invalid ID format")
	}
	return uint(id), nil
}

// parseDate 支持 2006-01-02 与 RFC3339
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(time.Local), nil
	}
	return time.Time{}, apperror.BadRequest(fmt.Sprintf("Invalid date: %q", value))
}

// parseEndDate 纯日期视为当天结束
func parseEndDate(value string) (time.Time, error) {
	t, err := parseDate(value)
	if err != nil {
		return t, err
	}
	if len(strings.TrimSpace(value)) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// dateRange 读取 startDate / endDate，缺省为本月一日到现在
func dateRange(c *gin.Context, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now
	if s := c.Query("startDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return start, end, err
		}
		start = t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := parseEndDate(s)
		if err != nil {
			return start, end, err
		}
		end = t
	}
	if end.Before(start) {
		return start, end, apperror.BadRequest("endDate must not be before startDate")
	}
	return start, end, nil
}

// yearMonth 读取 year / month 参数，缺省为当前年月
func yearMonth(c *gin.Context, now time.Time) (year, month int, err error) {
	if year, err = queryInt(c, "year", now.Year()); err != nil {
		return
	}
	if month, err = queryInt(c, "month", int(now.Month())); err != nil {
		return
	}
	if month < 1 || month > 12 {
		err = apperror.BadRequest("Month must be between 1 and 12")
		return
	}
	if year < 1970 || year > 2100 {
		err = apperror.BadRequest("Year must be between 1970 and 2100")
	}
	return
}

// queryInt 读取整数参数，缺省返回 def
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.BadRequest(fmt.Sprintf("%s must be a number", key))
	}
	return n, nil
}

// queryFloat 读取可选的金额参数
func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.BadRequest(fmt.Sprintf("%s must be a number", key))
	}
	return &f, nil
}

// orderClause 只允许白名单内的排序字段
func orderClause(c *gin.Context, columns map[string]string, def string) string {
	column, ok := columns[c.DefaultQuery("sortBy", def)]
	if !ok {
		column = columns[def]
	}
	if strings.EqualFold(c.Query("sortOrder"), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
