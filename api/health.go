package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/database"

	"github.com/gin-gonic/gin"
)

// Health 健康检查，数据库不可用时返回 503
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{} "服务正常"
// @Failure 503 {object} map[string]interface{} "数据库不可用"
// @Router /health [get]
func Health(c *gin.Context) {
	status, code, db := "ok", http.StatusOK, "up"
	if err := pingDatabase(c.Request.Context()); err != nil {
		status, code, db = "degraded", http.StatusServiceUnavailable, "down"
	}
	c.JSON(code, gin.H{
		"status":    status,
		"database":  db,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

var errDatabaseNotReady = errors.New("database not initialized")

func pingDatabase(ctx context.Context) error {
	if database.DB == nil {
		return errDatabaseNotReady
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
