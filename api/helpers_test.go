package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/config"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

// useMode 设置运行模式，测试结束后恢复
func useMode(t *testing.T, mode string) *config.Config {
	t.Helper()
	prev := config.GlobalConfig
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: mode, ClientURL: "http://localhost:3000"},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpire:  15 * time.Minute,
			RefreshExpire: time.Hour,
		},
	}
	config.GlobalConfig = cfg
	t.Cleanup(func() { config.GlobalConfig = prev })
	return cfg
}

// setUser 模拟 Authenticate 写入的身份
func setUser(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID == 0 {
			c.Next()
			return
		}
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserEmail, "jane@example.com")
		c.Set(middleware.ContextUserRole, role)
		c.Set(middleware.ContextCurrentUser, &models.User{
			ID:       userID,
			Name:     "Jane Doe",
			Email:    "jane@example.com",
			Role:     role,
			Currency: models.DefaultCurrency,
		})
		c.Next()
	}
}

func newTestRouter(userID uint, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(), setUser(userID, role))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req = httptest.NewRequest(method, path, nil)
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func categoryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "color", "icon", "user_id", "is_default"})
}

func expenseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "amount", "category_id", "date", "description", "payment_method", "notes"})
}

func userColumns() []string {
	return []string{"id", "name", "email", "password", "currency", "role", "is_blocked", "refresh_token", "reset_password_token", "reset_password_expires"}
}
