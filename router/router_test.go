package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/config"
	"fintrack/database"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpire:  15 * time.Minute,
			RefreshExpire: time.Hour,
		},
		Upload: config.UploadConfig{Dir: t.TempDir()},
	}
	prev := config.GlobalConfig
	config.GlobalConfig = cfg
	t.Cleanup(func() { config.GlobalConfig = prev })

	return SetupRouter(Deps{Config: cfg, Tokens: service.NewTokenService(cfg.JWT)})
}

func serve(r *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestSetupRouter(t *testing.T) {
	prevDB := database.DB
	database.DB = nil
	t.Cleanup(func() { database.DB = prevDB })

	r := newTestEngine(t)

	t.Run("健康检查", func(t *testing.T) {
		w, body := serve(r, http.MethodGet, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "down", body["database"])
	})

	t.Run("未知路由", func(t *testing.T) {
		w, body := serve(r, http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Not found - /api/nope", body["message"])
	})

	t.Run("需要登录", func(t *testing.T) {
		for _, path := range []string{"/api/expenses", "/api/analytics/summary", "/api/admin/stats", "/api/auth/me"} {
			w, body := serve(r, http.MethodGet, path)
			require.Equal(t, http.StatusUnauthorized, w.Code, path)
			assert.Equal(t, "Not authorized, no token", body["message"], path)
		}
	})

	t.Run("CORS 预检", func(t *testing.T) {
		w, _ := serve(r, http.MethodOptions, "/api/expenses")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})
}
