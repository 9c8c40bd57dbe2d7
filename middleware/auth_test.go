package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/config"
	"fintrack/database"
	"fintrack/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return mock
}

func newTestTokens() *service.TokenService {
	return service.NewTokenService(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpire:  15 * time.Minute,
		RefreshExpire: time.Hour,
	})
}

func userRows(id int, role string, blocked bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "is_blocked"}).
		AddRow(id, "Jane Doe", "jane@example.com", role, blocked)
}

func newAuthRouter(tokens *service.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/protected", Authenticate(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, "id:%d", GetCurrentUserID(c))
	})
	router.GET("/optional", OptionalAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, "id:%d", GetCurrentUserID(c))
	})
	router.GET("/admin", Authenticate(tokens), RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, "admin:%s", GetCurrentUser(c).Email)
	})
	return router
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_RejectsMissingOrMalformedToken(t *testing.T) {
	router := newAuthRouter(newTestTokens())

	w := get(router, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no token")

	assert.Equal(t, http.StatusUnauthorized, get(router, "/protected", "Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/protected", "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/protected", "Bearer not.a.jwt").Code)
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	pair, err := tokens.IssuePair(service.Identity{UserID: 42, Email: "jane@example.com", Role: "user"})
	require.NoError(t, err)

	w := get(router, "/protected", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	mock := setupMockDB(t)
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	pair, err := tokens.IssuePair(service.Identity{UserID: 42, Email: "jane@example.com", Role: "user"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "user", false))

	w := get(router, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id:42", w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	mock := setupMockDB(t)
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	pair, _ := tokens.IssuePair(service.Identity{UserID: 7, Email: "gone@example.com", Role: "user"})
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := get(router, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}

func TestAuthenticate_BlockedUser(t *testing.T) {
	mock := setupMockDB(t)
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	pair, _ := tokens.IssuePair(service.Identity{UserID: 42, Email: "jane@example.com", Role: "user"})
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "user", true))

	w := get(router, "/protected", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "blocked")
}

func TestOptionalAuth(t *testing.T) {
	mock := setupMockDB(t)
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	w := get(router, "/optional", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id:0", w.Body.String())

	w = get(router, "/optional", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id:0", w.Body.String())

	pair, _ := tokens.IssuePair(service.Identity{UserID: 42, Email: "jane@example.com", Role: "user"})
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "user", true))
	w = get(router, "/optional", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id:0", w.Body.String())

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "user", false))
	w = get(router, "/optional", "Bearer "+pair.AccessToken)
	assert.Equal(t, "id:42", w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireAdmin(t *testing.T) {
	mock := setupMockDB(t)
	tokens := newTestTokens()
	router := newAuthRouter(tokens)

	pair, _ := tokens.IssuePair(service.Identity{UserID: 42, Email: "jane@example.com", Role: "user"})
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "user", false))
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", "Bearer "+pair.AccessToken).Code)

	// 角色以数据库为准
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows(42, "admin", false))
	w := get(router, "/admin", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin:jane@example.com", w.Body.String())
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))
	assert.Nil(t, GetCurrentUser(c))
	assert.False(t, IsAdmin(c))

	c.Set(ContextUserID, uint(99))
	c.Set(ContextUserRole, "admin")
	assert.Equal(t, uint(99), GetCurrentUserID(c))
	assert.True(t, IsAdmin(c))
}
