package api

import (
	"net/http"
	"testing"
	"time"

	"fintrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter(userID uint) *gin.Engine {
	router := newTestRouter(userID, models.RoleAdmin)
	h := NewAdminHandler()
	h.now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local) }
	router.GET("/admin/users", h.ListUsers)
	router.GET("/admin/users/:id", h.GetUser)
	router.PUT("/admin/users/:id/block", h.ToggleBlock)
	router.GET("/admin/stats", h.Stats)
	return router
}

func userRow(id uint, blocked bool) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns()).
		AddRow(id, "Sam Lee", "sam@example.com", "hash", "INR", models.RoleUser, blocked, nil, nil, nil)
}

func TestAdminHandler_ListUsers(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRow(2, false))

	w := doRequest(adminRouter(1), http.MethodGet, "/admin/users?search=sam", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	pagination := resp["pagination"].(map[string]interface{})
	assert.Equal(t, float64(20), pagination["limit"])
	assert.Equal(t, float64(3), pagination["totalPages"])

	users := resp["data"].(map[string]interface{})["users"].([]interface{})
	require.Len(t, users, 1)
	user := users[0].(map[string]interface{})
	assert.Equal(t, "sam@example.com", user["email"])
	assert.NotContains(t, user, "password")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_GetUser(t *testing.T) {
	t.Run("返回统计", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRow(2, false))
		mock.ExpectQuery("FROM `expenses`").
			WillReturnRows(sqlmock.NewRows([]string{"count", "total_amount"}).AddRow(4, 1250.5))
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `incomes`").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		w := doRequest(adminRouter(1), http.MethodGet, "/admin/users/2", "")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		stats := dataOf(t, w)["stats"].(map[string]interface{})
		assert.Equal(t, float64(4), stats["expenseCount"])
		assert.Equal(t, float64(2), stats["incomeCount"])
		assert.Equal(t, 1250.5, stats["totalExpenses"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("用户不存在", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows(userColumns()))

		w := doRequest(adminRouter(1), http.MethodGet, "/admin/users/99", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decode(t, w)["message"])
	})
}

func TestAdminHandler_ToggleBlock(t *testing.T) {
	t.Run("不能封禁自己", func(t *testing.T) {
		w := doRequest(adminRouter(1), http.MethodPut, "/admin/users/1/block", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "You cannot block your own account", decode(t, w)["message"])
	})

	t.Run("封禁", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRow(2, false))
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := doRequest(adminRouter(1), http.MethodPut, "/admin/users/2/block", "")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.Equal(t, "User blocked successfully", resp["message"])
		assert.Equal(t, true, resp["data"].(map[string]interface{})["isBlocked"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("解封", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRow(2, true))
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := doRequest(adminRouter(1), http.MethodPut, "/admin/users/2/block", "")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "User unblocked successfully", decode(t, w)["message"])
	})
}

func TestAdminHandler_Stats(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "blocked", "new_this_month"}).AddRow(10, 9, 1, 3))
	mock.ExpectQuery("FROM `expenses`").
		WillReturnRows(sqlmock.NewRows([]string{"count", "total_amount"}).AddRow(120, 45000.75))
	mock.ExpectQuery("FROM `incomes`").
		WillReturnRows(sqlmock.NewRows([]string{"count", "total_amount"}).AddRow(30, 250000))
	mock.ExpectQuery("DATE_FORMAT").
		WillReturnRows(sqlmock.NewRows([]string{"date", "count"}).AddRow("2025-03-12", 2).AddRow("2025-03-13", 1))

	w := doRequest(adminRouter(1), http.MethodGet, "/admin/stats", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := dataOf(t, w)
	users := data["users"].(map[string]interface{})
	assert.Equal(t, float64(10), users["total"])
	assert.Equal(t, float64(1), users["blocked"])
	assert.Equal(t, float64(3), users["newThisMonth"])
	assert.Equal(t, 45000.75, data["expenses"].(map[string]interface{})["totalAmount"])
	assert.Len(t, data["recentRegistrations"], 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
