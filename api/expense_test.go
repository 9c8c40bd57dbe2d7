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

func expenseRouter(userID uint, role string) *gin.Engine {
	router := newTestRouter(userID, role)
	h := NewExpenseHandler(nil, nil)
	router.GET("/expenses", h.List)
	router.POST("/expenses", h.Create)
	router.GET("/expenses/:id", h.Get)
	router.PUT("/expenses/:id", h.Update)
	router.DELETE("/expenses/:id", h.Delete)
	return router
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	router := expenseRouter(1, models.RoleUser)
	w := doRequest(router, http.MethodPost, "/expenses",
		`{"amount":249.5,"category":3,"date":"2025-03-14","description":"Groceries","paymentMethod":"upi"}`)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	expense := dataOf(t, w)["expense"].(map[string]interface{})
	assert.Equal(t, float64(10), expense["id"])
	assert.Equal(t, "upi", expense["paymentMethod"])
	assert.Equal(t, "Food & Dining", expense["category"].(map[string]interface{})["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_DefaultsPaymentMethod(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	w := doRequest(expenseRouter(1, models.RoleUser), http.MethodPost, "/expenses",
		`{"amount":12,"category":3,"date":"2025-03-14","description":"Coffee"}`)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.PaymentCash, dataOf(t, w)["expense"].(map[string]interface{})["paymentMethod"])
}

func TestExpenseHandler_Create_Validation(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	router := expenseRouter(1, models.RoleUser)

	tests := []struct {
		name string
		body string
	}{
		{"金额为 0", `{"amount":0,"category":3,"date":"2025-03-14","description":"Groceries"}`},
		{"日期格式", `{"amount":10,"category":3,"date":"14/03/2025","description":"Groceries"}`},
		{"支付方式", `{"amount":10,"category":3,"date":"2025-03-14","description":"Groceries","paymentMethod":"cheque"}`},
		{"周期缺失", `{"amount":10,"category":3,"date":"2025-03-14","description":"Rent","isRecurring":true}`},
		{"缺少类别", `{"amount":10,"date":"2025-03-14","description":"Groceries"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/expenses", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestExpenseHandler_Create_CategoryRules(t *testing.T) {
	t.Run("别人的类别", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `categories`").
			WillReturnRows(categoryRows().AddRow(8, "Hobbies", "#22C55E", "tag", 2, false))

		w := doRequest(expenseRouter(1, models.RoleUser), http.MethodPost, "/expenses",
			`{"amount":10,"category":8,"date":"2025-03-14","description":"Paint"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "You can only use your own categories", decode(t, w)["message"])
	})

	t.Run("类别不存在", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `categories`").WillReturnRows(categoryRows())

		w := doRequest(expenseRouter(1, models.RoleUser), http.MethodPost, "/expenses",
			`{"amount":10,"category":99,"date":"2025-03-14","description":"Paint"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid category", decode(t, w)["message"])
	})
}

func TestExpenseHandler_List(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `expenses`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("SELECT \\* FROM `expenses`").
		WillReturnRows(expenseRows().AddRow(1, 1, 50, 3, date, "Lunch", "cash", ""))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true))

	w := doRequest(expenseRouter(1, models.RoleUser), http.MethodGet,
		"/expenses?page=2&limit=10&sortBy=amount&sortOrder=asc&search=lun", "")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	pagination := resp["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNextPage"])
	assert.Equal(t, true, pagination["hasPrevPage"])
	expenses := resp["data"].(map[string]interface{})["expenses"].([]interface{})
	assert.Len(t, expenses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_BadFilter(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	w := doRequest(expenseRouter(1, models.RoleUser), http.MethodGet, "/expenses?minAmount=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpenseHandler_Ownership(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)

	t.Run("他人记录返回 403", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `expenses`").
			WillReturnRows(expenseRows().AddRow(7, 2, 50, 3, date, "Lunch", "cash", ""))

		w := doRequest(expenseRouter(1, models.RoleUser), http.MethodDelete, "/expenses/7", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("管理员可以删除", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `expenses`").
			WillReturnRows(expenseRows().AddRow(7, 2, 50, 3, date, "Lunch", "cash", ""))
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `expenses`").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := doRequest(expenseRouter(1, models.RoleAdmin), http.MethodDelete, "/expenses/7", "")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("不存在返回 404", func(t *testing.T) {
		mock, cleanup := setupMockDB(t)
		defer cleanup()
		mock.ExpectQuery("SELECT \\* FROM `expenses`").WillReturnRows(expenseRows())

		w := doRequest(expenseRouter(1, models.RoleUser), http.MethodGet, "/expenses/99", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Expense not found", decode(t, w)["message"])
	})

	t.Run("非法 ID", func(t *testing.T) {
		w := doRequest(expenseRouter(1, models.RoleUser), http.MethodGet, "/expenses/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExpenseHandler_Update(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT \\* FROM `expenses`").
		WillReturnRows(expenseRows().AddRow(7, 1, 50, 3, date, "Lunch", "cash", ""))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(categoryRows().AddRow(3, "Food & Dining", "#EF4444", "utensils", nil, true))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(expenseRouter(1, models.RoleUser), http.MethodPut, "/expenses/7", `{"amount":75.25}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	expense := dataOf(t, w)["expense"].(map[string]interface{})
	assert.Equal(t, 75.25, expense["amount"])
	assert.Equal(t, "Lunch", expense["description"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpendingIncrease(t *testing.T) {
	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	april := time.Date(2025, 4, 2, 0, 0, 0, 0, time.Local)

	assert.Equal(t, 25.0, spendingIncrease(models.Expense{Amount: 50, Date: march}, models.Expense{Amount: 75, Date: march}))
	assert.Equal(t, -20.0, spendingIncrease(models.Expense{Amount: 50, Date: march}, models.Expense{Amount: 30, Date: march}))
	// 换到别的月份，全额计入新月份
	assert.Equal(t, 30.0, spendingIncrease(models.Expense{Amount: 50, Date: march}, models.Expense{Amount: 30, Date: april}))
}
