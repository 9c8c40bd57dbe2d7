package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Unprocessable("bad"), http.StatusUnprocessableEntity},
		{TooManyRequests("slow"), http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status)
		assert.True(t, tc.err.Operational)
	}

	internal := Internal(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.False(t, internal.Operational)
	assert.NotEmpty(t, internal.Stack)
	assert.Equal(t, "Internal server error", internal.Message)
}

func TestFrom_PassesThroughWrapped(t *testing.T) {
	orig := Forbidden("not yours")
	got := From(fmt.Errorf("handler: %w", orig))
	assert.Same(t, orig, got)
	assert.Nil(t, From(nil))
}

func TestFrom_Translations(t *testing.T) {
	assert.Equal(t, http.StatusConflict, From(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-3-2025' for key 'budgets.idx_budget_period'"}).Status)
	assert.Equal(t, "Budget already exists for this month",
		From(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'budgets.idx_budget_period'"}).Message)
	assert.Equal(t, "Email already registered",
		From(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.idx_users_email'"}).Message)
	assert.Equal(t, http.StatusConflict, From(&mysql.MySQLError{Number: 1451}).Status)
	assert.Equal(t, http.StatusConflict, From(gorm.ErrDuplicatedKey).Status)
	assert.Equal(t, http.StatusNotFound, From(gorm.ErrRecordNotFound).Status)

	_, numErr := strconv.ParseUint("abc", 10, 64)
	idErr := From(numErr)
	assert.Equal(t, http.StatusBadRequest, idErr.Status)
	assert.Equal(t, "Invalid ID format", idErr.Message)

	var v map[string]interface{}
	jsonErr := json.Unmarshal([]byte("{bad"), &v)
	assert.Equal(t, http.StatusBadRequest, From(jsonErr).Status)

	unknown := From(errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, unknown.Status)
	assert.False(t, unknown.Operational)
}

func TestFrom_ValidationErrors(t *testing.T) {
	type req struct {
		Email string  `validate:"required,email"`
		Month int     `validate:"min=1,max=12"`
		Amt   float64 `validate:"gt=0"`
	}
	err := validator.New().Struct(req{Email: "nope", Month: 13})
	require.Error(t, err)

	got := From(err)
	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.Contains(t, got.Message, "Invalid email address")
	assert.Contains(t, got.Message, "Month must be at most 12")
	assert.Contains(t, got.Message, "Amt must be greater than 0")
}
