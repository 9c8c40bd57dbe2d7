// Package apperror 定义统一的错误分类，并把底层错误翻译成对外的 HTTP 错误。
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL 错误码
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlRowIsReferenced2 = 1217
)

// Error 带状态码的业务错误。Operational 为 false 表示非预期错误
type Error struct {
	Status      int
	Message     string
	Operational bool
	Err         error
	Stack       []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(status int, message string) *Error {
	return &Error{Status: status, Message: message, Operational: true}
}

func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return newError(http.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return newError(http.StatusConflict, message)
}

func Unprocessable(message string) *Error {
	return newError(http.StatusUnprocessableEntity, message)
}

func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, message)
}

// Internal 非预期错误，记录调用栈，仅开发模式对外展示
func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Err:     err,
		Stack:   debug.Stack(),
	}
}

// Wrap 保留原始错误的业务错误
func Wrap(status int, message string, err error) *Error {
	e := newError(status, message)
	e.Err = err
	return e
}

// From 把任意错误翻译成 *Error
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Wrap(http.StatusBadRequest, validationMessage(validationErrs), err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Wrap(http.StatusBadRequest, "Invalid request body", err)
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return Wrap(http.StatusBadRequest, "Invalid ID format", err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDuplicateEntry:
			return Wrap(http.StatusConflict, duplicateMessage(mysqlErr.Message), err)
		case mysqlRowIsReferenced, mysqlRowIsReferenced2:
			return Wrap(http.StatusConflict, "Resource is still referenced by other records", err)
		}
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(http.StatusConflict, "Duplicate value", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(http.StatusNotFound, "Resource not found", err)
	}

	return Internal(err)
}

// duplicateMessage 根据唯一索引名给出可读的冲突信息
func duplicateMessage(raw string) string {
	switch {
	case strings.Contains(raw, "idx_budget_period"):
		return "Budget already exists for this month"
	case strings.Contains(raw, "idx_category_owner_name"):
		return "Category with this name already exists"
	case strings.Contains(raw, "email"):
		return "Email already registered"
	default:
		return "Duplicate value"
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, "Invalid email address")
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
