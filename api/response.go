package api

import (
	"net/http"

	"fintrack/apperror"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination 计算分页信息
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created 201 响应
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Paginated 分页列表响应
func Paginated(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: &p})
}

// Fail 交给 ErrorHandler 统一输出
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// Invalid 校验失败，err 的文本直接作为提示
func Invalid(c *gin.Context, err error) {
	Fail(c, apperror.Wrap(http.StatusBadRequest, err.Error(), err))
}

// bindJSON 解析请求体，失败时上报 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		appErr := apperror.From(err)
		if appErr.Status >= http.StatusInternalServerError {
			appErr = apperror.Wrap(http.StatusBadRequest, "Invalid request body", err)
		}
		Fail(c, appErr)
		return false
	}
	return true
}
