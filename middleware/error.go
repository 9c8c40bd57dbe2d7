package middleware

import (
	"fmt"
	"net/http"

	"fintrack/apperror"
	"fintrack/config"
	"fintrack/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 统一错误响应。处理器通过 c.Error 上报错误，这里负责翻译和输出
func ErrorHandler() gin.HandlerFunc {
	log := logger.New("errors")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				appErr := apperror.Internal(fmt.Errorf("panic: %v", r))
				_ = c.Error(appErr)
				respond(c, log, appErr)
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		respond(c, log, apperror.From(c.Errors.Last().Err))
	}
}

func respond(c *gin.Context, log *logger.Logger, appErr *apperror.Error) {
	if appErr.Status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", appErr.Error(),
		)
	}

	body := gin.H{
		"success": false,
		"message": appErr.Message,
	}
	if config.IsDevelopment() && !appErr.Operational {
		if appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		if len(appErr.Stack) > 0 {
			body["stack"] = string(appErr.Stack)
		}
	}
	c.JSON(appErr.Status, body)
}

// NoRoute 未匹配路由
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": fmt.Sprintf("Not found - %s", c.Request.URL.Path),
		})
	}
}
