package middleware

import (
	"errors"
	"strings"

	"fintrack/apperror"
	"fintrack/database"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 上下文键
const (
	ContextUserID      = "userID"
	ContextUserEmail   = "userEmail"
	ContextUserRole    = "userRole"
	ContextCurrentUser = "currentUser"
)

// abort 终止请求并写出错误响应，同时记录到 c.Errors 供日志使用
func abort(c *gin.Context, err *apperror.Error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.Status, gin.H{
		"success": false,
		"message": err.Message,
	})
}

// bearerToken 解析 Authorization: Bearer <token>
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// resolveUser 校验 access token 并加载未被封禁的用户
func resolveUser(c *gin.Context, tokens *service.TokenService) (*models.User, *apperror.Error) {
	token := bearerToken(c)
	if token == "" {
		return nil, apperror.Unauthorized("Not authorized, no token")
	}

	identity, ok := tokens.Verify(token, service.AccessToken)
	if !ok {
		return nil, apperror.Unauthorized("Not authorized, token failed")
	}

	var user models.User
	if err := database.DB.WithContext(c.Request.Context()).First(&user, identity.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, apperror.Internal(err)
	}

	if user.IsBlocked {
		return nil, apperror.Forbidden("Your account has been blocked")
	}
	return &user, nil
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(ContextUserID, user.ID)
	c.Set(ContextUserEmail, user.Email)
	c.Set(ContextUserRole, user.Role)
	c.Set(ContextCurrentUser, user)
}

// Authenticate 校验 access token 并加载当前用户
func Authenticate(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, tokens)
		if err != nil {
			abort(c, err)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth 不拒绝请求，token 有效且用户可用时才写入身份
func OptionalAuth(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := resolveUser(c, tokens); err == nil {
			setUser(c, user)
		}
		c.Next()
	}
}

// RequireAdmin 仅管理员可访问，需在 Authenticate 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			abort(c, apperror.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// GetCurrentUserID 获取当前用户 ID
func GetCurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetCurrentUser 获取当前用户
func GetCurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextCurrentUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// IsAdmin 当前用户是否为管理员
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextUserRole) == models.RoleAdmin
}
