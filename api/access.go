package api

import (
	"errors"

	"fintrack/apperror"
	"fintrack/cache"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// canAccess 记录所有者或管理员可访问，否则上报 403
func canAccess(c *gin.Context, ownerID uint, message string) bool {
	if ownerID == middleware.GetCurrentUserID(c) || middleware.IsAdmin(c) {
		cache.MarkOwner(c, ownerID)
		return true
	}
	Fail(c, apperror.Forbidden(message))
	return false
}

// notFoundOr 记录不存在时给出具体提示
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(message)
	}
	return err
}

// resolveCategory 类别必须存在，并且是默认类别或属于 ownerID
func resolveCategory(c *gin.Context, categoryID, ownerID uint) (*models.Category, error) {
	var cat models.Category
	err := database.DB.WithContext(c.Request.Context()).First(&cat, categoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.BadRequest("Invalid category")
	}
	if err != nil {
		return nil, err
	}
	if !cat.UsableBy(ownerID) {
		return nil, apperror.Forbidden("You can only use your own categories")
	}
	return &cat, nil
}
