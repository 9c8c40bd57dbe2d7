package api

import (
	"fintrack/apperror"
	"fintrack/database"
	"fintrack/logger"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
)

// UserHandler 个人资料处理器
type UserHandler struct {
	uploads *Uploader
	log     *logger.Logger
}

// NewUserHandler 创建个人资料处理器
func NewUserHandler(uploads *Uploader) *UserHandler {
	return &UserHandler{uploads: uploads, log: logger.New("user")}
}

// UpdateEmailRequest 修改邮箱请求，需要当前密码
type UpdateEmailRequest struct {
	Email    string `json:"email" binding:"required,email" example:"new@example.com"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		Fail(c, apperror.NotFound("User not found"))
		return nil, false
	}
	return user, true
}

// GetProfile 获取个人资料
// @Summary 获取个人资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Router /api/users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	Success(c, gin.H{"user": user.ToProfile()})
}

// UpdateProfile 修改个人资料
// @Summary 修改个人资料
// @Description 可修改姓名、币种、月度预算目标，未提供的字段保持不变
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "待修改字段"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	req.Apply(user)
	if err := database.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Profile updated successfully", gin.H{"user": user.ToProfile()})
}

// UpdateEmail 修改邮箱
// @Summary 修改邮箱
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateEmailRequest true "新邮箱和当前密码"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "密码错误"
// @Failure 409 {object} Response "邮箱已被使用"
// @Router /api/users/email [put]
func (h *UserHandler) UpdateEmail(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if !user.CheckPassword(req.Password) {
		Fail(c, apperror.BadRequest("Current password is incorrect"))
		return
	}

	email := models.NormalizeEmail(req.Email)
	var count int64
	if err := database.DB.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
		Fail(c, err)
		return
	}
	if count > 0 {
		Fail(c, apperror.Conflict("Email is already in use"))
		return
	}

	user.Email = email
	if err := database.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Email updated successfully", gin.H{"email": user.Email})
}

// ChangePassword 修改密码，成功后需重新登录
// @Summary 修改密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "当前密码和新密码"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "当前密码错误或新密码强度不足"
// @Router /api/users/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if !user.CheckPassword(req.CurrentPassword) {
		Fail(c, apperror.BadRequest("Current password is incorrect"))
		return
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		Invalid(c, err)
		return
	}
	user.ClearSession()

	if err := database.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Password changed successfully. Please login again.", nil)
}

// UploadProfilePicture 上传头像
// @Summary 上传头像
// @Tags 用户
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param profilePicture formData file true "头像图片"
// @Success 200 {object} Response "上传成功"
// @Failure 400 {object} Response "文件缺失或类型不支持"
// @Router /api/users/profile/picture [post]
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	url, err := h.uploads.Save(c, "profilePicture", "avatars", imageTypes)
	if err != nil {
		Fail(c, err)
		return
	}

	old := user.ProfilePicture
	user.ProfilePicture = url
	if err := database.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		_ = h.uploads.Remove(url)
		Fail(c, err)
		return
	}
	if old != "" {
		if err := h.uploads.Remove(old); err != nil {
			h.log.WarnContext(c.Request.Context(), "remove old profile picture failed", "path", old, "error", err)
		}
	}
	SuccessWithMessage(c, "Profile picture uploaded successfully", gin.H{"profilePicture": url})
}

// DeleteProfilePicture 删除头像
// @Summary 删除头像
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "删除成功"
// @Router /api/users/profile/picture [delete]
func (h *UserHandler) DeleteProfilePicture(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	old := user.ProfilePicture
	user.ProfilePicture = ""
	if err := database.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		Fail(c, err)
		return
	}
	if old != "" {
		if err := h.uploads.Remove(old); err != nil {
			h.log.WarnContext(c.Request.Context(), "remove profile picture failed", "path", old, "error", err)
		}
	}
	SuccessWithMessage(c, "Profile picture deleted successfully", nil)
}
