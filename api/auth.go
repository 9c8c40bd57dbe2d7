package api

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"fintrack/apperror"
	"fintrack/config"
	"fintrack/database"
	"fintrack/logger"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// forgotPasswordMessage 无论邮箱是否存在都返回同样的提示
const forgotPasswordMessage = "If your email is registered, you will receive a password reset link"

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg          *config.Config
	tokens       *service.TokenService
	emailService *service.EmailService
	log          *logger.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, tokens *service.TokenService) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		tokens:       tokens,
		emailService: service.NewEmailService(&cfg.Email),
		log:          logger.New("auth"),
	}
}

// SignupRequest 注册请求
type SignupRequest struct {
	Name     string `json:"name" binding:"required" example:"Jane Doe"`
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ForgotPasswordRequest 找回密码请求
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email" example:"jane@example.com"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required" example:"NewSecret123"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	User         models.Profile `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// startSession 签发令牌并保存 refresh token 摘要，旧会话随之失效
func (h *AuthHandler) startSession(c *gin.Context, user *models.User) (service.TokenPair, error) {
	pair, err := h.tokens.IssuePair(service.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return pair, apperror.Internal(err)
	}

	hash := service.HashRefreshToken(pair.RefreshToken)
	if err := database.DB.WithContext(c.Request.Context()).
		Model(user).Update("refresh_token", hash).Error; err != nil {
		return pair, err
	}
	user.RefreshToken = &hash
	return pair, nil
}

// Signup 用户注册
// @Summary 用户注册
// @Description 创建账号并直接登录，返回用户信息和令牌对
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SignupRequest true "注册信息"
// @Success 201 {object} Response{data=AuthResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已注册"
// @Router /api/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := models.NewUser(req.Name, req.Email, req.Password)
	if err != nil {
		Invalid(c, err)
		return
	}

	var count int64
	if err := database.DB.WithContext(c.Request.Context()).
		Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		Fail(c, err)
		return
	}
	if count > 0 {
		Fail(c, apperror.Conflict("Email is already registered"))
		return
	}

	// 并发注册由唯一索引兜底，翻译为 409
	if err := database.DB.WithContext(c.Request.Context()).Create(user).Error; err != nil {
		Fail(c, err)
		return
	}

	pair, err := h.startSession(c, user)
	if err != nil {
		Fail(c, err)
		return
	}

	Created(c, "User registered successfully", AuthResponse{
		User:         user.ToProfile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱密码登录，返回用户信息和令牌对
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=AuthResponse} "登录成功"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 403 {object} Response "账号已被封禁"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	err := database.DB.WithContext(c.Request.Context()).
		Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Fail(c, apperror.Unauthorized("Invalid email or password"))
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}

	if !user.CheckPassword(req.Password) {
		Fail(c, apperror.Unauthorized("Invalid email or password"))
		return
	}
	if user.IsBlocked {
		Fail(c, apperror.Forbidden("Your account has been blocked. Contact support."))
		return
	}

	pair, err := h.startSession(c, &user)
	if err != nil {
		Fail(c, err)
		return
	}

	SuccessWithMessage(c, "Login successful", AuthResponse{
		User:         user.ToProfile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh 刷新令牌
// @Summary 刷新令牌
// @Description 使用 refresh token 换取新的令牌对，旧 refresh token 立即失效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "refresh token"
// @Success 200 {object} Response{data=service.TokenPair} "刷新成功"
// @Failure 401 {object} Response "refresh token 无效"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperror.BadRequest("Refresh token is required"))
		return
	}

	identity, ok := h.tokens.Verify(req.RefreshToken, service.RefreshToken)
	if !ok {
		Fail(c, apperror.Unauthorized("Invalid or expired refresh token"))
		return
	}

	var user models.User
	err := database.DB.WithContext(c.Request.Context()).First(&user, identity.UserID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		Fail(c, err)
		return
	}
	if err != nil || !sameRefreshToken(user.RefreshToken, req.RefreshToken) {
		Fail(c, apperror.Unauthorized("Invalid refresh token"))
		return
	}
	if user.IsBlocked {
		Fail(c, apperror.Forbidden("Your account has been blocked"))
		return
	}

	pair, err := h.startSession(c, &user)
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Tokens refreshed successfully", pair)
}

func sameRefreshToken(stored *string, presented string) bool {
	if stored == nil || *stored == "" {
		return false
	}
	hash := service.HashRefreshToken(presented)
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(hash)) == 1
}

// Logout 退出登录
// @Summary 退出登录
// @Description 清除已保存的 refresh token
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "退出成功"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	if err := database.DB.WithContext(c.Request.Context()).
		Model(&models.User{}).Where("id = ?", userID).
		Update("refresh_token", nil).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Logged out successfully", nil)
}

// ForgotPassword 申请重置密码
// @Summary 申请重置密码
// @Description 生成一小时有效的重置令牌并发送邮件。无论邮箱是否存在都返回相同提示；开发模式下返回令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "邮箱"
// @Success 200 {object} Response "请求已受理"
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	err := database.DB.WithContext(c.Request.Context()).
		Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		SuccessWithMessage(c, forgotPasswordMessage, nil)
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}

	plain, hash, err := service.IssueResetToken()
	if err != nil {
		Fail(c, apperror.Internal(err))
		return
	}
	expires := time.Now().Add(service.ResetTokenTTL)
	if err := database.DB.WithContext(c.Request.Context()).Model(&user).Updates(map[string]interface{}{
		"reset_password_token":   hash,
		"reset_password_expires": expires,
	}).Error; err != nil {
		Fail(c, err)
		return
	}

	resetURL := strings.TrimRight(h.cfg.Server.ClientURL, "/") + "/reset-password?token=" + plain
	if h.emailService.Enabled() {
		if err := h.emailService.SendPasswordResetEmail(user.Email, user.Name, resetURL); err != nil {
			h.log.ErrorContext(c.Request.Context(), "send reset email failed",
				"user_id", user.ID, "error", config.SafeErrorMessage(err, "delivery failed"))
		}
	}

	if config.IsDevelopment() {
		SuccessWithMessage(c, forgotPasswordMessage, gin.H{
			"resetToken": plain,
			"resetUrl":   resetURL,
		})
		return
	}
	SuccessWithMessage(c, forgotPasswordMessage, nil)
}

// ResetPassword 重置密码
// @Summary 重置密码
// @Description 校验重置令牌并设置新密码，同时使现有会话失效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "令牌和新密码"
// @Success 200 {object} Response "重置成功"
// @Failure 400 {object} Response "令牌无效或已过期"
// @Router /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		Invalid(c, err)
		return
	}

	hash := service.HashResetToken(req.Token)
	var user models.User
	err := database.DB.WithContext(c.Request.Context()).
		Where("reset_password_token = ?", hash).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		Fail(c, err)
		return
	}
	if err != nil || !user.ResetTokenValid(hash, time.Now()) {
		Fail(c, apperror.BadRequest("Invalid or expired reset token"))
		return
	}

	if err := user.SetPassword(req.Password); err != nil {
		Invalid(c, err)
		return
	}
	user.ClearResetToken()
	user.ClearSession()
	if err := database.DB.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		Fail(c, err)
		return
	}

	SuccessWithMessage(c, "Password reset successfully. Please login with your new password.", nil)
}

// Me 当前用户
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		Fail(c, apperror.Unauthorized("Not authorized"))
		return
	}
	Success(c, gin.H{"user": user.ToProfile()})
}
