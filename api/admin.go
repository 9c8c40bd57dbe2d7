package api

import (
	"context"
	"time"

	"fintrack/apperror"
	"fintrack/database"
	"fintrack/logger"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// adminPageLimit 后台用户列表默认每页数量
const adminPageLimit = 20

// AdminHandler 后台管理处理器，路由组需挂 RequireAdmin
type AdminHandler struct {
	now func() time.Time
	log *logger.Logger
}

// NewAdminHandler 创建后台管理处理器
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{now: time.Now, log: logger.New("admin")}
}

// UserStats 单个用户的记录统计
type UserStats struct {
	ExpenseCount  int64   `json:"expenseCount"`
	IncomeCount   int64   `json:"incomeCount"`
	TotalExpenses float64 `json:"totalExpenses"`
}

// AmountStats 记录数与金额合计
type AmountStats struct {
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// UserCounts 用户数量统计
type UserCounts struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Blocked      int64 `json:"blocked"`
	NewThisMonth int64 `json:"newThisMonth"`
}

// DailyRegistrations 某天的注册数
type DailyRegistrations struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// PlatformStats 平台统计
type PlatformStats struct {
	Users               UserCounts           `json:"users"`
	Expenses            AmountStats          `json:"expenses"`
	Income              AmountStats          `json:"income"`
	RecentRegistrations []DailyRegistrations `json:"recentRegistrations"`
}

func amountStats(ctx context.Context, model interface{}, scope func(*gorm.DB) *gorm.DB) (AmountStats, error) {
	var out AmountStats
	err := database.DB.WithContext(ctx).Model(model).Scopes(scope).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Scan(&out).Error
	return out, err
}

func allRows(db *gorm.DB) *gorm.DB { return db }

func ownedBy(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// ListUsers 用户列表
// @Summary 用户列表
// @Description 按注册时间倒序，search 匹配姓名或邮箱
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量，最大 100" default(20)
// @Param search query string false "姓名或邮箱关键字"
// @Success 200 {object} Response{pagination=Pagination} "获取成功"
// @Failure 403 {object} Response "需要管理员权限"
// @Router /api/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePage(c, adminPageLimit)

	query := database.DB.WithContext(c.Request.Context()).Model(&models.User{})
	if search := c.Query("search"); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where("(name LIKE ? OR email LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Fail(c, err)
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&users).Error; err != nil {
		Fail(c, err)
		return
	}

	profiles := make([]models.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].ToProfile())
	}
	Paginated(c, gin.H{"users": profiles}, NewPagination(page, limit, total))
}

// GetUser 用户详情及记录统计
// @Summary 用户详情
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} Response "获取成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		Fail(c, notFoundOr(err, "User not found"))
		return
	}

	expenses, err := amountStats(ctx, &models.Expense{}, ownedBy(user.ID))
	if err != nil {
		Fail(c, err)
		return
	}
	var incomeCount int64
	if err := database.DB.WithContext(ctx).Model(&models.Income{}).
		Where("user_id = ?", user.ID).Count(&incomeCount).Error; err != nil {
		Fail(c, err)
		return
	}

	Success(c, gin.H{
		"user": user.ToProfile(),
		"stats": UserStats{
			ExpenseCount:  expenses.Count,
			IncomeCount:   incomeCount,
			TotalExpenses: expenses.TotalAmount,
		},
	})
}

// ToggleBlock 封禁或解封用户，封禁时清除其 refresh token
// @Summary 封禁/解封用户
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} Response "操作成功"
// @Failure 400 {object} Response "不能封禁自己"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/admin/users/{id}/block [put]
func (h *AdminHandler) ToggleBlock(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return
	}
	// 不能封禁自己，避免管理员把自己锁在外面
	if id == middleware.GetCurrentUserID(c) {
		Fail(c, apperror.BadRequest("You cannot block your own account"))
		return
	}

	var user models.User
	if err := database.DB.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		Fail(c, notFoundOr(err, "User not found"))
		return
	}

	updates := map[string]interface{}{"is_blocked": !user.IsBlocked}
	if !user.IsBlocked {
		updates["refresh_token"] = nil
	}
	if err := database.DB.WithContext(c.Request.Context()).Model(&user).Updates(updates).Error; err != nil {
		Fail(c, err)
		return
	}

	message := "User unblocked successfully"
	if user.IsBlocked {
		message = "User blocked successfully"
	}
	h.log.InfoContext(c.Request.Context(), "user block toggled",
		"user_id", user.ID, "blocked", user.IsBlocked, "by", middleware.GetCurrentUserID(c))
	SuccessWithMessage(c, message, gin.H{"isBlocked": user.IsBlocked})
}

// Stats 平台统计
// @Summary 平台统计
// @Description 用户数、收支记录数与合计、近 7 天注册数
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=PlatformStats} "获取成功"
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	var stats PlatformStats
	users := database.DB.WithContext(ctx).Model(&models.User{})
	if err := users.Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN is_blocked = ? THEN 1 ELSE 0 END), 0) AS active, "+
			"COALESCE(SUM(CASE WHEN is_blocked = ? THEN 1 ELSE 0 END), 0) AS blocked, "+
			"COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS new_this_month",
		false, true, monthStart).
		Scan(&stats.Users).Error; err != nil {
		Fail(c, err)
		return
	}

	var err error
	if stats.Expenses, err = amountStats(ctx, &models.Expense{}, allRows); err != nil {
		Fail(c, err)
		return
	}
	if stats.Income, err = amountStats(ctx, &models.Income{}, allRows); err != nil {
		Fail(c, err)
		return
	}

	stats.RecentRegistrations = []DailyRegistrations{}
	if err := database.DB.WithContext(ctx).Model(&models.User{}).
		Select("DATE_FORMAT(created_at, '%Y-%m-%d') AS date, COUNT(*) AS count").
		Where("created_at >= ?", weekAgo).
		Group("date").
		Order("date ASC").
		Scan(&stats.RecentRegistrations).Error; err != nil {
		Fail(c, err)
		return
	}

	Success(c, stats)
}
