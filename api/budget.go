package api

import (
	"errors"
	"time"

	"fintrack/apperror"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetHandler 预算处理器
type BudgetHandler struct{}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// CreateBudgetRequest 创建预算请求
type CreateBudgetRequest struct {
	Month          int                         `json:"month" binding:"required" example:"3"`
	Year           int                         `json:"year" binding:"required" example:"2025"`
	Limit          *float64                    `json:"limit" example:"40000"`
	CategoryLimits []models.CategoryLimitInput `json:"categoryLimits"`
}

func withLimits(db *gorm.DB) *gorm.DB {
	return db.Preload("CategoryLimits").Preload("CategoryLimits.Category")
}

func (h *BudgetHandler) load(c *gin.Context, denied string) (*models.Budget, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return nil, false
	}
	var budget models.Budget
	if err := withLimits(database.DB.WithContext(c.Request.Context())).First(&budget, id).Error; err != nil {
		Fail(c, notFoundOr(err, "Budget not found"))
		return nil, false
	}
	if !canAccess(c, budget.UserID, denied) {
		return nil, false
	}
	return &budget, true
}

// checkLimitCategories 类别上限引用的类别必须可用，返回按 ID 索引的类别
func checkLimitCategories(c *gin.Context, inputs []models.CategoryLimitInput, ownerID uint) (map[uint]*models.Category, error) {
	cats := make(map[uint]*models.Category, len(inputs))
	for _, in := range inputs {
		if _, seen := cats[in.Category]; seen {
			return nil, apperror.BadRequest("Duplicate category in category limits")
		}
		cat, err := resolveCategory(c, in.Category, ownerID)
		if err != nil {
			return nil, err
		}
		cats[in.Category] = cat
	}
	return cats, nil
}

func attachCategories(limits []models.BudgetCategoryLimit, cats map[uint]*models.Category) {
	for i := range limits {
		limits[i].Category = cats[limits[i].CategoryID]
	}
}

// List 获取全部预算
// @Summary 获取全部预算
// @Description 按年月倒序
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Budget} "获取成功"
// @Router /api/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	var budgets []models.Budget
	if err := withLimits(database.DB.WithContext(c.Request.Context())).
		Where("user_id = ?", middleware.GetCurrentUserID(c)).
		Order("year DESC, month DESC").
		Find(&budgets).Error; err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"budgets": budgets})
}

// Current 当月预算，未设置时返回 null
// @Summary 当月预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Budget} "获取成功"
// @Router /api/budgets/current [get]
func (h *BudgetHandler) Current(c *gin.Context) {
	now := time.Now()
	var budget models.Budget
	err := withLimits(database.DB.WithContext(c.Request.Context())).
		Where("user_id = ? AND year = ? AND month = ?", middleware.GetCurrentUserID(c), now.Year(), int(now.Month())).
		First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Success(c, gin.H{"budget": nil})
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"budget": budget})
}

// GetByPeriod 指定年月的预算
// @Summary 指定年月的预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param year path int true "年份"
// @Param month path int true "月份 1-12"
// @Success 200 {object} Response{data=models.Budget} "获取成功"
// @Failure 404 {object} Response "该月份未设置预算"
// @Router /api/budgets/{year}/{month} [get]
func (h *BudgetHandler) GetByPeriod(c *gin.Context) {
	year, errY := parseID(c, "year")
	month, errM := parseID(c, "month")
	if errY != nil || errM != nil {
		Fail(c, apperror.BadRequest("Invalid year or month"))
		return
	}
	if err := models.ValidatePeriod(int(month), int(year)); err != nil {
		Invalid(c, err)
		return
	}

	var budget models.Budget
	if err := withLimits(database.DB.WithContext(c.Request.Context())).
		Where("user_id = ? AND year = ? AND month = ?", middleware.GetCurrentUserID(c), year, month).
		First(&budget).Error; err != nil {
		Fail(c, notFoundOr(err, "Budget not found for this period"))
		return
	}
	Success(c, gin.H{"budget": budget})
}

// Create 创建预算，同一月份只能有一个
// @Summary 创建预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBudgetRequest true "预算信息"
// @Success 201 {object} Response{data=models.Budget} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "该月份已有预算"
// @Router /api/budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := models.ValidatePeriod(req.Month, req.Year); err != nil {
		Invalid(c, err)
		return
	}
	// 0 是合法额度，缺省不是
	if req.Limit == nil {
		Fail(c, apperror.BadRequest("Budget limit is required"))
		return
	}
	if err := models.ValidateLimits(*req.Limit, req.CategoryLimits); err != nil {
		Invalid(c, err)
		return
	}
	cats, err := checkLimitCategories(c, req.CategoryLimits, userID)
	if err != nil {
		Fail(c, err)
		return
	}

	var count int64
	if err := database.DB.WithContext(c.Request.Context()).Model(&models.Budget{}).
		Where("user_id = ? AND month = ? AND year = ?", userID, req.Month, req.Year).
		Count(&count).Error; err != nil {
		Fail(c, err)
		return
	}
	if count > 0 {
		Fail(c, apperror.Conflict("Budget already exists for this period. Use PUT to update."))
		return
	}

	budget := models.Budget{
		UserID:         userID,
		Month:          req.Month,
		Year:           req.Year,
		Limit:          *req.Limit,
		CategoryLimits: models.BuildCategoryLimits(req.CategoryLimits),
	}
	// 并发创建由 idx_budget_period 兜底，翻译为 409
	if err := database.DB.WithContext(c.Request.Context()).Create(&budget).Error; err != nil {
		Fail(c, err)
		return
	}
	attachCategories(budget.CategoryLimits, cats)

	Created(c, "Budget created successfully", gin.H{"budget": budget})
}

// Update 修改预算额度或类别上限
// @Summary 修改预算
// @Description categoryLimits 出现时整体替换
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Param request body models.BudgetUpdate true "待修改字段"
// @Success 200 {object} Response{data=models.Budget} "修改成功"
// @Failure 403 {object} Response "无权修改"
// @Failure 404 {object} Response "预算不存在"
// @Router /api/budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	budget, ok := h.load(c, "You can only update your own budgets")
	if !ok {
		return
	}

	var req models.BudgetUpdate
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	var cats map[uint]*models.Category
	if req.CategoryLimits != nil {
		var err error
		if cats, err = checkLimitCategories(c, *req.CategoryLimits, budget.UserID); err != nil {
			Fail(c, err)
			return
		}
	}

	if req.Limit != nil {
		budget.Limit = *req.Limit
	}

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(budget).Error; err != nil {
			return err
		}
		if req.CategoryLimits == nil {
			return nil
		}
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetCategoryLimit{}).Error; err != nil {
			return err
		}
		limits := models.BuildCategoryLimits(*req.CategoryLimits)
		for i := range limits {
			limits[i].BudgetID = budget.ID
		}
		if len(limits) > 0 {
			if err := tx.Create(&limits).Error; err != nil {
				return err
			}
		}
		attachCategories(limits, cats)
		budget.CategoryLimits = limits
		return nil
	})
	if err != nil {
		Fail(c, err)
		return
	}

	SuccessWithMessage(c, "Budget updated successfully", gin.H{"budget": budget})
}

// Delete 删除预算
// @Summary 删除预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "无权删除"
// @Failure 404 {object} Response "预算不存在"
// @Router /api/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	budget, ok := h.load(c, "You can only delete your own budgets")
	if !ok {
		return
	}

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetCategoryLimit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Budget{}, budget.ID).Error
	})
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Budget deleted successfully", nil)
}
