package api

import (
	"time"

	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
)

var incomeSortColumns = map[string]string{
	"date":      "date",
	"amount":    "amount",
	"source":    "source",
	"createdAt": "created_at",
}

// IncomeHandler 收入记录处理器
type IncomeHandler struct{}

// NewIncomeHandler 创建收入记录处理器
func NewIncomeHandler() *IncomeHandler {
	return &IncomeHandler{}
}

// CreateIncomeRequest 创建收入记录请求
type CreateIncomeRequest struct {
	Amount             float64 `json:"amount" example:"85000"`
	Source             string  `json:"source" binding:"required" example:"Salary"`
	Date               string  `json:"date" binding:"required" example:"2025-03-01"`
	Description        string  `json:"description"`
	IsRecurring        bool    `json:"isRecurring"`
	RecurringFrequency string  `json:"recurringFrequency" example:"monthly"`
}

func (h *IncomeHandler) load(c *gin.Context, denied string) (*models.Income, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return nil, false
	}
	var income models.Income
	if err := database.DB.WithContext(c.Request.Context()).First(&income, id).Error; err != nil {
		Fail(c, notFoundOr(err, "Income not found"))
		return nil, false
	}
	if !canAccess(c, income.UserID, denied) {
		return nil, false
	}
	return &income, true
}

// List 获取收入记录列表
// @Summary 获取收入记录列表
// @Tags 收入记录
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量，最大 100" default(10)
// @Param sortBy query string false "排序字段 date|amount|source|createdAt" default(date)
// @Param sortOrder query string false "asc|desc" default(desc)
// @Param startDate query string false "开始日期"
// @Param endDate query string false "结束日期"
// @Param search query string false "来源或描述关键字"
// @Success 200 {object} Response{pagination=Pagination} "获取成功"
// @Router /api/incomes [get]
func (h *IncomeHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, limit := parsePage(c, defaultPageLimit)

	query := database.DB.WithContext(c.Request.Context()).
		Model(&models.Income{}).Where("user_id = ?", userID)

	if s := c.Query("startDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			Fail(c, err)
			return
		}
		query = query.Where("date >= ?", t)
	}
	if s := c.Query("endDate"); s != "" {
		t, err := parseEndDate(s)
		if err != nil {
			Fail(c, err)
			return
		}
		query = query.Where("date <= ?", t)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where("(source LIKE ? OR description LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Fail(c, err)
		return
	}

	var incomes []models.Income
	if err := query.Order(orderClause(c, incomeSortColumns, "date")).
		Offset(offset(page, limit)).Limit(limit).
		Find(&incomes).Error; err != nil {
		Fail(c, err)
		return
	}

	Paginated(c, gin.H{"incomes": incomes}, NewPagination(page, limit, total))
}

// Get 获取单条收入记录
// @Summary 获取单条收入记录
// @Tags 收入记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入记录ID"
// @Success 200 {object} Response{data=models.Income} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/incomes/{id} [get]
func (h *IncomeHandler) Get(c *gin.Context) {
	income, ok := h.load(c, "You can only access your own income records")
	if !ok {
		return
	}
	Success(c, gin.H{"income": income})
}

// Create 创建收入记录
// @Summary 创建收入记录
// @Tags 收入记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateIncomeRequest true "收入记录信息"
// @Success 201 {object} Response{data=models.Income} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/incomes [post]
func (h *IncomeHandler) Create(c *gin.Context) {
	var req CreateIncomeRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		Fail(c, err)
		return
	}

	income := models.Income{
		UserID:             middleware.GetCurrentUserID(c),
		Amount:             req.Amount,
		Source:             req.Source,
		Date:               date,
		Description:        req.Description,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
	}
	if err := income.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Create(&income).Error; err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Income created successfully", gin.H{"income": income})
}

// Update 更新收入记录
// @Summary 更新收入记录
// @Tags 收入记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入记录ID"
// @Param request body models.IncomeUpdate true "待修改字段"
// @Success 200 {object} Response{data=models.Income} "更新成功"
// @Failure 403 {object} Response "无权修改"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/incomes/{id} [put]
func (h *IncomeHandler) Update(c *gin.Context) {
	income, ok := h.load(c, "You can only update your own income records")
	if !ok {
		return
	}

	var req models.IncomeUpdate
	if !bindJSON(c, &req) {
		return
	}
	var date *time.Time
	if req.Date != nil {
		t, err := parseDate(*req.Date)
		if err != nil {
			Fail(c, err)
			return
		}
		date = &t
	}

	req.Apply(income, date)
	if err := income.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Save(income).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Income updated successfully", gin.H{"income": income})
}

// Delete 删除收入记录
// @Summary 删除收入记录
// @Tags 收入记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "无权删除"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/incomes/{id} [delete]
func (h *IncomeHandler) Delete(c *gin.Context) {
	income, ok := h.load(c, "You can only delete your own income records")
	if !ok {
		return
	}
	if err := database.DB.WithContext(c.Request.Context()).Delete(income).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Income deleted successfully", nil)
}
