package api

import (
	"time"

	"fintrack/database"
	"fintrack/logger"
	"fintrack/middleware"
	"fintrack/models"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

// expenseSortColumns 列表允许的排序字段
var expenseSortColumns = map[string]string{
	"date":        "date",
	"amount":      "amount",
	"description": "description",
	"createdAt":   "created_at",
}

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	alerter *service.BudgetAlerter
	uploads *Uploader
	log     *logger.Logger
}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler(alerter *service.BudgetAlerter, uploads *Uploader) *ExpenseHandler {
	return &ExpenseHandler{alerter: alerter, uploads: uploads, log: logger.New("expense")}
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Amount             float64 `json:"amount" example:"249.50"`
	Category           uint    `json:"category" binding:"required" example:"1"`
	Date               string  `json:"date" binding:"required" example:"2025-03-14"`
	Description        string  `json:"description" binding:"required" example:"Groceries"`
	PaymentMethod      string  `json:"paymentMethod" example:"upi"`
	IsRecurring        bool    `json:"isRecurring"`
	RecurringFrequency string  `json:"recurringFrequency" example:"monthly"`
	Notes              string  `json:"notes"`
}

func (h *ExpenseHandler) load(c *gin.Context, preload bool, denied string) (*models.Expense, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return nil, false
	}

	q := database.DB.WithContext(c.Request.Context())
	if preload {
		q = q.Preload("Category")
	}
	var expense models.Expense
	if err := q.First(&expense, id).Error; err != nil {
		Fail(c, notFoundOr(err, "Expense not found"))
		return nil, false
	}
	if !canAccess(c, expense.UserID, denied) {
		return nil, false
	}
	return &expense, true
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 当前用户的消费记录，支持分页、排序和按日期、类别、金额、关键字筛选
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量，最大 100" default(10)
// @Param sortBy query string false "排序字段 date|amount|description|createdAt" default(date)
// @Param sortOrder query string false "asc|desc" default(desc)
// @Param startDate query string false "开始日期 (2025-01-01)"
// @Param endDate query string false "结束日期 (2025-01-31)"
// @Param category query int false "类别ID"
// @Param minAmount query number false "最小金额"
// @Param maxAmount query number false "最大金额"
// @Param search query string false "描述或备注关键字"
// @Success 200 {object} Response{pagination=Pagination} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, limit := parsePage(c, defaultPageLimit)

	query := database.DB.WithContext(c.Request.Context()).
		Model(&models.Expense{}).Where("user_id = ?", userID)

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
	if c.Query("category") != "" {
		categoryID, err := queryInt(c, "category", 0)
		if err != nil {
			Fail(c, err)
			return
		}
		query = query.Where("category_id = ?", categoryID)
	}
	minAmount, err := queryFloat(c, "minAmount")
	if err != nil {
		Fail(c, err)
		return
	}
	if minAmount != nil {
		query = query.Where("amount >= ?", *minAmount)
	}
	maxAmount, err := queryFloat(c, "maxAmount")
	if err != nil {
		Fail(c, err)
		return
	}
	if maxAmount != nil {
		query = query.Where("amount <= ?", *maxAmount)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where("(description LIKE ? OR notes LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		Fail(c, err)
		return
	}

	var expenses []models.Expense
	if err := query.Preload("Category").
		Order(orderClause(c, expenseSortColumns, "date")).
		Offset(offset(page, limit)).Limit(limit).
		Find(&expenses).Error; err != nil {
		Fail(c, err)
		return
	}

	Paginated(c, gin.H{"expenses": expenses}, NewPagination(page, limit, total))
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	expense, ok := h.load(c, true, "You can only access your own expenses")
	if !ok {
		return
	}
	Success(c, gin.H{"expense": expense})
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 类别必须是默认类别或自己的类别；写入后检查当月预算提醒
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "消费记录信息"
// @Success 201 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "类别不可用"
// @Router /api/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		Fail(c, err)
		return
	}

	expense := models.Expense{
		UserID:             userID,
		Amount:             req.Amount,
		CategoryID:         req.Category,
		Date:               date,
		Description:        req.Description,
		PaymentMethod:      req.PaymentMethod,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		Notes:              req.Notes,
	}
	if err := expense.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	cat, err := resolveCategory(c, req.Category, userID)
	if err != nil {
		Fail(c, err)
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Create(&expense).Error; err != nil {
		Fail(c, err)
		return
	}
	expense.Category = cat

	h.alerter.Check(c.Request.Context(), userID, expense.Date, expense.Amount)
	Created(c, "Expense created successfully", gin.H{"expense": expense})
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 只修改请求中出现的字段
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body models.ExpenseUpdate true "待修改字段"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "无权修改"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	expense, ok := h.load(c, true, "You can only update your own expenses")
	if !ok {
		return
	}

	var req models.ExpenseUpdate
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

	cat := expense.Category
	if req.CategoryID != nil {
		resolved, err := resolveCategory(c, *req.CategoryID, expense.UserID)
		if err != nil {
			Fail(c, err)
			return
		}
		cat = resolved
	}

	before := *expense
	req.Apply(expense, date)
	if err := expense.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	expense.Category = nil
	if err := database.DB.WithContext(c.Request.Context()).
		Omit(clause.Associations).Save(expense).Error; err != nil {
		Fail(c, err)
		return
	}
	expense.Category = cat

	h.alerter.Check(c.Request.Context(), expense.UserID, expense.Date, spendingIncrease(before, *expense))
	SuccessWithMessage(c, "Expense updated successfully", gin.H{"expense": expense})
}

// spendingIncrease 更新对新日期所在月份消费的增量
func spendingIncrease(before, after models.Expense) float64 {
	if before.Date.Year() == after.Date.Year() && before.Date.Month() == after.Date.Month() {
		return after.Amount - before.Amount
	}
	return after.Amount
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "无权删除"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	expense, ok := h.load(c, false, "You can only delete your own expenses")
	if !ok {
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Delete(expense).Error; err != nil {
		Fail(c, err)
		return
	}
	if expense.ReceiptURL != "" {
		if err := h.uploads.Remove(expense.ReceiptURL); err != nil {
			h.log.WarnContext(c.Request.Context(), "remove receipt failed", "path", expense.ReceiptURL, "error", err)
		}
	}
	SuccessWithMessage(c, "Expense deleted successfully", nil)
}

// UploadReceipt 上传消费凭证
// @Summary 上传消费凭证
// @Tags 消费记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param receipt formData file true "凭证图片或 PDF"
// @Success 200 {object} Response "上传成功"
// @Failure 400 {object} Response "文件缺失或类型不支持"
// @Router /api/expenses/{id}/receipt [post]
func (h *ExpenseHandler) UploadReceipt(c *gin.Context) {
	expense, ok := h.load(c, false, "You can only update your own expenses")
	if !ok {
		return
	}

	url, err := h.uploads.Save(c, "receipt", "receipts", receiptTypes)
	if err != nil {
		Fail(c, err)
		return
	}

	old := expense.ReceiptURL
	if err := database.DB.WithContext(c.Request.Context()).
		Model(expense).Update("receipt_url", url).Error; err != nil {
		_ = h.uploads.Remove(url)
		Fail(c, err)
		return
	}
	if old != "" {
		if err := h.uploads.Remove(old); err != nil {
			h.log.WarnContext(c.Request.Context(), "remove old receipt failed", "path", old, "error", err)
		}
	}
	SuccessWithMessage(c, "Receipt uploaded successfully", gin.H{"receiptUrl": url})
}
