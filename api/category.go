package api

import (
	"strings"

	"fintrack/apperror"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别处理器
type CategoryHandler struct{}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CategoryRequest 创建类别请求
type CategoryRequest struct {
	Name  string `json:"name" binding:"required" example:"Pets"`
	Color string `json:"color" example:"#22C55E"`
	Icon  string `json:"icon" example:"paw"`
}

func (h *CategoryHandler) load(c *gin.Context) (*models.Category, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		Fail(c, err)
		return nil, false
	}
	var cat models.Category
	if err := database.DB.WithContext(c.Request.Context()).First(&cat, id).Error; err != nil {
		Fail(c, notFoundOr(err, "Category not found"))
		return nil, false
	}
	return &cat, true
}

// nameTaken 同一用户下名称是否已存在，excludeID 为 0 表示不排除
func nameTaken(c *gin.Context, ownerID uint, name string, excludeID uint) (bool, error) {
	q := database.DB.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("user_id = ? AND name = ?", ownerID, strings.TrimSpace(name))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// List 获取类别列表
// @Summary 获取类别列表
// @Description 默认类别在前，其余按名称排序
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var categories []models.Category
	if err := database.DB.WithContext(c.Request.Context()).
		Where("is_default = ? OR user_id = ?", true, userID).
		Order("is_default DESC, name ASC").
		Find(&categories).Error; err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"categories": categories})
}

// Get 获取单个类别
// @Summary 获取单个类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response{data=models.Category} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	cat, ok := h.load(c)
	if !ok {
		return
	}
	if !cat.IsDefault {
		owner := uint(0)
		if cat.UserID != nil {
			owner = *cat.UserID
		}
		if !canAccess(c, owner, "You can only access your own categories") {
			return
		}
	}
	Success(c, gin.H{"category": cat})
}

// Create 创建自定义类别
// @Summary 创建自定义类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "类别信息"
// @Success 201 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "名称重复"
// @Router /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := models.NewCategory(userID, req.Name, req.Color, req.Icon)
	if err != nil {
		Invalid(c, err)
		return
	}

	taken, err := nameTaken(c, userID, cat.Name, 0)
	if err != nil {
		Fail(c, err)
		return
	}
	if taken {
		Fail(c, apperror.Conflict("Category with this name already exists"))
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Create(cat).Error; err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Category created successfully", gin.H{"category": cat})
}

// Update 修改自定义类别，默认类别只读
// @Summary 修改自定义类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body models.CategoryUpdate true "待修改字段"
// @Success 200 {object} Response{data=models.Category} "修改成功"
// @Failure 403 {object} Response "默认类别或无权修改"
// @Failure 409 {object} Response "名称重复"
// @Router /api/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	cat, ok := h.load(c)
	if !ok {
		return
	}
	if cat.IsDefault || cat.UserID == nil {
		Fail(c, apperror.Forbidden("Default categories cannot be modified"))
		return
	}
	if !canAccess(c, *cat.UserID, "You can only update your own categories") {
		return
	}

	var req models.CategoryUpdate
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		Invalid(c, err)
		return
	}

	if req.Name != nil && !strings.EqualFold(strings.TrimSpace(*req.Name), cat.Name) {
		taken, err := nameTaken(c, *cat.UserID, *req.Name, cat.ID)
		if err != nil {
			Fail(c, err)
			return
		}
		if taken {
			Fail(c, apperror.Conflict("Category with this name already exists"))
			return
		}
	}

	req.Apply(cat)
	if err := database.DB.WithContext(c.Request.Context()).Save(cat).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Category updated successfully", gin.H{"category": cat})
}

// Delete 删除自定义类别，仍被消费记录引用时返回 409
// @Summary 删除自定义类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "默认类别或无权删除"
// @Failure 409 {object} Response "类别仍在使用"
// @Router /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	cat, ok := h.load(c)
	if !ok {
		return
	}
	if cat.IsDefault || cat.UserID == nil {
		Fail(c, apperror.Forbidden("Default categories cannot be deleted"))
		return
	}
	if !canAccess(c, *cat.UserID, "You can only delete your own categories") {
		return
	}

	var used int64
	if err := database.DB.WithContext(c.Request.Context()).Model(&models.Expense{}).
		Where("category_id = ?", cat.ID).Count(&used).Error; err != nil {
		Fail(c, err)
		return
	}
	if used > 0 {
		Fail(c, apperror.Conflict("Category is used by existing expenses"))
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Delete(cat).Error; err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Category deleted successfully", nil)
}
