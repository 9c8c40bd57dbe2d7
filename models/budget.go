package models

import (
	"errors"
	"time"
)

// Budget 月度预算，(user_id, month, year) 唯一
type Budget struct {
	ID             uint                  `json:"id" gorm:"primaryKey"`
	UserID         uint                  `json:"userId" gorm:"not null;uniqueIndex:idx_budget_period,priority:1"`
	Month          int                   `json:"month" gorm:"not null;uniqueIndex:idx_budget_period,priority:2"`
	Year           int                   `json:"year" gorm:"not null;uniqueIndex:idx_budget_period,priority:3"`
	Limit          float64               `json:"limit" gorm:"column:limit_amount;type:decimal(12,2);not null"`
	CategoryLimits []BudgetCategoryLimit `json:"categoryLimits" gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func (Budget) TableName() string {
	return "budgets"
}

// BudgetCategoryLimit 预算内单个类别的上限
type BudgetCategoryLimit struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	BudgetID   uint      `json:"-" gorm:"not null;index"`
	CategoryID uint      `json:"category" gorm:"not null"`
	Category   *Category `json:"categoryInfo,omitempty" gorm:"foreignKey:CategoryID"`
	Limit      float64   `json:"limit" gorm:"column:limit_amount;type:decimal(12,2);not null"`
}

func (BudgetCategoryLimit) TableName() string {
	return "budget_category_limits"
}

// CategoryLimitInput 请求中的类别上限
type CategoryLimitInput struct {
	Category uint    `json:"category" binding:"required"`
	Limit    float64 `json:"limit"`
}

// ValidatePeriod 月份 1-12，年份 2020-2100
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return errors.New("Month must be between 1 and 12")
	}
	if year < 2020 || year > 2100 {
		return errors.New("Year must be between 2020 and 2100")
	}
	return nil
}

// ValidateLimits 总额度与类别额度均不能为负
func ValidateLimits(limit float64, categoryLimits []CategoryLimitInput) error {
	if limit < 0 {
		return errors.New("Budget limit cannot be negative")
	}
	for _, cl := range categoryLimits {
		if cl.Limit < 0 {
			return errors.New("Category limit cannot be negative")
		}
	}
	return nil
}

// BuildCategoryLimits 转换请求中的类别上限
func BuildCategoryLimits(inputs []CategoryLimitInput) []BudgetCategoryLimit {
	limits := make([]BudgetCategoryLimit, 0, len(inputs))
	for _, in := range inputs {
		limits = append(limits, BudgetCategoryLimit{CategoryID: in.Category, Limit: in.Limit})
	}
	return limits
}

// BudgetUpdate 预算可修改字段
type BudgetUpdate struct {
	Limit          *float64              `json:"limit"`
	CategoryLimits *[]CategoryLimitInput `json:"categoryLimits"`
}

// Validate 校验待更新字段
func (u *BudgetUpdate) Validate() error {
	limit := 0.0
	if u.Limit != nil {
		limit = *u.Limit
	}
	var cls []CategoryLimitInput
	if u.CategoryLimits != nil {
		cls = *u.CategoryLimits
	}
	return ValidateLimits(limit, cls)
}
