package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultCategoryColor = "#3B82F6"
	DefaultCategoryIcon  = "tag"
)

var hexColorRe = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// Category 消费类别；UserID 为空表示系统默认类别，所有用户共享且只读
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex:idx_category_owner_name,priority:2"`
	Color     string    `json:"color" gorm:"size:7;default:#3B82F6"`
	Icon      string    `json:"icon" gorm:"size:50;default:tag"`
	UserID    *uint     `json:"userId" gorm:"uniqueIndex:idx_category_owner_name,priority:1"`
	IsDefault bool      `json:"isDefault" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}

// OwnedBy 是否属于指定用户
func (c *Category) OwnedBy(userID uint) bool {
	return c.UserID != nil && *c.UserID == userID
}

// UsableBy 默认类别或自己的类别才能用于记账
func (c *Category) UsableBy(userID uint) bool {
	return c.IsDefault || c.OwnedBy(userID)
}

// ValidateCategoryName 名称 2-50 个字符
func ValidateCategoryName(name string) error {
	if n := len([]rune(strings.TrimSpace(name))); n < 2 || n > 50 {
		return errors.New("Category name must be between 2 and 50 characters")
	}
	return nil
}

// ValidateColor 十六进制颜色
func ValidateColor(color string) error {
	if !hexColorRe.MatchString(color) {
		return errors.New("Invalid hex color")
	}
	return nil
}

// NewCategory 创建自定义类别
func NewCategory(userID uint, name, color, icon string) (*Category, error) {
	if err := ValidateCategoryName(name); err != nil {
		return nil, err
	}
	if color == "" {
		color = DefaultCategoryColor
	}
	if err := ValidateColor(color); err != nil {
		return nil, err
	}
	if icon == "" {
		icon = DefaultCategoryIcon
	}
	owner := userID
	return &Category{
		Name:   strings.TrimSpace(name),
		Color:  color,
		Icon:   icon,
		UserID: &owner,
	}, nil
}

// CategoryUpdate 类别可修改字段
type CategoryUpdate struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

// Validate 校验待更新字段
func (u *CategoryUpdate) Validate() error {
	if u.Name != nil {
		if err := ValidateCategoryName(*u.Name); err != nil {
			return err
		}
	}
	if u.Color != nil {
		if err := ValidateColor(*u.Color); err != nil {
			return err
		}
	}
	return nil
}

// Apply 合并到类别
func (u *CategoryUpdate) Apply(c *Category) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.Icon != nil && *u.Icon != "" {
		c.Icon = *u.Icon
	}
}

// DefaultCategories 系统默认类别
func DefaultCategories() []Category {
	defaults := []struct {
		Name  string
		Color string
		Icon  string
	}{
		{"Food & Dining", "#EF4444", "utensils"},
		{"Transportation", "#F59E0B", "car"},
		{"Shopping", "#8B5CF6", "shopping-bag"},
		{"Entertainment", "#EC4899", "film"},
		{"Bills & Utilities", "#3B82F6", "file-text"},
		{"Healthcare", "#10B981", "heart"},
		{"Education", "#6366F1", "book"},
		{"Travel", "#14B8A6", "plane"},
		{"Rent", "#F97316", "home"},
		{"Groceries", "#22C55E", "shopping-cart"},
		{"Personal Care", "#A855F7", "user"},
		{"Other", "#6B7280", "more-horizontal"},
	}

	cats := make([]Category, 0, len(defaults))
	for _, d := range defaults {
		cats = append(cats, Category{
			Name:      d.Name,
			Color:     d.Color,
			Icon:      d.Icon,
			IsDefault: true,
		})
	}
	return cats
}
