package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// RoleUser 普通用户
	RoleUser = "user"
	// RoleAdmin 管理员
	RoleAdmin = "admin"

	// DefaultCurrency 默认币种
	DefaultCurrency = "INR"
)

// SupportedCurrencies 可选币种
var SupportedCurrencies = []string{"INR", "USD", "EUR", "GBP", "JPY", "AUD", "CAD"}

var (
	ErrWeakPassword = errors.New("Password must be at least 8 characters and contain at least one uppercase, one lowercase, and one number")
	ErrInvalidName  = errors.New("Name must be between 2 and 100 characters")

	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`\d`)
)

// User 用户模型
type User struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	Name                 string     `json:"name" gorm:"size:100;not null"`
	Email                string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Password             string     `json:"-" gorm:"size:255;not null"`
	ProfilePicture       string     `json:"profilePicture,omitempty" gorm:"size:255"`
	Currency             string     `json:"currency" gorm:"size:3;default:INR"`
	MonthlyBudget        float64    `json:"monthlyBudget" gorm:"type:decimal(12,2);default:0"`
	Role                 string     `json:"role" gorm:"size:10;default:user;index"`
	IsBlocked            bool       `json:"isBlocked" gorm:"default:false;index"`
	ResetPasswordToken   *string    `json:"-" gorm:"size:64;index"`
	ResetPasswordExpires *time.Time `json:"-"`
	// RefreshToken 当前有效 refresh token 的 SHA-256，单会话
	RefreshToken *string   `json:"-" gorm:"size:64"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建用户，密码在构造时显式哈希
func NewUser(name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 2 || n > 100 {
		return nil, ErrInvalidName
	}
	u := &User{
		Name:     name,
		Email:    NormalizeEmail(email),
		Currency: DefaultCurrency,
		Role:     RoleUser,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// NormalizeEmail 邮箱统一小写去空格
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword 密码强度：至少 8 位，包含大小写字母和数字
func ValidatePassword(password string) error {
	if len(password) < 8 || !upperRe.MatchString(password) ||
		!lowerRe.MatchString(password) || !digitRe.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

// SetPassword 校验并写入 bcrypt 哈希
func (u *User) SetPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword 校验明文密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ClearSession 清除已保存的 refresh token，使所有未过期的 refresh token 失效
func (u *User) ClearSession() {
	u.RefreshToken = nil
}

// ClearResetToken 清除密码重置令牌
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
}

// ResetTokenValid 判断给定哈希是否与保存的重置令牌匹配且未过期
func (u *User) ResetTokenValid(hash string, now time.Time) bool {
	if u.ResetPasswordToken == nil || u.ResetPasswordExpires == nil {
		return false
	}
	return *u.ResetPasswordToken == hash && now.Before(*u.ResetPasswordExpires)
}

// IsSupportedCurrency 币种是否可选
func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// Profile 对外返回的用户信息
type Profile struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Currency       string    `json:"currency"`
	MonthlyBudget  float64   `json:"monthlyBudget"`
	Role           string    `json:"role"`
	IsBlocked      bool      `json:"isBlocked"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToProfile 转换为对外结构
func (u *User) ToProfile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Currency:       u.Currency,
		MonthlyBudget:  u.MonthlyBudget,
		Role:           u.Role,
		IsBlocked:      u.IsBlocked,
		CreatedAt:      u.CreatedAt,
	}
}

// ProfileUpdate 个人资料可修改字段
type ProfileUpdate struct {
	Name          *string  `json:"name"`
	Currency      *string  `json:"currency"`
	MonthlyBudget *float64 `json:"monthlyBudget"`
}

// Validate 校验待更新字段
func (p *ProfileUpdate) Validate() error {
	if p.Name != nil {
		if n := len([]rune(strings.TrimSpace(*p.Name))); n < 2 || n > 100 {
			return ErrInvalidName
		}
	}
	if p.Currency != nil && !IsSupportedCurrency(*p.Currency) {
		return errors.New("Currency must be one of INR, USD, EUR, GBP, JPY, AUD, CAD")
	}
	if p.MonthlyBudget != nil && *p.MonthlyBudget < 0 {
		return errors.New("Monthly budget cannot be negative")
	}
	return nil
}

// Apply 合并到用户
func (p *ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Currency != nil {
		u.Currency = *p.Currency
	}
	if p.MonthlyBudget != nil {
		u.MonthlyBudget = *p.MonthlyBudget
	}
}
