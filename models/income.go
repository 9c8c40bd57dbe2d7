package models

import (
	"errors"
	"strings"
	"time"
)

// IncomeFrequencies 收入周期
var IncomeFrequencies = []string{"weekly", "biweekly", "monthly", "yearly"}

// Income 收入记录
type Income struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	UserID             uint      `json:"userId" gorm:"not null;index:idx_income_user_date,priority:1"`
	Amount             float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	Source             string    `json:"source" gorm:"size:100;not null"`
	Date               time.Time `json:"date" gorm:"not null;index:idx_income_user_date,priority:2"`
	Description        string    `json:"description,omitempty" gorm:"size:200"`
	IsRecurring        bool      `json:"isRecurring" gorm:"default:false"`
	RecurringFrequency string    `json:"recurringFrequency,omitempty" gorm:"size:10"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (Income) TableName() string {
	return "incomes"
}

// Validate 校验字段约束
func (i *Income) Validate() error {
	if !positiveAmount(i.Amount) {
		return ErrAmountNotPositive
	}
	if n := len([]rune(strings.TrimSpace(i.Source))); n < 2 || n > 100 {
		return errors.New("Source must be between 2 and 100 characters")
	}
	if len([]rune(i.Description)) > 200 {
		return errors.New("Description cannot exceed 200 characters")
	}
	return validateRecurring(i.IsRecurring, i.RecurringFrequency, IncomeFrequencies)
}

// IncomeUpdate 收入记录可修改字段
type IncomeUpdate struct {
	Source             *string  `json:"source"`
	Amount             *float64 `json:"amount"`
	Date               *string  `json:"date"`
	Description        *string  `json:"description"`
	IsRecurring        *bool    `json:"isRecurring"`
	RecurringFrequency *string  `json:"recurringFrequency"`
}

// Apply 合并到收入记录；合并后需重新 Validate
func (u *IncomeUpdate) Apply(i *Income, date *time.Time) {
	if u.Source != nil {
		i.Source = strings.TrimSpace(*u.Source)
	}
	if u.Amount != nil {
		i.Amount = *u.Amount
	}
	if date != nil {
		i.Date = *date
	}
	if u.Description != nil {
		i.Description = *u.Description
	}
	if u.IsRecurring != nil {
		i.IsRecurring = *u.IsRecurring
		if !i.IsRecurring {
			i.RecurringFrequency = ""
		}
	}
	if u.RecurringFrequency != nil {
		i.RecurringFrequency = *u.RecurringFrequency
	}
}
