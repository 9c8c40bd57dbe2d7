package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// 支付方式
const (
	PaymentCash       = "cash"
	PaymentCreditCard = "credit_card"
	PaymentDebitCard  = "debit_card"
	PaymentUPI        = "upi"
	PaymentNetBanking = "net_banking"
	PaymentWallet     = "wallet"
	PaymentOther      = "other"
)

// PaymentMethods 所有支付方式
var PaymentMethods = []string{
	PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentUPI,
	PaymentNetBanking, PaymentWallet, PaymentOther,
}

// ExpenseFrequencies 消费周期
var ExpenseFrequencies = []string{"daily", "weekly", "monthly", "yearly"}

var (
	ErrAmountNotPositive = errors.New("Amount must be at least 0.01")
	ErrRecurringNoFreq   = errors.New("Recurring frequency is required for recurring entries")
	ErrFreqNotRecurring  = errors.New("Recurring frequency is only allowed for recurring entries")
)

// Expense 消费记录
type Expense struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	UserID             uint      `json:"userId" gorm:"not null;index:idx_expense_user_date,priority:1"`
	Amount             float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	CategoryID         uint      `json:"categoryId" gorm:"not null;index"`
	Category           *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Date               time.Time `json:"date" gorm:"not null;index:idx_expense_user_date,priority:2"`
	Description        string    `json:"description" gorm:"size:200;not null"`
	PaymentMethod      string    `json:"paymentMethod" gorm:"size:20;default:cash"`
	IsRecurring        bool      `json:"isRecurring" gorm:"default:false"`
	RecurringFrequency string    `json:"recurringFrequency,omitempty" gorm:"size:10"`
	Notes              string    `json:"notes,omitempty" gorm:"size:500"`
	ReceiptURL         string    `json:"receiptUrl,omitempty" gorm:"size:255"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// Validate 校验字段约束
func (e *Expense) Validate() error {
	if !positiveAmount(e.Amount) {
		return ErrAmountNotPositive
	}
	if n := len([]rune(strings.TrimSpace(e.Description))); n < 2 || n > 200 {
		return errors.New("Description must be between 2 and 200 characters")
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = PaymentCash
	}
	if !contains(PaymentMethods, e.PaymentMethod) {
		return errors.New("Invalid payment method")
	}
	if len([]rune(e.Notes)) > 500 {
		return errors.New("Notes cannot exceed 500 characters")
	}
	return validateRecurring(e.IsRecurring, e.RecurringFrequency, ExpenseFrequencies)
}

// ExpenseUpdate 消费记录可修改字段
type ExpenseUpdate struct {
	Amount             *float64 `json:"amount"`
	CategoryID         *uint    `json:"category"`
	Date               *string  `json:"date"`
	Description        *string  `json:"description"`
	PaymentMethod      *string  `json:"paymentMethod"`
	IsRecurring        *bool    `json:"isRecurring"`
	RecurringFrequency *string  `json:"recurringFrequency"`
	Notes              *string  `json:"notes"`
}

// Apply 合并到消费记录，date 由调用方解析后传入；合并后需重新 Validate
func (u *ExpenseUpdate) Apply(e *Expense, date *time.Time) {
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.CategoryID != nil {
		e.CategoryID = *u.CategoryID
		e.Category = nil
	}
	if date != nil {
		e.Date = *date
	}
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.PaymentMethod != nil {
		e.PaymentMethod = *u.PaymentMethod
	}
	if u.IsRecurring != nil {
		e.IsRecurring = *u.IsRecurring
		if !e.IsRecurring {
			e.RecurringFrequency = ""
		}
	}
	if u.RecurringFrequency != nil {
		e.RecurringFrequency = *u.RecurringFrequency
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
}

// positiveAmount 金额列为 decimal(12,2)，不足 1 分会被存成 0
func positiveAmount(amount float64) bool {
	return math.Round(amount*100) >= 1
}

func validateRecurring(recurring bool, freq string, allowed []string) error {
	if recurring && freq == "" {
		return ErrRecurringNoFreq
	}
	if !recurring && freq != "" {
		return ErrFreqNotRecurring
	}
	if freq != "" && !contains(allowed, freq) {
		return errors.New("Recurring frequency must be one of " + strings.Join(allowed, ", "))
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
