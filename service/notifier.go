package service

import (
	"context"
	"errors"

	"fintrack/events"
	"fintrack/logger"
	"fintrack/models"

	"gorm.io/gorm"
)

// BudgetAlertNotifier 消费预算提醒并发送邮件
type BudgetAlertNotifier struct {
	db    *gorm.DB
	email *EmailService
	log   *logger.Logger
}

// NewBudgetAlertNotifier 创建提醒通知器
func NewBudgetAlertNotifier(db *gorm.DB, email *EmailService) *BudgetAlertNotifier {
	return &BudgetAlertNotifier{db: db, email: email, log: logger.New("budget-notifier")}
}

// Handle 处理单条提醒。用户不存在、已封禁或邮件未启用时直接确认
func (n *BudgetAlertNotifier) Handle(ctx context.Context, alert *events.BudgetAlert) error {
	var user models.User
	err := n.db.WithContext(ctx).First(&user, alert.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		n.log.WarnContext(ctx, "budget alert for unknown user", "user_id", alert.UserID)
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsBlocked {
		return nil
	}
	if !n.email.Enabled() {
		n.log.InfoContext(ctx, "email disabled, skip budget alert", "user_id", user.ID, "level", alert.Level)
		return nil
	}
	return n.email.SendBudgetAlertEmail(user.Email, user.Name, user.Currency, alert)
}
