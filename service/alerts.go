package service

import (
	"context"
	"time"

	"fintrack/events"
	"fintrack/logger"
)

// AlertPublisher 预算提醒发布者
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, alert events.BudgetAlert) error
}

// BudgetAlerter 在消费写入后检查是否越过预算提醒线
type BudgetAlerter struct {
	analytics *AnalyticsService
	publisher AlertPublisher
	log       *logger.Logger
}

// NewBudgetAlerter 创建预算提醒检查器
func NewBudgetAlerter(analytics *AnalyticsService, publisher AlertPublisher) *BudgetAlerter {
	return &BudgetAlerter{
		analytics: analytics,
		publisher: publisher,
		log:       logger.New("budget-alert"),
	}
}

// AlertLevelFor 根据消费和额度给出提醒级别，额度为 0 时不提醒
func AlertLevelFor(spent, limit float64) events.AlertLevel {
	if limit <= 0 {
		return events.AlertNone
	}
	if toCents(spent) > toCents(limit) {
		return events.AlertOver
	}
	if spent >= limit*NearBudgetThreshold {
		return events.AlertNear
	}
	return events.AlertNone
}

// CrossedLevel 本次写入是否让提醒级别升高
func CrossedLevel(limit, before, after float64) (events.AlertLevel, bool) {
	prev := AlertLevelFor(before, limit)
	next := AlertLevelFor(after, limit)
	if next == events.AlertNone || next == prev {
		return next, false
	}
	if prev == events.AlertOver {
		return next, false
	}
	return next, true
}

// Check 消费写入后调用，delta 为本次写入对当月消费的增量。失败只记录日志
func (a *BudgetAlerter) Check(ctx context.Context, userID uint, date time.Time, delta float64) {
	if a == nil || a.publisher == nil || delta <= 0 {
		return
	}
	year, month := date.Year(), int(date.Month())

	spent, limit, err := a.analytics.MonthSpending(ctx, userID, year, month)
	if err != nil {
		a.log.WarnContext(ctx, "load month spending failed", "error", err, "user_id", userID)
		return
	}

	level, crossed := CrossedLevel(limit, subtractMoney(spent, delta), spent)
	if !crossed {
		return
	}

	alert := events.BudgetAlert{
		UserID:    userID,
		Month:     month,
		Year:      year,
		Level:     level,
		Limit:     limit,
		Spent:     spent,
		Timestamp: time.Now(),
	}
	if err := a.publisher.PublishBudgetAlert(ctx, alert); err != nil {
		a.log.WarnContext(ctx, "publish budget alert failed", "error", err, "user_id", userID)
	}
}
