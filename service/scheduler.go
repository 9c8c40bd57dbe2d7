package service

import (
	"context"
	"fmt"
	"time"

	"fintrack/config"
	"fintrack/logger"
	"fintrack/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler 定时任务
type Scheduler struct {
	cron *cron.Cron
	db   *gorm.DB
	cfg  config.SchedulerConfig
	log  *logger.Logger
}

// NewScheduler 创建定时任务，timezone 为空或 Local 时使用本地时区
func NewScheduler(db *gorm.DB, cfg config.SchedulerConfig) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		db:   db,
		cfg:  cfg,
		log:  logger.New("scheduler"),
	}, nil
}

// Start 注册任务并启动
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, s.runCleanup); err != nil {
		return fmt.Errorf("schedule reset-token cleanup %q: %w", s.cfg.CleanupSpec, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", "cleanup_spec", s.cfg.CleanupSpec)
	return nil
}

// Stop 停止并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := PurgeExpiredResetTokens(ctx, s.db, time.Now())
	if err != nil {
		s.log.Error("purge expired reset tokens failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("purged expired reset tokens", "count", n)
	}
}

// PurgeExpiredResetTokens 清除已过期的密码重置令牌
func PurgeExpiredResetTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_password_expires IS NOT NULL AND reset_password_expires < ?", now).
		Updates(map[string]interface{}{
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	return result.RowsAffected, result.Error
}
