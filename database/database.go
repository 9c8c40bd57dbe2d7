package database

import (
	"fmt"
	"log/slog"

	"fintrack/config"
	"fintrack/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// DSN 构建 MySQL 连接字符串
func DSN(cfg config.DatabaseConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
	)
	if cfg.Timeout > 0 {
		dsn += "&timeout=" + cfg.Timeout.String()
	}
	if cfg.ReadTimeout > 0 {
		dsn += "&readTimeout=" + cfg.ReadTimeout.String()
	}
	return dsn
}

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	logLevel := gormlogger.Warn
	if config.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	var err error
	DB, err = gorm.Open(mysql.Open(DSN(cfg.Database)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	// 连接池
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	if cfg.Database.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	created, err := SeedDefaultCategories(DB)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	slog.Info("database initialized",
		"component", "database",
		"host", cfg.Database.Host,
		"dbname", cfg.Database.DBName,
		"seeded_categories", created,
	)
	return nil
}

// Migrate 自动迁移数据表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Expense{},
		&models.Income{},
		&models.Budget{},
		&models.BudgetCategoryLimit{},
	)
}

// SeedDefaultCategories 没有任何默认类别时写入内置类别，返回写入条数
func SeedDefaultCategories(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.Category{}).Where("is_default = ?", true).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	cats := models.DefaultCategories()
	if err := db.Create(&cats).Error; err != nil {
		return 0, err
	}
	return len(cats), nil
}

// Close 关闭连接池
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
