package database

import (
	"testing"
	"time"

	"fintrack/config"
	"fintrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:        "db",
		Port:        "3306",
		Username:    "root",
		Password:    "secret",
		DBName:      "fintrack",
		Charset:     "utf8mb4",
		Timeout:     5 * time.Second,
		ReadTimeout: 45 * time.Second,
	})
	assert.Equal(t, "root:secret@tcp(db:3306)/fintrack?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s&readTimeout=45s", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "h", Port: "1", Username: "u", DBName: "d", Charset: "utf8mb4"})
	assert.NotContains(t, dsn, "timeout")
}

func TestSeedDefaultCategories_Empty(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `categories`").
		WillReturnResult(sqlmock.NewResult(1, int64(len(models.DefaultCategories()))))
	mock.ExpectCommit()

	n, err := SeedDefaultCategories(db)
	require.NoError(t, err)
	assert.Equal(t, len(models.DefaultCategories()), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDefaultCategories_AlreadySeeded(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := SeedDefaultCategories(db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
