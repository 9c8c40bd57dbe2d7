package service

import (
	"context"
	"testing"
	"time"

	"fintrack/config"
	"fintrack/events"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeExpiredResetTokens(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := PurgeExpiredResetTokens(context.Background(), db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewScheduler(t *testing.T) {
	db, _ := setupMockDB(t)

	s, err := NewScheduler(db, config.SchedulerConfig{Timezone: "UTC", CleanupSpec: "0 0 * * * *"})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()

	_, err = NewScheduler(db, config.SchedulerConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	bad, err := NewScheduler(db, config.SchedulerConfig{CleanupSpec: "not a spec"})
	require.NoError(t, err)
	assert.Error(t, bad.Start())
}

func TestBudgetAlertNotifier_SkipsWhenEmailDisabled(t *testing.T) {
	db, mock := setupMockDB(t)
	n := NewBudgetAlertNotifier(db, newTestEmailService())

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "currency", "is_blocked"}).
			AddRow(4, "Jane", "jane@example.com", "INR", false))

	err := n.Handle(context.Background(), &events.BudgetAlert{UserID: 4, Level: events.AlertNear, Month: 3, Year: 2025})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetAlertNotifier_UnknownUser(t *testing.T) {
	db, mock := setupMockDB(t)
	n := NewBudgetAlertNotifier(db, newTestEmailService())

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, n.Handle(context.Background(), &events.BudgetAlert{UserID: 99, Level: events.AlertOver}))
	require.NoError(t, mock.ExpectationsWereMet())
}
