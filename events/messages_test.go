package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetAlertFromJSON(t *testing.T) {
	alert := BudgetAlert{UserID: 3, Month: 3, Year: 2025, Level: AlertOver, Limit: 1000, Spent: 1050.5, Timestamp: time.Unix(1700000000, 0).UTC()}
	body, err := alert.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"level":"over"`)

	got, err := BudgetAlertFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.UserID)
	assert.Equal(t, 1050.5, got.Spent)
}

func TestBudgetAlertFromJSON_Rejects(t *testing.T) {
	_, err := BudgetAlertFromJSON([]byte("{not json"))
	assert.Error(t, err)

	_, err = BudgetAlertFromJSON([]byte(`{"userId":0,"level":"over"}`))
	assert.Error(t, err)

	_, err = BudgetAlertFromJSON([]byte(`{"userId":5,"level":"panic"}`))
	assert.Error(t, err)
}
