package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ToJSON(t *testing.T) {
	remaining := decimal.RequireFromString("-5.50")
	event := New(TypeBudgetOverspent, 7, decimal.NewFromInt(30))
	event.ExpenseID = 3
	event.Remaining = &remaining

	body, err := event.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "budget.overspent", decoded["type"])
	assert.Equal(t, float64(7), decoded["user_id"])
	assert.Equal(t, float64(3), decoded["expense_id"])
	assert.Equal(t, "30", decoded["amount"])
	assert.Equal(t, "-5.5", decoded["remaining"])
}

func TestEvent_OmitsEmptyFields(t *testing.T) {
	body, err := New(TypeBudgetSet, 1, decimal.NewFromInt(100)).ToJSON()
	require.NoError(t, err)

	assert.NotContains(t, string(body), "expense_id")
	assert.NotContains(t, string(body), "remaining")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeExpenseDeleted, 1, decimal.Zero)))
	assert.NoError(t, p.Close())
}
