package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Type names a ledger event. It doubles as the AMQP routing key.
type Type string

const (
	TypeBudgetSet       Type = "budget.set"
	TypeExpenseRecorded Type = "expense.recorded"
	TypeExpenseDeleted  Type = "expense.deleted"
	TypeBudgetOverspent Type = "budget.overspent"
)

// Event is a change to a user's ledger.
type Event struct {
	Type      Type             `json:"type"`
	UserID    uint             `json:"user_id"`
	ExpenseID uint             `json:"expense_id,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// New stamps an event with the current time.
func New(typ Type, userID uint, amount decimal.Decimal) Event {
	return Event{
		Type:      typ,
		UserID:    userID,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers ledger events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
