package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single recorded spend. Expenses are never updated in place.
type Expense struct {
	ID          uint            `json:"id" gorm:"column:expenseid;primaryKey;autoIncrement"`
	Description string          `json:"description" gorm:"size:255;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	CategoryID  uint            `json:"category_id" gorm:"column:categoryid;not null;index"`
	UserID      uint            `json:"user_id" gorm:"column:userid;not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName keeps the schema name used by existing deployments.
func (Expense) TableName() string {
	return "expense"
}
