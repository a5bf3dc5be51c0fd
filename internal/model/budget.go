package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the per-user remaining spendable amount. It is overwritten by an
// explicit set and decremented by every recorded expense, and may go negative.
type Budget struct {
	UserID    uint            `json:"user_id" gorm:"column:userid;primaryKey;autoIncrement:false"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null;default:0"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName keeps the schema name used by existing deployments.
func (Budget) TableName() string {
	return "budget"
}
