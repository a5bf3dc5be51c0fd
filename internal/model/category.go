package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups a user's expenses. Names are not unique.
type Category struct {
	ID        uint      `json:"id" gorm:"column:categoryid;primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	UserID    uint      `json:"user_id" gorm:"column:userid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the schema name used by existing deployments.
func (Category) TableName() string {
	return "category"
}

// CategoryTotal is the aggregated spend of one category.
type CategoryTotal struct {
	CategoryID uint            `json:"category_id" gorm:"column:categoryid"`
	Total      decimal.Decimal `json:"total" gorm:"column:total"`
	Count      int64           `json:"count" gorm:"column:count"`
}
