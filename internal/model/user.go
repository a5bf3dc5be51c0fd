package model

import "time"

// User represents a registered user of the expense tracker.
type User struct {
	ID           uint      `json:"id" gorm:"column:userid;primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the schema name used by existing deployments.
func (User) TableName() string {
	return "users"
}
