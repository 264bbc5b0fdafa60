package models

import (
	"time"
)

// Balance is the materialized projection of a user's transaction log.
// Invariant: Balance = LifetimeEarned - LifetimeSpent - Reserved, never negative.
// Mutated only through LedgerRepository apply paths, never directly.
type Balance struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	LifetimeEarned int64     `gorm:"not null;default:0" json:"lifetime_earned"`
	LifetimeSpent  int64     `gorm:"not null;default:0" json:"lifetime_spent"`
	Reserved       int64     `gorm:"not null;default:0" json:"reserved"` // frozen rewards awaiting release
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Balance) TableName() string {
	return "balances"
}
