package models

import (
	"time"
)

// Transaction is an append-only ledger entry. Rows are never updated except for
// the Status of PENDING reward credits (pending → settled/frozen/void); amounts
// and ownership are immutable, and the balance table must stay re-derivable
// from this log.
type Transaction struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      int64      `gorm:"not null" json:"amount"`               // positive = credit, negative = debit
	Type        string     `gorm:"size:30;not null;index" json:"type"`   // GIFT_SENT, GIFT_RECEIVED, REWARD, WITHDRAWAL, ADJUSTMENT
	Status      string     `gorm:"size:20;not null;index" json:"status"` // SETTLED, PENDING, FROZEN, VOID
	Description string     `gorm:"size:255" json:"description"`
	Metadata    string     `gorm:"type:text" json:"metadata"` // JSON
	FrozenUntil *time.Time `json:"frozen_until"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
