package models

import (
	"time"
)

// WalletLink maps a registered on-chain address to an internal user. The
// collector scanner resolves inbound transfer senders through this table,
// falling back to historical withdrawal wallets.
type WalletLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Address   string    `gorm:"size:42;uniqueIndex;not null" json:"address"`
	Source    string    `gorm:"size:20;not null" json:"source"` // REGISTERED, WITHDRAWAL
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletLink) TableName() string {
	return "wallet_links"
}
