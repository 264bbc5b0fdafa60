package models

import (
	"time"
)

// Withdrawal moves ledger balance to an on-chain token transfer.
// The ledger is debited exactly once, when the withdrawal is requested;
// processing attempts never touch the balance again.
type Withdrawal struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	OrderID       string     `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	WalletAddress string     `gorm:"size:42;not null" json:"wallet_address"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Status        string     `gorm:"size:20;not null;index" json:"status"` // PENDING, PROCESSING, COMPLETED, FAILED
	TxHash        *string    `gorm:"size:80" json:"tx_hash"`
	RetryCount    int        `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage  string     `gorm:"size:500" json:"error_message"`
	ProcessedBy   uint       `json:"processed_by"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
