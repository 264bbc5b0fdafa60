package models

import (
	"time"
)

// Gift records a peer-to-peer coin transfer. Created atomically with exactly
// two transactions (debit sender, credit receiver); immutable thereafter.
type Gift struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index;uniqueIndex:idx_gifts_dedupe" json:"sender_id"`
	ReceiverID  uint      `gorm:"not null;index" json:"receiver_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Message     string    `gorm:"size:500" json:"message"`
	GiftType    string    `gorm:"size:30" json:"gift_type"`
	ContextType string    `gorm:"size:30" json:"context_type"` // post, profile, project
	ContextID   string    `gorm:"size:64" json:"context_id"`
	ReceiptID   string    `gorm:"size:64;uniqueIndex" json:"receipt_id"`
	ContentHash string    `gorm:"size:64;uniqueIndex:idx_gifts_dedupe" json:"-"` // hash embeds the day, so the unique pair is per-day
	TxHash      *string   `gorm:"size:80" json:"tx_hash"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (Gift) TableName() string {
	return "gifts"
}
