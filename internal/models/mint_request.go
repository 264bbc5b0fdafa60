package models

import (
	"time"
)

// MintRequest is a staged, signable request to create on-chain tokens for a
// passed action. The unique index on ActionID enforces at-most-one live request
// per action; creation is an insert-on-conflict upsert.
type MintRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ActionID         uint       `gorm:"uniqueIndex;not null" json:"action_id"`
	ActorID          uint       `gorm:"not null;index" json:"actor_id"`
	RecipientAddress string     `gorm:"size:42;not null" json:"recipient_address"`
	Amount           int64      `gorm:"not null" json:"amount"`
	ActionHash       string     `gorm:"size:64;not null" json:"action_hash"`
	EvidenceHash     string     `gorm:"size:64;not null" json:"evidence_hash"`
	PolicyVersion    string     `gorm:"size:20;not null" json:"policy_version"`
	Nonce            string     `gorm:"size:64;not null" json:"nonce"`
	Signature        *string    `gorm:"size:200" json:"signature"`
	SignerAddress    *string    `gorm:"size:42" json:"signer_address"`
	Status           string     `gorm:"size:20;not null;index" json:"status"` // PENDING, APPROVED, SIGNED, MINTED, REJECTED, EXPIRED
	TxHash           *string    `gorm:"size:80" json:"tx_hash"`
	MintedAt         *time.Time `json:"minted_at"`
	ValidAfter       time.Time  `json:"valid_after"`
	ValidBefore      time.Time  `gorm:"index" json:"valid_before"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Action PPLPAction `gorm:"foreignKey:ActionID" json:"-"`
	Actor  User       `gorm:"foreignKey:ActorID" json:"-"`
}

func (MintRequest) TableName() string {
	return "mint_requests"
}

// Terminal reports whether the request can no longer move through the pipeline.
func (m *MintRequest) Terminal() bool {
	return m.Status == "MINTED" || m.Status == "REJECTED" || m.Status == "EXPIRED"
}
