package models

import (
	"time"
)

// PPLPAction is a unit of recorded user activity eligible for scoring and an
// eventual on-chain reward. Integrity metadata is kept as typed columns rather
// than a JSON blob so the fraud detectors can query it directly.
type PPLPAction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ActorID           uint      `gorm:"not null;index" json:"actor_id"`
	PlatformID        string    `gorm:"size:64;not null" json:"platform_id"`
	ActionType        string    `gorm:"size:40;not null;index" json:"action_type"`
	TargetID          string    `gorm:"size:64;index" json:"target_id"`
	EvidenceHash      string    `gorm:"size:64;not null" json:"evidence_hash"`
	DeviceFingerprint string    `gorm:"size:64;index" json:"-"`
	IPHash            string    `gorm:"size:64;index" json:"-"`
	ContentHash       string    `gorm:"size:64;index" json:"-"`
	ContentLength     int       `json:"content_length"`
	Status            string    `gorm:"size:20;not null;index" json:"status"` // PENDING, SCORED, MINTED, REJECTED
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Actor User `gorm:"foreignKey:ActorID" json:"-"`
}

func (PPLPAction) TableName() string {
	return "pplp_actions"
}

// PPLPScore is the immutable scoring result, one-to-one with a scored action.
type PPLPScore struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ActionID      uint      `gorm:"uniqueIndex;not null" json:"action_id"`
	LightScore    int       `gorm:"not null" json:"light_score"` // 0-100
	FinalReward   int64     `gorm:"not null" json:"final_reward"`
	Decision      string    `gorm:"size:10;not null" json:"decision"` // PASS | FAIL
	PolicyVersion string    `gorm:"size:20;not null" json:"policy_version"`
	CreatedAt     time.Time `json:"created_at"`

	Action PPLPAction `gorm:"foreignKey:ActionID" json:"-"`
}

func (PPLPScore) TableName() string {
	return "pplp_scores"
}
