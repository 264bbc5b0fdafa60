package models

import (
	"time"
)

// FraudSignal is an append-only abuse indicator. Resolution is an
// administrative update, never a delete, so containment decisions stay
// reproducible from the stored rows.
type FraudSignal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    uint      `gorm:"not null;index" json:"actor_id"`
	ActionID   *uint     `gorm:"index" json:"action_id"`
	SignalType string    `gorm:"size:20;not null;index" json:"signal_type"` // SYBIL, BOT, SPAM, COLLUSION, AUDIT
	Severity   int       `gorm:"not null" json:"severity"`                  // 1-4
	Details    string    `gorm:"type:text" json:"details"`                  // JSON
	Source     string    `gorm:"size:40;not null" json:"source"`
	IsResolved bool      `gorm:"not null;default:false;index" json:"is_resolved"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Actor User `gorm:"foreignKey:ActorID" json:"-"`
}

func (FraudSignal) TableName() string {
	return "fraud_signals"
}

// Suspension blocks all transfer and mint activity for a user. Active while
// LiftedAt is null and SuspendedUntil is null or in the future.
type Suspension struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	SuspendedUntil *time.Time `json:"suspended_until"`
	LiftedAt       *time.Time `json:"lifted_at"`
	LiftedBy       uint       `json:"lifted_by"`
	Reason         string     `gorm:"size:255;not null" json:"reason"`
	RiskScore      int        `gorm:"not null" json:"risk_score"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Suspension) TableName() string {
	return "suspensions"
}

// ActiveAt reports whether the suspension is in force at t.
func (s *Suspension) ActiveAt(t time.Time) bool {
	if s.LiftedAt != nil {
		return false
	}
	return s.SuspendedUntil == nil || s.SuspendedUntil.After(t)
}
