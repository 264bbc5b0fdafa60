package repository

import (
	"time"

	"camly/internal/domain"
	"camly/internal/models"

	"gorm.io/gorm"
)

type FraudRepository struct {
	db *gorm.DB
}

func NewFraudRepository(db *gorm.DB) *FraudRepository {
	return &FraudRepository{db: db}
}

func (r *FraudRepository) CreateSignal(s *models.FraudSignal) error {
	return r.db.Create(s).Error
}

func (r *FraudRepository) GetSignal(id uint) (*models.FraudSignal, error) {
	var s models.FraudSignal
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveSignal marks a signal handled; signals are never deleted.
func (r *FraudRepository) ResolveSignal(id uint) error {
	return r.db.Model(&models.FraudSignal{}).Where("id = ?", id).Update("is_resolved", true).Error
}

func (r *FraudRepository) ListUnresolvedByActor(actorID uint) ([]models.FraudSignal, error) {
	var ss []models.FraudSignal
	err := r.db.Where("actor_id = ? AND is_resolved = ?", actorID, false).Find(&ss).Error
	return ss, err
}

func (r *FraudRepository) CountUnresolvedByType(actorID uint, signalType string) (int64, error) {
	var n int64
	err := r.db.Model(&models.FraudSignal{}).
		Where("actor_id = ? AND signal_type = ? AND is_resolved = ?", actorID, signalType, false).
		Count(&n).Error
	return n, err
}

// HasSignalWithDetails checks for an existing signal keyed by its details
// payload, to keep sweep-generated signals idempotent.
func (r *FraudRepository) HasSignalWithDetails(actorID uint, signalType, details string) (bool, error) {
	var n int64
	err := r.db.Model(&models.FraudSignal{}).
		Where("actor_id = ? AND signal_type = ? AND details = ?", actorID, signalType, details).
		Count(&n).Error
	return n > 0, err
}

func (r *FraudRepository) CreateSuspension(s *models.Suspension) error {
	return r.db.Create(s).Error
}

// ActiveSuspension returns the suspension in force for the user, or nil.
func (r *FraudRepository) ActiveSuspension(userID uint, now time.Time) (*models.Suspension, error) {
	var s models.Suspension
	err := r.db.Where("user_id = ? AND lifted_at IS NULL AND (suspended_until IS NULL OR suspended_until > ?)", userID, now).
		First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *FraudRepository) LiftSuspension(userID, adminID uint, now time.Time) error {
	res := r.db.Model(&models.Suspension{}).
		Where("user_id = ? AND lifted_at IS NULL", userID).
		Updates(map[string]interface{}{"lifted_at": now, "lifted_by": adminID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
