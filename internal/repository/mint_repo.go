package repository

import (
	"time"

	"camly/internal/domain"
	"camly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MintRepository struct {
	db *gorm.DB
}

func NewMintRepository(db *gorm.DB) *MintRepository {
	return &MintRepository{db: db}
}

// CreateIdempotent inserts the request unless one already exists for the
// action; the unique index on action_id plus DO NOTHING makes retried calls
// safe. Returns the surviving row and whether this call created it.
func (r *MintRepository) CreateIdempotent(m *models.MintRequest) (*models.MintRequest, bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return m, true, nil
	}
	existing, err := r.GetByActionID(m.ActionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MintRepository) GetByID(id uint) (*models.MintRequest, error) {
	var m models.MintRequest
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MintRepository) GetByActionID(actionID uint) (*models.MintRequest, error) {
	var m models.MintRequest
	if err := r.db.Where("action_id = ?", actionID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MintRepository) Update(m *models.MintRequest) error {
	return r.db.Save(m).Error
}

// Supersede resets a terminal (expired/rejected) request back to pending with
// fresh nonce and validity. The action_id unique index stays satisfied.
func (r *MintRepository) Supersede(m *models.MintRequest, nonce string, validAfter, validBefore time.Time) error {
	return r.db.Model(&models.MintRequest{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"status":       domain.MintStatusPending,
		"nonce":        nonce,
		"signature":    nil,
		"signer_address": nil,
		"tx_hash":      nil,
		"minted_at":    nil,
		"valid_after":  validAfter,
		"valid_before": validBefore,
	}).Error
}

// ExpireStale flips non-terminal requests past their validity window to
// expired. Returns the number of rows changed.
func (r *MintRepository) ExpireStale(now time.Time) (int64, error) {
	res := r.db.Model(&models.MintRequest{}).
		Where("status IN ? AND valid_before <= ?",
			[]string{domain.MintStatusPending, domain.MintStatusApproved}, now).
		Update("status", domain.MintStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *MintRepository) ListByStatus(status string, limit int) ([]models.MintRequest, error) {
	var ms []models.MintRequest
	err := r.db.Where("status = ?", status).Order("created_at").Limit(limit).Find(&ms).Error
	return ms, err
}
