package repository

import (
	"time"

	"camly/internal/domain"
	"camly/internal/models"

	"gorm.io/gorm"
)

type ActionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) Create(a *models.PPLPAction) error {
	return r.db.Create(a).Error
}

func (r *ActionRepository) GetByID(id uint) (*models.PPLPAction, error) {
	var a models.PPLPAction
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActionRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.PPLPAction{}).Where("id = ?", id).Update("status", status).Error
}

// ListPending returns unscored actions oldest first (FIFO fairness).
func (r *ActionRepository) ListPending(limit int) ([]models.PPLPAction, error) {
	var actions []models.PPLPAction
	err := r.db.Where("status = ?", domain.ActionStatusPending).
		Order("created_at").Limit(limit).Find(&actions).Error
	return actions, err
}

func (r *ActionRepository) CreateScore(s *models.PPLPScore) error {
	return r.db.Create(s).Error
}

func (r *ActionRepository) GetScoreByActionID(actionID uint) (*models.PPLPScore, error) {
	var s models.PPLPScore
	err := r.db.Where("action_id = ?", actionID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SampleSettled picks up to n random scored or minted actions for re-audit.
func (r *ActionRepository) SampleSettled(n int) ([]models.PPLPAction, error) {
	var actions []models.PPLPAction
	order := "RAND()"
	if r.db.Dialector.Name() == "sqlite" {
		order = "RANDOM()"
	}
	err := r.db.Where("status IN ?", []string{domain.ActionStatusScored, domain.ActionStatusMinted}).
		Order(order).Limit(n).Find(&actions).Error
	return actions, err
}

// Detector queries below feed the fraud heuristics.

func (r *ActionRepository) CountSameTypeSince(actorID uint, actionType string, since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.PPLPAction{}).
		Where("actor_id = ? AND action_type = ? AND created_at >= ?", actorID, actionType, since).
		Count(&n).Error
	return n, err
}

// RecentTimestamps returns the actor's latest n action times, newest first.
func (r *ActionRepository) RecentTimestamps(actorID uint, n int) ([]time.Time, error) {
	var actions []models.PPLPAction
	err := r.db.Select("created_at").Where("actor_id = ?", actorID).
		Order("created_at DESC").Limit(n).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(actions))
	for i, a := range actions {
		out[i] = a.CreatedAt
	}
	return out, nil
}

// RewardedContentHashSince reports whether another of the actor's actions with
// the same content hash already earned a reward after the cutoff.
func (r *ActionRepository) RewardedContentHashSince(actorID uint, hash string, excludeActionID uint, since time.Time) (bool, error) {
	if hash == "" {
		return false, nil
	}
	var n int64
	err := r.db.Model(&models.PPLPAction{}).
		Joins("JOIN pplp_scores ON pplp_scores.action_id = pplp_actions.id").
		Where("pplp_actions.actor_id = ? AND pplp_actions.content_hash = ? AND pplp_actions.id <> ?", actorID, hash, excludeActionID).
		Where("pplp_actions.created_at >= ? AND pplp_scores.final_reward > 0", since).
		Count(&n).Error
	return n > 0, err
}

func (r *ActionRepository) CountContentHash(actorID uint, hash string) (int64, error) {
	var n int64
	err := r.db.Model(&models.PPLPAction{}).
		Where("actor_id = ? AND content_hash = ? AND content_hash <> ''", actorID, hash).
		Count(&n).Error
	return n, err
}

// RecentTargets returns target IDs of the actor's last n targeted actions.
func (r *ActionRepository) RecentTargets(actorID uint, n int) ([]string, error) {
	var actions []models.PPLPAction
	err := r.db.Select("target_id").Where("actor_id = ? AND target_id <> ''", actorID).
		Order("created_at DESC").Limit(n).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.TargetID
	}
	return out, nil
}

// FingerprintCollision reports whether a different actor used the same device
// fingerprint or IP hash since the cutoff.
func (r *ActionRepository) FingerprintCollision(actorID uint, deviceFingerprint, ipHash string, since time.Time) (bool, uint, error) {
	var a models.PPLPAction
	q := r.db.Where("actor_id <> ? AND created_at >= ?", actorID, since)
	switch {
	case deviceFingerprint != "" && ipHash != "":
		q = q.Where("device_fingerprint = ? OR ip_hash = ?", deviceFingerprint, ipHash)
	case deviceFingerprint != "":
		q = q.Where("device_fingerprint = ?", deviceFingerprint)
	case ipHash != "":
		q = q.Where("ip_hash = ?", ipHash)
	default:
		return false, 0, nil
	}
	err := q.First(&a).Error
	if err == gorm.ErrRecordNotFound {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, a.ActorID, nil
}

// RecentFingerprinted returns actions since the cutoff that carry a device
// fingerprint, for the cross-account scan.
func (r *ActionRepository) RecentFingerprinted(since time.Time) ([]models.PPLPAction, error) {
	var actions []models.PPLPAction
	err := r.db.Where("created_at >= ? AND (device_fingerprint <> '' OR ip_hash <> '')", since).
		Find(&actions).Error
	return actions, err
}

// RejectStaleTx marks a pending action rejected.
func (r *ActionRepository) RejectStaleTx(tx *gorm.DB, id uint) error {
	return tx.Model(&models.PPLPAction{}).
		Where("id = ? AND status = ?", id, domain.ActionStatusPending).
		Update("status", domain.ActionStatusRejected).Error
}
