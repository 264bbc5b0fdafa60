package repository

import (
	"time"

	"camly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GiftRepository struct {
	db *gorm.DB
}

func NewGiftRepository(db *gorm.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

func (r *GiftRepository) CreateTx(tx *gorm.DB, g *models.Gift) error {
	return tx.Create(g).Error
}

// CreateIdempotentTx inserts the gift unless the sender already committed the
// same content hash; the conflict path returns the earlier row so concurrent
// identical submissions collapse onto one gift.
func (r *GiftRepository) CreateIdempotentTx(tx *gorm.DB, g *models.Gift) (*models.Gift, bool, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_id"}, {Name: "content_hash"}},
		DoNothing: true,
	}).Create(g)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.Gift
		if err := tx.Where("sender_id = ? AND content_hash = ?", g.SenderID, g.ContentHash).
			First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return g, true, nil
}

func (r *GiftRepository) GetByID(id uint) (*models.Gift, error) {
	var g models.Gift
	if err := r.db.First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// CountSentSince counts gifts the sender made since the cutoff (daily cap check).
func (r *GiftRepository) CountSentSince(senderID uint, since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.Gift{}).
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Count(&n).Error
	return n, err
}

// FindByContentHashSince returns an earlier gift with the same content hash in
// the dedupe window, if any.
func (r *GiftRepository) FindByContentHashSince(senderID uint, hash string, since time.Time) (*models.Gift, error) {
	var g models.Gift
	err := r.db.Where("sender_id = ? AND content_hash = ? AND created_at >= ?", senderID, hash, since).
		Order("created_at").First(&g).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
