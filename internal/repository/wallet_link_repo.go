package repository

import (
	"strings"

	"camly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletLinkRepository struct {
	db *gorm.DB
}

func NewWalletLinkRepository(db *gorm.DB) *WalletLinkRepository {
	return &WalletLinkRepository{db: db}
}

// Upsert registers an address for a user; re-registering the same address is a
// no-op (unique index on address).
func (r *WalletLinkRepository) Upsert(l *models.WalletLink) error {
	l.Address = strings.ToLower(l.Address)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(l).Error
}

func (r *WalletLinkRepository) UserByAddress(address string) (uint, error) {
	var l models.WalletLink
	err := r.db.Where("address = ?", strings.ToLower(address)).First(&l).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return l.UserID, nil
}

func (r *WalletLinkRepository) ListByUser(userID uint) ([]models.WalletLink, error) {
	var ls []models.WalletLink
	err := r.db.Where("user_id = ?", userID).Find(&ls).Error
	return ls, err
}
