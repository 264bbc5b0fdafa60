package repository

import (
	"camly/internal/domain"
	"camly/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) CreateTx(tx *gorm.DB, w *models.Withdrawal) error {
	return tx.Create(w).Error
}

func (r *WithdrawalRepository) GetByID(id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) GetByOrderID(orderID string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.db.Where("order_id = ?", orderID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) Update(w *models.Withdrawal) error {
	return r.db.Save(w).Error
}

func (r *WithdrawalRepository) ListByUser(userID uint, limit int) ([]models.Withdrawal, error) {
	var ws []models.Withdrawal
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&ws).Error
	return ws, err
}

func (r *WithdrawalRepository) ListPending(limit int) ([]models.Withdrawal, error) {
	var ws []models.Withdrawal
	err := r.db.Where("status = ?", domain.WithdrawalStatusPending).
		Order("created_at").Limit(limit).Find(&ws).Error
	return ws, err
}

// UserByWalletAddress resolves a historical withdrawal wallet to its user.
// Used by the collector scanner as the fallback after wallet links.
func (r *WithdrawalRepository) UserByWalletAddress(address string) (uint, error) {
	var w models.Withdrawal
	err := r.db.Where("wallet_address = ?", address).Order("created_at DESC").First(&w).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.UserID, nil
}
