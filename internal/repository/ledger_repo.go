package repository

import (
	"time"

	"camly/internal/domain"
	"camly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository owns balances and the append-only transaction log. Every
// balance mutation happens here, paired with its log write, inside the caller's
// database transaction.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) DB() *gorm.DB { return r.db }

func (r *LedgerRepository) GetOrCreate(userID uint) (*models.Balance, error) {
	var b models.Balance
	err := r.db.Where("user_id = ?", userID).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	b = models.Balance{UserID: userID}
	if err := r.db.Create(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// lockBalance reads the balance row under FOR UPDATE within tx, creating it if
// missing. SQLite (tests) serializes writers on its own and rejects the clause.
func (r *LedgerRepository) lockBalance(tx *gorm.DB, userID uint) (*models.Balance, error) {
	q := tx.Where("user_id = ?", userID)
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var b models.Balance
	err := q.First(&b).Error
	if err == gorm.ErrRecordNotFound {
		b = models.Balance{UserID: userID}
		if err := tx.Create(&b).Error; err != nil {
			return nil, err
		}
		return &b, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *LedgerRepository) saveBalance(tx *gorm.DB, b *models.Balance) error {
	return tx.Model(&models.Balance{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"balance":         b.Balance,
		"lifetime_earned": b.LifetimeEarned,
		"lifetime_spent":  b.LifetimeSpent,
		"reserved":        b.Reserved,
		"updated_at":      time.Now(),
	}).Error
}

// CreditTx credits userID inside tx and appends the paired log entry.
func (r *LedgerRepository) CreditTx(tx *gorm.DB, userID uint, amount int64, txType, status, description, metadata string) (*models.Transaction, error) {
	b, err := r.lockBalance(tx, userID)
	if err != nil {
		return nil, err
	}
	b.Balance += amount
	b.LifetimeEarned += amount
	if err := r.saveBalance(tx, b); err != nil {
		return nil, err
	}
	entry := &models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Status:      status,
		Description: description,
		Metadata:    metadata,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx debits userID inside tx, failing with ErrInsufficientBalance before
// any write when funds are short.
func (r *LedgerRepository) DebitTx(tx *gorm.DB, userID uint, amount int64, txType, description, metadata string) (*models.Transaction, error) {
	b, err := r.lockBalance(tx, userID)
	if err != nil {
		return nil, err
	}
	if b.Balance < amount {
		return nil, domain.ErrInsufficientBalance
	}
	b.Balance -= amount
	b.LifetimeSpent += amount
	if err := r.saveBalance(tx, b); err != nil {
		return nil, err
	}
	entry := &models.Transaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        txType,
		Status:      domain.TxStatusSettled,
		Description: description,
		Metadata:    metadata,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// TransferTx applies the debit and credit sides of a gift in one unit, locking
// balance rows in ascending user ID order to avoid deadlocks.
func (r *LedgerRepository) TransferTx(tx *gorm.DB, senderID, receiverID uint, amount int64, sendDesc, recvDesc, metadata string) error {
	first, second := senderID, receiverID
	if first > second {
		first, second = second, first
	}
	if _, err := r.lockBalance(tx, first); err != nil {
		return err
	}
	if _, err := r.lockBalance(tx, second); err != nil {
		return err
	}
	if _, err := r.DebitTx(tx, senderID, amount, domain.TxTypeGiftSent, sendDesc, metadata); err != nil {
		return err
	}
	if _, err := r.CreditTx(tx, receiverID, amount, domain.TxTypeGiftReceived, domain.TxStatusSettled, recvDesc, metadata); err != nil {
		return err
	}
	return nil
}

// FreezeRewardTx moves a pending reward credit out of spendable balance into
// the reserved bucket until frozenUntil.
func (r *LedgerRepository) FreezeRewardTx(tx *gorm.DB, entry *models.Transaction, frozenUntil time.Time) error {
	if entry.Status != domain.TxStatusPending {
		return domain.ErrInvalidState
	}
	b, err := r.lockBalance(tx, entry.UserID)
	if err != nil {
		return err
	}
	if b.Balance < entry.Amount {
		return domain.ErrInsufficientBalance
	}
	b.Balance -= entry.Amount
	b.Reserved += entry.Amount
	if err := r.saveBalance(tx, b); err != nil {
		return err
	}
	return tx.Model(&models.Transaction{}).Where("id = ? AND status = ?", entry.ID, domain.TxStatusPending).
		Updates(map[string]interface{}{"status": domain.TxStatusFrozen, "frozen_until": frozenUntil}).Error
}

// ReleaseFrozenTx returns a frozen reward to spendable balance.
func (r *LedgerRepository) ReleaseFrozenTx(tx *gorm.DB, entry *models.Transaction) error {
	if entry.Status != domain.TxStatusFrozen {
		return domain.ErrInvalidState
	}
	b, err := r.lockBalance(tx, entry.UserID)
	if err != nil {
		return err
	}
	b.Reserved -= entry.Amount
	b.Balance += entry.Amount
	if err := r.saveBalance(tx, b); err != nil {
		return err
	}
	return tx.Model(&models.Transaction{}).Where("id = ? AND status = ?", entry.ID, domain.TxStatusFrozen).
		Update("status", domain.TxStatusSettled).Error
}

// VoidFrozenTx permanently revokes a frozen reward (actor was suspended).
func (r *LedgerRepository) VoidFrozenTx(tx *gorm.DB, entry *models.Transaction) error {
	if entry.Status != domain.TxStatusFrozen {
		return domain.ErrInvalidState
	}
	b, err := r.lockBalance(tx, entry.UserID)
	if err != nil {
		return err
	}
	b.Reserved -= entry.Amount
	b.LifetimeEarned -= entry.Amount
	if err := r.saveBalance(tx, b); err != nil {
		return err
	}
	return tx.Model(&models.Transaction{}).Where("id = ? AND status = ?", entry.ID, domain.TxStatusFrozen).
		Update("status", domain.TxStatusVoid).Error
}

// SettlePendingTx marks a pending reward credit as settled (status only; the
// balance was credited when the reward was granted).
func (r *LedgerRepository) SettlePendingTx(tx *gorm.DB, entryID uint) error {
	return tx.Model(&models.Transaction{}).Where("id = ? AND status = ?", entryID, domain.TxStatusPending).
		Update("status", domain.TxStatusSettled).Error
}

func (r *LedgerRepository) ListTransactions(userID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&txs).Error
	return txs, err
}

// PendingRewards returns reward credits still awaiting release for an actor.
func (r *LedgerRepository) PendingRewards(userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ? AND type = ? AND status = ?", userID, domain.TxTypeReward, domain.TxStatusPending).
		Find(&txs).Error
	return txs, err
}

// ReleasableRewards returns reward credits due for the release sweep: pending
// ones older than holdBefore and frozen ones whose freeze window has expired.
func (r *LedgerRepository) ReleasableRewards(holdBefore, now time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("type = ? AND ((status = ? AND created_at <= ?) OR (status = ? AND frozen_until <= ?))",
		domain.TxTypeReward, domain.TxStatusPending, holdBefore, domain.TxStatusFrozen, now).
		Order("id").Find(&txs).Error
	return txs, err
}

// RecomputeBalance re-derives a balance from the transaction log for audits.
// VOID rows are excluded; FROZEN credits count into reserved.
func (r *LedgerRepository) RecomputeBalance(userID uint) (*models.Balance, error) {
	var txs []models.Transaction
	if err := r.db.Where("user_id = ?", userID).Find(&txs).Error; err != nil {
		return nil, err
	}
	out := &models.Balance{UserID: userID}
	for _, t := range txs {
		switch t.Status {
		case domain.TxStatusVoid:
			continue
		case domain.TxStatusFrozen:
			out.LifetimeEarned += t.Amount
			out.Reserved += t.Amount
		default:
			if t.Amount >= 0 {
				out.LifetimeEarned += t.Amount
				out.Balance += t.Amount
			} else {
				out.LifetimeSpent += -t.Amount
				out.Balance += t.Amount
			}
		}
	}
	return out, nil
}

// SumBalances returns the total of all spendable and reserved coins.
func (r *LedgerRepository) SumBalances() (int64, error) {
	var total struct{ Total int64 }
	err := r.db.Model(&models.Balance{}).Select("COALESCE(SUM(balance + reserved), 0) AS total").Scan(&total).Error
	return total.Total, err
}
