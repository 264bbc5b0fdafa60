package service

import (
	"fmt"
	"testing"
	"time"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Balance{}, &models.Transaction{}, &models.Gift{},
		&models.Withdrawal{}, &models.PPLPAction{}, &models.PPLPScore{},
		&models.MintRequest{}, &models.FraudSignal{}, &models.Suspension{},
		&models.WalletLink{},
	))
	return db
}

// testPolicy returns the default policy with the batch limiter effectively
// disabled so tests never sleep.
func testPolicy() *config.PolicyConfig {
	p := config.Load().Policy
	p.BatchRatePerSec = 10000
	return &p
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@test.local", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedBalance(t *testing.T, db *gorm.DB, userID uint, amount int64) {
	t.Helper()
	ledger := repository.NewLedgerRepository(db)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.CreditTx(tx, userID, amount, domain.TxTypeAdjustment, domain.TxStatusSettled, "seed", "{}")
		return err
	}))
}

func suspendUser(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Suspension{
		UserID: userID, Reason: domain.SuspensionReasonAuto, RiskScore: 80,
	}).Error)
}

func backdate(t *testing.T, db *gorm.DB, model interface{}, id uint, column string, to time.Time) {
	t.Helper()
	require.NoError(t, db.Model(model).Where("id = ?", id).Update(column, to).Error)
}
