package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"
	"camly/pkg/chain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testWallet   = "0x1111111111111111111111111111111111111111"
	testToken    = "0x2222222222222222222222222222222222222222"
	testTreasury = "0x3333333333333333333333333333333333333333"
)

func testChainConfig() *config.ChainConfig {
	cfg := config.Load().Chain
	cfg.TokenAddress = testToken
	cfg.TreasuryAddress = testTreasury
	cfg.TokenDecimals = 18
	return &cfg
}

func newWithdrawalService(t *testing.T, db *gorm.DB, stub *chain.StubClient) *WithdrawalService {
	t.Helper()
	return NewWithdrawalService(
		db,
		repository.NewLedgerRepository(db),
		repository.NewWithdrawalRepository(db),
		repository.NewFraudRepository(db),
		stub,
		testChainConfig(),
		testPolicy(),
	)
}

func TestRequestWithdrawalDebitsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newWithdrawalService(t, db, chain.NewStubClient())
	u := seedUser(t, db, "holder", domain.RoleUser)
	seedBalance(t, db, u.ID, 5000)

	w, err := svc.RequestWithdrawal(u.ID, testWallet, 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
	assert.NotEmpty(t, w.OrderID)

	b, err := repository.NewLedgerRepository(db).GetOrCreate(u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), b.Balance)
}

func TestRequestWithdrawalValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newWithdrawalService(t, db, chain.NewStubClient())
	u := seedUser(t, db, "holder", domain.RoleUser)
	seedBalance(t, db, u.ID, 5000)

	_, err := svc.RequestWithdrawal(u.ID, "not-an-address", 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = svc.RequestWithdrawal(u.ID, testWallet, 10)
	assert.ErrorIs(t, err, domain.ErrAmountTooSmall)

	_, err = svc.RequestWithdrawal(u.ID, testWallet, 10000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	suspendUser(t, db, u.ID)
	_, err = svc.RequestWithdrawal(u.ID, testWallet, 1000)
	assert.ErrorIs(t, err, domain.ErrSuspended)
}

func TestProcessWithdrawalSuccess(t *testing.T) {
	db := newTestDB(t)
	stub := chain.NewStubClient()
	stub.TreasuryBalance = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	svc := newWithdrawalService(t, db, stub)
	admin := seedUser(t, db, "admin", domain.RoleAdmin)
	u := seedUser(t, db, "holder", domain.RoleUser)
	seedBalance(t, db, u.ID, 5000)

	w, err := svc.RequestWithdrawal(u.ID, testWallet, 1000)
	require.NoError(t, err)

	txHash, err := svc.ProcessWithdrawal(context.Background(), w.ID, admin.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)
	assert.Equal(t, 1, stub.SentCount())

	var reloaded models.Withdrawal
	require.NoError(t, db.First(&reloaded, w.ID).Error)
	assert.Equal(t, domain.WithdrawalStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.TxHash)
	assert.Equal(t, txHash, *reloaded.TxHash)
	assert.NotNil(t, reloaded.ProcessedAt)
	assert.Equal(t, admin.ID, reloaded.ProcessedBy)

	// Balance was debited at request time only.
	b, _ := repository.NewLedgerRepository(db).GetOrCreate(u.ID)
	assert.Equal(t, int64(4000), b.Balance)

	// Reprocessing a completed withdrawal is rejected.
	_, err = svc.ProcessWithdrawal(context.Background(), w.ID, admin.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestProcessWithdrawalRetryCeiling(t *testing.T) {
	db := newTestDB(t)
	stub := chain.NewStubClient()
	stub.TreasuryBalance = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	rpcDown := errors.New("rpc timeout")
	stub.TransferErrs = []error{rpcDown, rpcDown, rpcDown}
	svc := newWithdrawalService(t, db, stub)
	admin := seedUser(t, db, "admin", domain.RoleAdmin)
	u := seedUser(t, db, "holder", domain.RoleUser)
	seedBalance(t, db, u.ID, 5000)

	w, err := svc.RequestWithdrawal(u.ID, testWallet, 1000)
	require.NoError(t, err)

	for attempt := 1; attempt <= 2; attempt++ {
		_, err = svc.ProcessWithdrawal(context.Background(), w.ID, admin.ID)
		require.Error(t, err)
		var reloaded models.Withdrawal
		require.NoError(t, db.First(&reloaded, w.ID).Error)
		assert.Equal(t, domain.WithdrawalStatusPending, reloaded.Status)
		assert.Equal(t, attempt, reloaded.RetryCount)
	}

	_, err = svc.ProcessWithdrawal(context.Background(), w.ID, admin.ID)
	require.ErrorIs(t, err, domain.ErrRetryExhausted)
	var final models.Withdrawal
	require.NoError(t, db.First(&final, w.ID).Error)
	assert.Equal(t, domain.WithdrawalStatusFailed, final.Status)
	assert.Equal(t, 3, final.RetryCount)
	assert.Zero(t, stub.SentCount())

	// The ledger saw exactly one debit across all attempts.
	b, _ := repository.NewLedgerRepository(db).GetOrCreate(u.ID)
	assert.Equal(t, int64(4000), b.Balance)
	var debits int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", u.ID, domain.TxTypeWithdrawal).Count(&debits).Error)
	assert.Equal(t, int64(1), debits)
}

func TestProcessWithdrawalTreasuryShortfallIsTerminal(t *testing.T) {
	db := newTestDB(t)
	stub := chain.NewStubClient()
	stub.TreasuryBalance = big.NewInt(1) // far below 1000 tokens
	svc := newWithdrawalService(t, db, stub)
	admin := seedUser(t, db, "admin", domain.RoleAdmin)
	u := seedUser(t, db, "holder", domain.RoleUser)
	seedBalance(t, db, u.ID, 5000)

	w, err := svc.RequestWithdrawal(u.ID, testWallet, 1000)
	require.NoError(t, err)

	_, err = svc.ProcessWithdrawal(context.Background(), w.ID, admin.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientTreasury)

	var reloaded models.Withdrawal
	require.NoError(t, db.First(&reloaded, w.ID).Error)
	assert.Equal(t, domain.WithdrawalStatusFailed, reloaded.Status)
	assert.Zero(t, stub.SentCount())
}
