package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
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

const testCollector = "0x4444444444444444444444444444444444444444"

func newCollectorService(t *testing.T, db *gorm.DB, stub *chain.StubClient, cfg *config.ChainConfig) *CollectorService {
	t.Helper()
	cfg.CollectorAddress = testCollector
	return NewCollectorService(
		stub,
		repository.NewWalletLinkRepository(db),
		repository.NewWithdrawalRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewFraudRepository(db),
		cfg,
	)
}

func units(whole int64, decimals int) *big.Int {
	n := big.NewInt(whole)
	return n.Mul(n, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func TestScanAttributesDepositsBySender(t *testing.T) {
	db := newTestDB(t)
	linked := seedUser(t, db, "linked", domain.RoleUser)
	historic := seedUser(t, db, "historic", domain.RoleUser)
	seedBalance(t, db, linked.ID, 700)
	suspendUser(t, db, historic.ID)

	wallets := repository.NewWalletLinkRepository(db)
	require.NoError(t, wallets.Upsert(&models.WalletLink{
		UserID: linked.ID, Address: testWallet, Source: domain.WalletSourceRegistered,
	}))
	// No wallet link, only a past withdrawal to this address.
	historicWallet := "0x5555555555555555555555555555555555555555"
	require.NoError(t, db.Create(&models.Withdrawal{
		UserID: historic.ID, OrderID: "wd-hist-1", WalletAddress: historicWallet,
		Amount: 1000, Status: domain.WithdrawalStatusCompleted,
	}).Error)

	stub := chain.NewStubClient()
	stub.Transfers = []chain.TokenTransfer{
		{Token: testToken, From: testWallet, To: testCollector, Amount: units(2, 18), TxHash: "0xaa"},
		{Token: testToken, From: historicWallet, To: testCollector, Amount: big.NewInt(5e17), TxHash: "0xbb"},
		{Token: testToken, From: "0x6666666666666666666666666666666666666666", To: testCollector, Amount: units(1, 18), TxHash: "0xcc"},
	}
	svc := newCollectorService(t, db, stub, testChainConfig())

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testCollector, report.Collector)
	assert.Equal(t, 1, report.TokenCount)
	assert.Equal(t, 3, report.EventCount)
	assert.Equal(t, 1, report.Unmatched)

	require.Len(t, report.Deposits, 3)
	// Deposits come back ordered by tx hash.
	assert.Equal(t, "0xaa", report.Deposits[0].TxHash)
	assert.Equal(t, linked.ID, report.Deposits[0].UserID)
	assert.Equal(t, "2", report.Deposits[0].Amount.String())
	assert.Equal(t, historic.ID, report.Deposits[1].UserID)
	assert.Equal(t, "0.5", report.Deposits[1].Amount.String())
	assert.Zero(t, report.Deposits[2].UserID)

	tokenKey := strings.ToLower(testToken)
	assert.Equal(t, "2", report.Users[linked.ID].Deposited[tokenKey])
	assert.Equal(t, int64(700), report.Users[linked.ID].Balance)
	assert.False(t, report.Users[linked.ID].Suspended)
	assert.Equal(t, "0.5", report.Users[historic.ID].Deposited[tokenKey])
	assert.Zero(t, report.Users[historic.ID].Balance)
	assert.True(t, report.Users[historic.ID].Suspended)
	assert.Equal(t, "3500000000000000000", report.TotalUnits[tokenKey])
}

func TestScanMultiTokenResolvesDecimalsPerToken(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "depositor", domain.RoleUser)
	require.NoError(t, repository.NewWalletLinkRepository(db).Upsert(&models.WalletLink{
		UserID: u.ID, Address: testWallet, Source: domain.WalletSourceRegistered,
	}))

	altToken := "0x7777777777777777777777777777777777777777"
	stub := chain.NewStubClient()
	stub.Decimals = 6 // client-reported decimals for tokens without a config override
	stub.Transfers = []chain.TokenTransfer{
		{Token: testToken, From: testWallet, To: testCollector, Amount: units(3, 18), TxHash: "0x01"},
		{Token: altToken, From: testWallet, To: testCollector, Amount: big.NewInt(1_500_000), TxHash: "0x02"},
	}

	cfg := testChainConfig()
	cfg.ScanTokens = []string{testToken, altToken}
	svc := newCollectorService(t, db, stub, cfg)

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TokenCount)
	assert.Equal(t, 2, report.EventCount)
	assert.Zero(t, report.Unmatched)
	assert.Equal(t, "3", report.Users[u.ID].Deposited[strings.ToLower(testToken)])
	assert.Equal(t, "1.5", report.Users[u.ID].Deposited[altToken])
	assert.Equal(t, "3000000000000000000", report.TotalUnits[strings.ToLower(testToken)])
	assert.Equal(t, "1500000", report.TotalUnits[altToken])
}

func TestScanWithoutConfiguredTokensIsEmpty(t *testing.T) {
	db := newTestDB(t)
	cfg := testChainConfig()
	cfg.TokenAddress = ""
	cfg.ScanTokens = nil
	svc := newCollectorService(t, db, chain.NewStubClient(), cfg)

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TokenCount)
	assert.Zero(t, report.EventCount)
	assert.Empty(t, report.Deposits)
}

func TestScanPropagatesChainErrors(t *testing.T) {
	db := newTestDB(t)
	stub := chain.NewStubClient()
	stub.LogsErr = errors.New("rpc unavailable")
	svc := newCollectorService(t, db, stub, testChainConfig())

	_, err := svc.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc unavailable")
}
