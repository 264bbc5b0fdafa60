package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"
	"camly/pkg/chain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// WithdrawalService moves ledger balance to an on-chain token transfer. The
// ledger is debited once at request time; processing retries never touch it.
type WithdrawalService struct {
	db          *gorm.DB
	ledger      *repository.LedgerRepository
	withdrawals *repository.WithdrawalRepository
	fraud       *repository.FraudRepository
	client      chain.Client
	chainCfg    *config.ChainConfig
	policy      *config.PolicyConfig
}

func NewWithdrawalService(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	withdrawals *repository.WithdrawalRepository,
	fraud *repository.FraudRepository,
	client chain.Client,
	chainCfg *config.ChainConfig,
	policy *config.PolicyConfig,
) *WithdrawalService {
	return &WithdrawalService{
		db:          db,
		ledger:      ledger,
		withdrawals: withdrawals,
		fraud:       fraud,
		client:      client,
		chainCfg:    chainCfg,
		policy:      policy,
	}
}

// RequestWithdrawal debits the user's balance and queues a pending withdrawal.
func (s *WithdrawalService) RequestWithdrawal(userID uint, walletAddress string, amount int64) (*models.Withdrawal, error) {
	if !addressRe.MatchString(walletAddress) {
		return nil, domain.ErrInvalidAddress
	}
	if amount < s.policy.MinWithdrawal {
		return nil, fmt.Errorf("%w: minimum is %d", domain.ErrAmountTooSmall, s.policy.MinWithdrawal)
	}
	if susp, err := s.fraud.ActiveSuspension(userID, time.Now()); err != nil {
		return nil, err
	} else if susp != nil {
		return nil, domain.ErrSuspended
	}

	w := &models.Withdrawal{
		UserID:        userID,
		OrderID:       fmt.Sprintf("wd-%s", uuid.New().String()),
		WalletAddress: walletAddress,
		Amount:        amount,
		Status:        domain.WithdrawalStatusPending,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.DebitTx(tx, userID, amount, domain.TxTypeWithdrawal,
			fmt.Sprintf("withdrawal to %s", walletAddress),
			fmt.Sprintf(`{"order_id":%q}`, w.OrderID)); err != nil {
			return err
		}
		return s.withdrawals.CreateTx(tx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ProcessWithdrawal attempts on-chain settlement. Transient RPC failures send
// the withdrawal back to pending up to the retry ceiling; treasury shortfall
// and bad addresses fail terminally and need an operator.
func (s *WithdrawalService) ProcessWithdrawal(ctx context.Context, withdrawalID, adminID uint) (string, error) {
	w, err := s.withdrawals.GetByID(withdrawalID)
	if err != nil {
		return "", domain.ErrNotFound
	}
	if w.Status != domain.WithdrawalStatusPending && w.Status != domain.WithdrawalStatusProcessing {
		return "", fmt.Errorf("%w: withdrawal is %s", domain.ErrInvalidState, w.Status)
	}
	w.Status = domain.WithdrawalStatusProcessing
	w.ProcessedBy = adminID
	if err := s.withdrawals.Update(w); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.chainCfg.CallTimeout)
	defer cancel()

	if !addressRe.MatchString(w.WalletAddress) {
		return "", s.failTerminal(w, domain.ErrInvalidAddress)
	}

	units, err := s.tokenUnits(ctx, w.Amount)
	if err != nil {
		return "", s.failTransient(w, err)
	}
	treasury, err := s.client.BalanceOf(ctx, s.chainCfg.TokenAddress, s.chainCfg.TreasuryAddress)
	if err != nil {
		return "", s.failTransient(w, err)
	}
	if treasury.Cmp(units.BigInt()) < 0 {
		return "", s.failTerminal(w, domain.ErrInsufficientTreasury)
	}

	txHash, err := s.client.Transfer(ctx, s.chainCfg.TokenAddress, w.WalletAddress, units.BigInt())
	if err != nil {
		return "", s.failTransient(w, err)
	}

	now := time.Now()
	w.Status = domain.WithdrawalStatusCompleted
	w.TxHash = &txHash
	w.ProcessedAt = &now
	w.ErrorMessage = ""
	if err := s.withdrawals.Update(w); err != nil {
		return "", err
	}
	log.Printf("[Withdrawal] %s completed, tx %s", w.OrderID, txHash)
	return txHash, nil
}

// tokenUnits converts internal coins to raw token units at the token's actual
// decimal precision; never assume 18.
func (s *WithdrawalService) tokenUnits(ctx context.Context, amount int64) (decimal.Decimal, error) {
	decimals := s.chainCfg.TokenDecimals
	if decimals == 0 {
		d, err := s.client.TokenDecimals(ctx, s.chainCfg.TokenAddress)
		if err != nil {
			return decimal.Zero, fmt.Errorf("token decimals: %w", err)
		}
		decimals = d
	}
	return decimal.NewFromInt(amount).Shift(decimals), nil
}

func (s *WithdrawalService) failTerminal(w *models.Withdrawal, cause error) error {
	w.Status = domain.WithdrawalStatusFailed
	w.ErrorMessage = cause.Error()
	if err := s.withdrawals.Update(w); err != nil {
		return err
	}
	log.Printf("[Withdrawal] %s terminally failed: %v", w.OrderID, cause)
	return cause
}

func (s *WithdrawalService) failTransient(w *models.Withdrawal, cause error) error {
	w.RetryCount++
	w.ErrorMessage = cause.Error()
	if w.RetryCount >= s.policy.WithdrawRetryMax {
		w.Status = domain.WithdrawalStatusFailed
	} else {
		w.Status = domain.WithdrawalStatusPending
	}
	if err := s.withdrawals.Update(w); err != nil {
		return err
	}
	if w.Status == domain.WithdrawalStatusFailed {
		log.Printf("[Withdrawal] %s failed after %d attempts: %v", w.OrderID, w.RetryCount, cause)
		return fmt.Errorf("%w: %v", domain.ErrRetryExhausted, cause)
	}
	log.Printf("[Withdrawal] %s attempt %d failed, will retry: %v", w.OrderID, w.RetryCount, cause)
	return cause
}
