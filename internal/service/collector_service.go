package service

import (
	"context"
	"log"
	"math/big"
	"sort"
	"strings"
	"time"

	"camly/config"
	"camly/internal/repository"
	"camly/pkg/chain"

	"github.com/shopspring/decimal"
)

// CollectorDeposit is one on-chain transfer into the collector address,
// attributed to a ledger user where a wallet mapping exists.
type CollectorDeposit struct {
	Token      string          `json:"token"`
	TxHash     string          `json:"tx_hash"`
	FromWallet string          `json:"from_wallet"`
	UserID     uint            `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// CollectorUserSummary is the reconciliation view for one matched user:
// what they deposited per token, next to their current ledger standing.
type CollectorUserSummary struct {
	Deposited map[string]string `json:"deposited"` // token -> amount
	Balance   int64             `json:"balance"`
	Reserved  int64             `json:"reserved"`
	Suspended bool              `json:"suspended"`
}

// CollectorReport aggregates everything the scan observed. The scan is
// read-only; it never writes ledger entries.
type CollectorReport struct {
	Collector  string                        `json:"collector"`
	Deposits   []CollectorDeposit            `json:"deposits"`
	TotalUnits map[string]string             `json:"total_units"`
	Users      map[uint]CollectorUserSummary `json:"users"`
	Unmatched  int                           `json:"unmatched"`
	TokenCount int                           `json:"token_count"`
	EventCount int                           `json:"event_count"`
}

// CollectorService scans token transfers into the collector wallet and maps
// the sending addresses back to ledger users.
type CollectorService struct {
	client      chain.Client
	wallets     *repository.WalletLinkRepository
	withdrawals *repository.WithdrawalRepository
	ledger      *repository.LedgerRepository
	fraud       *repository.FraudRepository
	cfg         *config.ChainConfig
}

func NewCollectorService(
	client chain.Client,
	wallets *repository.WalletLinkRepository,
	withdrawals *repository.WithdrawalRepository,
	ledger *repository.LedgerRepository,
	fraud *repository.FraudRepository,
	cfg *config.ChainConfig,
) *CollectorService {
	return &CollectorService{
		client:      client,
		wallets:     wallets,
		withdrawals: withdrawals,
		ledger:      ledger,
		fraud:       fraud,
		cfg:         cfg,
	}
}

// Scan fetches Transfer events into the collector address for every
// configured token and resolves senders to users. Resolution tries the
// explicit wallet link first, then falls back to withdrawal history.
func (s *CollectorService) Scan(ctx context.Context) (*CollectorReport, error) {
	tokens := s.cfg.ScanTokens
	if len(tokens) == 0 && s.cfg.TokenAddress != "" {
		tokens = []string{s.cfg.TokenAddress}
	}

	report := &CollectorReport{
		Collector:  s.cfg.CollectorAddress,
		TotalUnits: map[string]string{},
		Users:      map[uint]CollectorUserSummary{},
		TokenCount: len(tokens),
	}
	userTotals := map[uint]map[string]decimal.Decimal{}

	for _, token := range tokens {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		transfers, err := s.client.TransfersTo(callCtx, token, s.cfg.CollectorAddress)
		cancel()
		if err != nil {
			return nil, err
		}

		decimals, err := s.tokenDecimals(ctx, token)
		if err != nil {
			return nil, err
		}

		tokenTotal := big.NewInt(0)
		for _, t := range transfers {
			tokenTotal.Add(tokenTotal, t.Amount)
			amount := decimal.NewFromBigInt(t.Amount, 0).Shift(-decimals)
			dep := CollectorDeposit{
				Token:      token,
				TxHash:     t.TxHash,
				FromWallet: strings.ToLower(t.From),
				Amount:     amount,
			}
			userID, err := s.resolveSender(dep.FromWallet)
			if err != nil {
				return nil, err
			}
			if userID == 0 {
				report.Unmatched++
			} else {
				dep.UserID = userID
				if userTotals[userID] == nil {
					userTotals[userID] = map[string]decimal.Decimal{}
				}
				key := strings.ToLower(token)
				userTotals[userID][key] = userTotals[userID][key].Add(amount)
			}
			report.Deposits = append(report.Deposits, dep)
		}
		report.EventCount += len(transfers)
		report.TotalUnits[strings.ToLower(token)] = tokenTotal.String()
	}

	now := time.Now()
	for userID, totals := range userTotals {
		summary := CollectorUserSummary{Deposited: map[string]string{}}
		for token, total := range totals {
			summary.Deposited[token] = total.String()
		}
		b, err := s.ledger.GetOrCreate(userID)
		if err != nil {
			return nil, err
		}
		summary.Balance = b.Balance
		summary.Reserved = b.Reserved
		susp, err := s.fraud.ActiveSuspension(userID, now)
		if err != nil {
			return nil, err
		}
		summary.Suspended = susp != nil
		report.Users[userID] = summary
	}
	sort.Slice(report.Deposits, func(i, j int) bool {
		return report.Deposits[i].TxHash < report.Deposits[j].TxHash
	})
	log.Printf("[Collector] scanned %d tokens, %d events, %d unmatched senders",
		report.TokenCount, report.EventCount, report.Unmatched)
	return report, nil
}

func (s *CollectorService) tokenDecimals(ctx context.Context, token string) (int32, error) {
	if s.cfg.TokenDecimals > 0 && strings.EqualFold(token, s.cfg.TokenAddress) {
		return s.cfg.TokenDecimals, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.client.TokenDecimals(callCtx, token)
}

func (s *CollectorService) resolveSender(address string) (uint, error) {
	userID, err := s.wallets.UserByAddress(address)
	if err != nil {
		return 0, err
	}
	if userID != 0 {
		return userID, nil
	}
	return s.withdrawals.UserByWalletAddress(address)
}
