package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// StubClient is an in-memory client for development and tests. Errors can be
// injected per method to exercise retry paths.
type StubClient struct {
	mu sync.Mutex

	Decimals        int32
	TreasuryBalance *big.Int
	Transfers       []TokenTransfer

	DecimalsErr error
	BalanceErr  error
	TransferErr error
	LogsErr     error

	// TransferErrs is consumed one per Transfer call before TransferErr applies.
	TransferErrs []error

	sent int
}

func NewStubClient() *StubClient {
	return &StubClient{Decimals: 18, TreasuryBalance: big.NewInt(0)}
}

func (s *StubClient) TokenDecimals(ctx context.Context, token string) (int32, error) {
	if s.DecimalsErr != nil {
		return 0, s.DecimalsErr
	}
	return s.Decimals, nil
}

func (s *StubClient) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	if s.BalanceErr != nil {
		return nil, s.BalanceErr
	}
	return new(big.Int).Set(s.TreasuryBalance), nil
}

func (s *StubClient) Transfer(ctx context.Context, token, to string, amount *big.Int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.TransferErrs) > 0 {
		err := s.TransferErrs[0]
		s.TransferErrs = s.TransferErrs[1:]
		if err != nil {
			return "", err
		}
	} else if s.TransferErr != nil {
		return "", s.TransferErr
	}
	s.sent++
	return fmt.Sprintf("0xstub%064d", s.sent), nil
}

func (s *StubClient) TransfersTo(ctx context.Context, token, recipient string) ([]TokenTransfer, error) {
	if s.LogsErr != nil {
		return nil, s.LogsErr
	}
	var out []TokenTransfer
	for _, t := range s.Transfers {
		if t.Token == token && t.To == recipient {
			out = append(out, t)
		}
	}
	return out, nil
}

// SentCount returns how many transfers the stub accepted.
func (s *StubClient) SentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}
