package chain

import (
	"context"
	"math/big"
)

// TokenTransfer is a decoded ERC-20 Transfer event.
type TokenTransfer struct {
	Token  string
	From   string
	To     string
	Amount *big.Int
	TxHash string
}

// Client is the on-chain dependency of the withdrawal processor, the mint
// settlement step and the collector scanner. Amounts are raw token units; the
// token's decimal precision is the caller's concern.
type Client interface {
	// TokenDecimals returns the token contract's decimals() value.
	TokenDecimals(ctx context.Context, token string) (int32, error)
	// BalanceOf returns the owner's token balance in raw units.
	BalanceOf(ctx context.Context, token, owner string) (*big.Int, error)
	// Transfer submits a treasury token transfer and returns the tx hash.
	Transfer(ctx context.Context, token, to string, amount *big.Int) (string, error)
	// TransfersTo returns decoded Transfer events into recipient for a token contract.
	TransfersTo(ctx context.Context, token, recipient string) ([]TokenTransfer, error)
}
