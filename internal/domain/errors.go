package domain

import "errors"

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientTreasury = errors.New("insufficient treasury token balance")
	ErrSuspended            = errors.New("account is suspended")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrAmountTooSmall       = errors.New("amount below minimum")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDailyCapReached      = errors.New("daily transfer cap reached")
	ErrDuplicateRequest     = errors.New("duplicate request")
	ErrInvalidState         = errors.New("invalid state for this operation")
	ErrInvalidAddress       = errors.New("invalid wallet address")
	ErrNotScored            = errors.New("action has not been scored")
	ErrScoreFailed          = errors.New("action did not pass scoring")
	ErrRetryExhausted       = errors.New("retry ceiling reached")
	ErrNotFound             = errors.New("record not found")
)
