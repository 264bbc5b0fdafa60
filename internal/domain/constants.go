package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	TxTypeGiftSent     = "GIFT_SENT"
	TxTypeGiftReceived = "GIFT_RECEIVED"
	TxTypeReward       = "REWARD"
	TxTypeWithdrawal   = "WITHDRAWAL"
	TxTypeAdjustment   = "ADJUSTMENT"
)

const (
	TxStatusSettled = "SETTLED"
	TxStatusPending = "PENDING"
	TxStatusFrozen  = "FROZEN"
	TxStatusVoid    = "VOID"
)

const (
	WithdrawalStatusPending    = "PENDING"
	WithdrawalStatusProcessing = "PROCESSING"
	WithdrawalStatusCompleted  = "COMPLETED"
	WithdrawalStatusFailed     = "FAILED"
)

const (
	ActionStatusPending  = "PENDING"
	ActionStatusScored   = "SCORED"
	ActionStatusMinted   = "MINTED"
	ActionStatusRejected = "REJECTED"
)

const (
	DecisionPass = "PASS"
	DecisionFail = "FAIL"
)

const (
	MintStatusPending  = "PENDING"
	MintStatusApproved = "APPROVED"
	MintStatusSigned   = "SIGNED"
	MintStatusMinted   = "MINTED"
	MintStatusRejected = "REJECTED"
	MintStatusExpired  = "EXPIRED"
)

const (
	SignalSybil     = "SYBIL"
	SignalBot       = "BOT"
	SignalSpam      = "SPAM"
	SignalCollusion = "COLLUSION"
	SignalAudit     = "AUDIT"
)

const (
	GiftContextPost    = "post"
	GiftContextProfile = "profile"
	GiftContextProject = "project"
)

const (
	WalletSourceRegistered = "REGISTERED"
	WalletSourceWithdrawal = "WITHDRAWAL"
)

// SuspensionReasonAuto marks suspensions created by the fraud containment path.
const SuspensionReasonAuto = "AUTO_SUSPENDED"
