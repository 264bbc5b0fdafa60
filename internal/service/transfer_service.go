package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferService mediates peer-to-peer coin gifts. Both ledger sides and the
// gift record commit in a single database transaction; a crash can never leave
// a half-applied transfer.
type TransferService struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	gifts    *repository.GiftRepository
	users    *repository.UserRepository
	fraud    *repository.FraudRepository
	notifier Notifier
	policy   *config.PolicyConfig
}

func NewTransferService(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	gifts *repository.GiftRepository,
	users *repository.UserRepository,
	fraud *repository.FraudRepository,
	notifier Notifier,
	policy *config.PolicyConfig,
) *TransferService {
	return &TransferService{
		db:       db,
		ledger:   ledger,
		gifts:    gifts,
		users:    users,
		fraud:    fraud,
		notifier: notifier,
		policy:   policy,
	}
}

// Transfer moves amount from sender to receiver and returns the gift ID.
// A same-day duplicate of the same logical transfer returns the earlier gift's
// ID as a success-no-op so client retries stay safe.
func (s *TransferService) Transfer(senderID, receiverID uint, amount int64, message, giftType, contextType, contextID string) (uint, error) {
	if amount < s.policy.MinGiftAmount {
		return 0, fmt.Errorf("%w: minimum is %d", domain.ErrAmountTooSmall, s.policy.MinGiftAmount)
	}
	if senderID == receiverID {
		return 0, domain.ErrSelfTransfer
	}
	if _, err := s.users.GetByID(receiverID); err != nil {
		return 0, fmt.Errorf("receiver: %w", domain.ErrNotFound)
	}
	now := time.Now()
	if susp, err := s.fraud.ActiveSuspension(senderID, now); err != nil {
		return 0, err
	} else if susp != nil {
		return 0, domain.ErrSuspended
	}

	dayStart := now.Truncate(24 * time.Hour)
	sent, err := s.gifts.CountSentSince(senderID, dayStart)
	if err != nil {
		return 0, err
	}
	if sent >= int64(s.policy.DailyGiftCap) {
		return 0, domain.ErrDailyCapReached
	}

	// Fast path; the unique (sender, content hash) index below is what makes
	// the dedupe hold under concurrent identical submissions.
	hash := giftContentHash(senderID, receiverID, amount, message, now)
	if prior, err := s.gifts.FindByContentHashSince(senderID, hash, dayStart); err != nil {
		return 0, err
	} else if prior != nil {
		log.Printf("[Transfer] duplicate gift from user %d, returning receipt %s", senderID, prior.ReceiptID)
		return prior.ID, nil
	}

	gift := &models.Gift{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Amount:      amount,
		Message:     message,
		GiftType:    giftType,
		ContextType: contextType,
		ContextID:   contextID,
		ReceiptID:   fmt.Sprintf("gift-%s", uuid.New().String()),
		ContentHash: hash,
	}
	meta := fmt.Sprintf(`{"receipt_id":%q,"context_type":%q,"context_id":%q}`, gift.ReceiptID, contextType, contextID)

	var stored *models.Gift
	var created bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		stored, created, err = s.gifts.CreateIdempotentTx(tx, gift)
		if err != nil || !created {
			return err
		}
		return s.ledger.TransferTx(tx, senderID, receiverID, amount,
			fmt.Sprintf("gift to user %d", receiverID),
			fmt.Sprintf("gift from user %d", senderID),
			meta)
	})
	if err != nil {
		return 0, err
	}
	if !created {
		log.Printf("[Transfer] duplicate gift from user %d, returning receipt %s", senderID, stored.ReceiptID)
		return stored.ID, nil
	}

	s.notifier.GiftReceived(gift)
	if contextType == domain.GiftContextPost {
		s.notifier.PostGiftMessage(gift)
	}
	return gift.ID, nil
}

func (s *TransferService) GetBalance(userID uint) (*models.Balance, error) {
	return s.ledger.GetOrCreate(userID)
}

func (s *TransferService) ListTransactions(userID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ledger.ListTransactions(userID, limit)
}

// giftContentHash keys duplicate detection: the same sender, receiver, amount
// and message on the same day hash identically.
func giftContentHash(senderID, receiverID uint, amount int64, message string, at time.Time) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d|%d|%d|%s|%s", senderID, receiverID, amount, message, at.Format("2006-01-02")))
	return hex.EncodeToString(h[:])
}
