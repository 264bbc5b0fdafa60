package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
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

// MintBatchResult aggregates a batched mint request run.
// Success + Skipped + Failed always equals the input count.
type MintBatchResult struct {
	Success int    `json:"success"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	IDs     []uint `json:"mint_request_ids"`
}

// MintService escalates passed actions into on-chain mint requests and walks
// them through approval, signature and settlement.
type MintService struct {
	db       *gorm.DB
	mints    *repository.MintRepository
	actions  *repository.ActionRepository
	fraud    *repository.FraudRepository
	client   chain.Client
	chainCfg *config.ChainConfig
	policy   *config.PolicyConfig
}

func NewMintService(
	db *gorm.DB,
	mints *repository.MintRepository,
	actions *repository.ActionRepository,
	fraud *repository.FraudRepository,
	client chain.Client,
	chainCfg *config.ChainConfig,
	policy *config.PolicyConfig,
) *MintService {
	return &MintService{
		db:       db,
		mints:    mints,
		actions:  actions,
		fraud:    fraud,
		client:   client,
		chainCfg: chainCfg,
		policy:   policy,
	}
}

// RequestMint creates the mint request for a passed action. Creation is keyed
// on the action ID, so a retried call returns the existing request instead of
// producing a duplicate on-chain obligation. A terminal expired or rejected
// request is superseded in place with a fresh nonce.
func (s *MintService) RequestMint(actionID uint, recipientAddress string) (uint, error) {
	if !addressRe.MatchString(recipientAddress) {
		return 0, domain.ErrInvalidAddress
	}
	a, err := s.actions.GetByID(actionID)
	if err != nil {
		return 0, domain.ErrNotFound
	}
	score, err := s.actions.GetScoreByActionID(actionID)
	if err != nil {
		return 0, err
	}
	if score == nil {
		return 0, domain.ErrNotScored
	}
	if score.Decision != domain.DecisionPass || score.FinalReward <= 0 {
		return 0, domain.ErrScoreFailed
	}
	if susp, err := s.fraud.ActiveSuspension(a.ActorID, time.Now()); err != nil {
		return 0, err
	} else if susp != nil {
		return 0, domain.ErrSuspended
	}

	now := time.Now()
	m := &models.MintRequest{
		ActionID:         a.ID,
		ActorID:          a.ActorID,
		RecipientAddress: recipientAddress,
		Amount:           score.FinalReward,
		ActionHash:       actionHash(a),
		EvidenceHash:     a.EvidenceHash,
		PolicyVersion:    score.PolicyVersion,
		Nonce:            newNonce(),
		Status:           domain.MintStatusPending,
		ValidAfter:       now,
		ValidBefore:      now.Add(s.policy.MintTTL),
	}
	row, created, err := s.mints.CreateIdempotent(m)
	if err != nil {
		return 0, err
	}
	if created {
		return row.ID, nil
	}
	switch row.Status {
	case domain.MintStatusExpired, domain.MintStatusRejected:
		// A dead request is re-creatable, never resurrected: new nonce and window.
		if err := s.mints.Supersede(row, newNonce(), now, now.Add(s.policy.MintTTL)); err != nil {
			return 0, err
		}
	}
	return row.ID, nil
}

// RequestMintBatch processes actions in fixed-size chunks, computing hashes
// concurrently within each chunk. A failed item or chunk never blocks the
// rest; totals always sum to the input count.
func (s *MintService) RequestMintBatch(ctx context.Context, actionIDs []uint, recipientAddress string) (*MintBatchResult, error) {
	if !addressRe.MatchString(recipientAddress) {
		return nil, domain.ErrInvalidAddress
	}
	result := &MintBatchResult{}
	chunkSize := s.policy.MintChunkSize
	if chunkSize <= 0 {
		chunkSize = 50
	}
	for start := 0; start < len(actionIDs); start += chunkSize {
		if err := ctx.Err(); err != nil {
			result.Failed += len(actionIDs) - start
			return result, err
		}
		end := start + chunkSize
		if end > len(actionIDs) {
			end = len(actionIDs)
		}
		s.requestChunk(actionIDs[start:end], recipientAddress, result)
	}
	return result, nil
}

type mintCandidate struct {
	action *models.PPLPAction
	score  *models.PPLPScore
	hash   string
	err    error
	skip   bool
}

func (s *MintService) requestChunk(actionIDs []uint, recipientAddress string, result *MintBatchResult) {
	candidates := make([]mintCandidate, len(actionIDs))

	// Load and hash concurrently; persistence stays sequential below.
	var wg sync.WaitGroup
	for i, id := range actionIDs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			a, err := s.actions.GetByID(id)
			if err != nil {
				candidates[i] = mintCandidate{err: domain.ErrNotFound}
				return
			}
			score, err := s.actions.GetScoreByActionID(id)
			if err != nil {
				candidates[i] = mintCandidate{err: err}
				return
			}
			if score == nil || score.Decision != domain.DecisionPass || score.FinalReward <= 0 {
				candidates[i] = mintCandidate{skip: true}
				return
			}
			// Same containment gate as the single-item path.
			if susp, err := s.fraud.ActiveSuspension(a.ActorID, time.Now()); err != nil {
				candidates[i] = mintCandidate{err: err}
				return
			} else if susp != nil {
				candidates[i] = mintCandidate{skip: true}
				return
			}
			candidates[i] = mintCandidate{action: a, score: score, hash: actionHash(a)}
		}(i, id)
	}
	wg.Wait()

	now := time.Now()
	for i := range candidates {
		c := &candidates[i]
		switch {
		case c.skip:
			result.Skipped++
			continue
		case c.err != nil:
			result.Failed++
			continue
		}
		m := &models.MintRequest{
			ActionID:         c.action.ID,
			ActorID:          c.action.ActorID,
			RecipientAddress: recipientAddress,
			Amount:           c.score.FinalReward,
			ActionHash:       c.hash,
			EvidenceHash:     c.action.EvidenceHash,
			PolicyVersion:    c.score.PolicyVersion,
			Nonce:            newNonce(),
			Status:           domain.MintStatusPending,
			ValidAfter:       now,
			ValidBefore:      now.Add(s.policy.MintTTL),
		}
		row, _, err := s.mints.CreateIdempotent(m)
		if err != nil {
			log.Printf("[Mint] batch item action %d: %v", c.action.ID, err)
			result.Failed++
			continue
		}
		result.Success++
		result.IDs = append(result.IDs, row.ID)
	}
}

// Approve moves a pending request to approved.
func (s *MintService) Approve(mintRequestID uint) error {
	return s.transition(mintRequestID, domain.MintStatusPending, func(m *models.MintRequest) error {
		m.Status = domain.MintStatusApproved
		return nil
	})
}

// Sign attaches an authorized signature, moving approved to signed.
func (s *MintService) Sign(mintRequestID uint, signature, signerAddress string) error {
	if signature == "" || !addressRe.MatchString(signerAddress) {
		return domain.ErrInvalidAddress
	}
	return s.transition(mintRequestID, domain.MintStatusApproved, func(m *models.MintRequest) error {
		m.Status = domain.MintStatusSigned
		m.Signature = &signature
		m.SignerAddress = &signerAddress
		return nil
	})
}

// Settle submits the signed request on chain and records the confirmation.
func (s *MintService) Settle(ctx context.Context, mintRequestID uint) (string, error) {
	m, err := s.mints.GetByID(mintRequestID)
	if err != nil {
		return "", domain.ErrNotFound
	}
	if m.Status != domain.MintStatusSigned {
		return "", fmt.Errorf("%w: mint request is %s", domain.ErrInvalidState, m.Status)
	}
	if time.Now().After(m.ValidBefore) {
		m.Status = domain.MintStatusExpired
		_ = s.mints.Update(m)
		return "", fmt.Errorf("%w: validity window passed", domain.ErrInvalidState)
	}

	ctx, cancel := context.WithTimeout(ctx, s.chainCfg.CallTimeout)
	defer cancel()

	units := decimal.NewFromInt(m.Amount).Shift(s.tokenDecimals(ctx))
	txHash, err := s.client.Transfer(ctx, s.chainCfg.TokenAddress, m.RecipientAddress, units.BigInt())
	if err != nil {
		return "", fmt.Errorf("mint settlement: %w", err)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MintRequest{}).
			Where("id = ? AND status = ?", m.ID, domain.MintStatusSigned).
			Updates(map[string]interface{}{"status": domain.MintStatusMinted, "tx_hash": txHash, "minted_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&models.PPLPAction{}).Where("id = ?", m.ActionID).
			Update("status", domain.ActionStatusMinted).Error
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Mint] request %d settled, tx %s", m.ID, txHash)
	return txHash, nil
}

// Reject terminates a request from any non-terminal state.
func (s *MintService) Reject(mintRequestID uint, reason string) error {
	m, err := s.mints.GetByID(mintRequestID)
	if err != nil {
		return domain.ErrNotFound
	}
	if m.Terminal() {
		return fmt.Errorf("%w: mint request is %s", domain.ErrInvalidState, m.Status)
	}
	m.Status = domain.MintStatusRejected
	log.Printf("[Mint] request %d rejected: %s", m.ID, reason)
	return s.mints.Update(m)
}

// ExpireStale flips requests past their validity window to expired.
func (s *MintService) ExpireStale() (int64, error) {
	return s.mints.ExpireStale(time.Now())
}

func (s *MintService) transition(id uint, from string, apply func(*models.MintRequest) error) error {
	m, err := s.mints.GetByID(id)
	if err != nil {
		return domain.ErrNotFound
	}
	if m.Status != from {
		return fmt.Errorf("%w: mint request is %s, want %s", domain.ErrInvalidState, m.Status, from)
	}
	if time.Now().After(m.ValidBefore) {
		m.Status = domain.MintStatusExpired
		_ = s.mints.Update(m)
		return fmt.Errorf("%w: validity window passed", domain.ErrInvalidState)
	}
	if err := apply(m); err != nil {
		return err
	}
	return s.mints.Update(m)
}

func (s *MintService) tokenDecimals(ctx context.Context) int32 {
	if s.chainCfg.TokenDecimals != 0 {
		return s.chainCfg.TokenDecimals
	}
	d, err := s.client.TokenDecimals(ctx, s.chainCfg.TokenAddress)
	if err != nil {
		log.Printf("[Mint] token decimals lookup failed, using 18: %v", err)
		return 18
	}
	return d
}

// actionHash binds a mint request to the action content it rewards.
func actionHash(a *models.PPLPAction) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s", a.ActionType, a.ActorID, a.EvidenceHash))
	return hex.EncodeToString(h[:])
}

func newNonce() string {
	return fmt.Sprintf("mint-%s", uuid.New().String())
}
