package service

import (
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"

	"gorm.io/gorm"
)

// ScorerService evaluates PPLP actions against policy. Scoring is a pure
// function of the action's recorded evidence and the policy version, so audits
// can reproduce any decision.
type ScorerService struct {
	db       *gorm.DB
	actions  *repository.ActionRepository
	ledger   *repository.LedgerRepository
	notifier Notifier
	policy   *config.PolicyConfig
}

func NewScorerService(
	db *gorm.DB,
	actions *repository.ActionRepository,
	ledger *repository.LedgerRepository,
	notifier Notifier,
	policy *config.PolicyConfig,
) *ScorerService {
	return &ScorerService{
		db:       db,
		actions:  actions,
		ledger:   ledger,
		notifier: notifier,
		policy:   policy,
	}
}

// SubmitAction records a unit of user activity in pending status.
func (s *ScorerService) SubmitAction(actorID uint, platformID, actionType, targetID, evidence string, deviceFingerprint, ipHash, contentHash string, contentLength int) (*models.PPLPAction, error) {
	if actionType == "" || evidence == "" {
		return nil, fmt.Errorf("%w: action type and evidence are required", domain.ErrInvalidInput)
	}
	sum := sha256.Sum256([]byte(evidence))
	a := &models.PPLPAction{
		ActorID:           actorID,
		PlatformID:        platformID,
		ActionType:        actionType,
		TargetID:          targetID,
		EvidenceHash:      fmt.Sprintf("%x", sum),
		DeviceFingerprint: deviceFingerprint,
		IPHash:            ipHash,
		ContentHash:       contentHash,
		ContentLength:     contentLength,
		Status:            domain.ActionStatusPending,
	}
	if err := s.actions.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Score evaluates an action, persisting one immutable score row. Calling it on
// an already-scored action returns the existing score unchanged.
func (s *ScorerService) Score(actionID uint) (*models.PPLPScore, error) {
	a, err := s.actions.GetByID(actionID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if existing, err := s.actions.GetScoreByActionID(actionID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	if a.Status != domain.ActionStatusPending {
		return nil, fmt.Errorf("%w: action is %s", domain.ErrInvalidState, a.Status)
	}

	lightScore := s.ComputeLightScore(a)
	decision := domain.DecisionFail
	var reward int64
	if lightScore >= s.policy.PassScore {
		decision = domain.DecisionPass
		reward = int64(lightScore) * s.policy.RewardPerPoint

		// A content hash already rewarded today earns nothing again; the
		// action still passes so the record stays honest.
		dayStart := time.Now().Truncate(24 * time.Hour)
		dup, err := s.actions.RewardedContentHashSince(a.ActorID, a.ContentHash, a.ID, dayStart)
		if err != nil {
			return nil, err
		}
		if dup {
			reward = 0
			log.Printf("[Scorer] action %d: duplicate content hash, reward withheld", a.ID)
		}
	}

	score := &models.PPLPScore{
		ActionID:      a.ID,
		LightScore:    lightScore,
		FinalReward:   reward,
		Decision:      decision,
		PolicyVersion: s.policy.Version,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(score).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PPLPAction{}).Where("id = ?", a.ID).
			Update("status", domain.ActionStatusScored).Error; err != nil {
			return err
		}
		if decision == domain.DecisionPass && reward > 0 {
			// Reward credits are held pending until the release sweep settles them.
			_, err := s.ledger.CreditTx(tx, a.ActorID, reward, domain.TxTypeReward, domain.TxStatusPending,
				fmt.Sprintf("reward for action %d", a.ID),
				fmt.Sprintf(`{"action_id":%d,"light_score":%d,"policy":%q}`, a.ID, lightScore, s.policy.Version))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if decision == domain.DecisionPass && reward > 0 {
		s.notifier.RewardGranted(a.ActorID, a.ID, reward)
	} else if decision == domain.DecisionFail {
		log.Printf("[Scorer] action %d failed with light score %d", a.ID, lightScore)
	}
	return score, nil
}

// ComputeLightScore derives the 0-100 light score from the recorded evidence.
// Deterministic: the same action and policy version always score the same.
func (s *ScorerService) ComputeLightScore(a *models.PPLPAction) int {
	score := actionBaseScore(a.ActionType)

	// Content depth, saturating at 400 chars.
	cl := a.ContentLength
	if cl > 400 {
		cl = 400
	}
	score += cl * 30 / 400

	// Integrity attestations.
	if a.DeviceFingerprint != "" {
		score += 5
	}
	if a.IPHash != "" {
		score += 5
	}

	// Stable evidence component: the low byte of the evidence hash digest,
	// scaled to 0-20. Keeps equal-shaped actions from scoring identically
	// while staying reproducible.
	sum := sha256.Sum256([]byte(a.EvidenceHash + "|" + s.policy.Version))
	score += int(sum[0]) % 21

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func actionBaseScore(actionType string) int {
	switch actionType {
	case "post":
		return 40
	case "share":
		return 35
	case "comment":
		return 30
	case "referral":
		return 45
	case "like":
		return 15
	default:
		return 25
	}
}
