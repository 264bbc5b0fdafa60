package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"camly/config"
	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"
	"camly/pkg/ratelimit"

	"gorm.io/gorm"
)

// BatchReport aggregates one scoring batch run.
type BatchReport struct {
	Processed    int     `json:"processed"`
	Success      int     `json:"success"`
	Failed       int     `json:"failed"`
	Skipped      int     `json:"skipped"`
	TotalRewards int64   `json:"total_rewards"`
	AvgScore     float64 `json:"avg_score"`
	DryRun       bool    `json:"dry_run"`
}

// BatchService drains the unscored action queue and runs the periodic sweeps.
// Each item is an isolated unit of work; one bad action never aborts the rest.
type BatchService struct {
	db      *gorm.DB
	actions *repository.ActionRepository
	ledger  *repository.LedgerRepository
	fraud   *repository.FraudRepository
	scorer  *ScorerService
	limiter *ratelimit.Limiter
	policy  *config.PolicyConfig
}

func NewBatchService(
	db *gorm.DB,
	actions *repository.ActionRepository,
	ledger *repository.LedgerRepository,
	fraud *repository.FraudRepository,
	scorer *ScorerService,
	policy *config.PolicyConfig,
) *BatchService {
	return &BatchService{
		db:      db,
		actions: actions,
		ledger:  ledger,
		fraud:   fraud,
		scorer:  scorer,
		limiter: ratelimit.New(policy.BatchRatePerSec, 1),
		policy:  policy,
	}
}

// RunBatch scores up to batchSize pending actions, oldest first. Stale actions
// (older than the policy window) are rejected and counted as skipped. In dry
// run mode eligibility is evaluated but nothing is written.
func (s *BatchService) RunBatch(ctx context.Context, batchSize int, dryRun bool) (*BatchReport, error) {
	if batchSize <= 0 || batchSize > 500 {
		batchSize = 100
	}
	pending, err := s.actions.ListPending(batchSize)
	if err != nil {
		return nil, err
	}
	report := &BatchReport{DryRun: dryRun}
	var scoreSum int
	staleBefore := time.Now().Add(-s.policy.StaleAfter)

	for i := range pending {
		if err := ctx.Err(); err != nil {
			// Safe to interrupt between items; everything processed so far stands.
			log.Printf("[Batch] interrupted after %d items", report.Processed)
			return report, err
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return report, err
		}
		a := &pending[i]
		report.Processed++

		if a.CreatedAt.Before(staleBefore) {
			if !dryRun {
				if err := s.actions.RejectStaleTx(s.db, a.ID); err != nil {
					log.Printf("[Batch] reject stale action %d: %v", a.ID, err)
					report.Failed++
					continue
				}
			}
			report.Skipped++
			continue
		}
		if dryRun {
			report.Success++
			scoreSum += s.scorer.ComputeLightScore(a)
			continue
		}
		score, err := s.scorer.Score(a.ID)
		if err != nil {
			log.Printf("[Batch] score action %d: %v", a.ID, err)
			report.Failed++
			continue
		}
		report.Success++
		report.TotalRewards += score.FinalReward
		scoreSum += score.LightScore
	}
	if report.Success > 0 {
		report.AvgScore = float64(scoreSum) / float64(report.Success)
	}
	log.Printf("[Batch] processed=%d success=%d failed=%d skipped=%d rewards=%d dryRun=%v",
		report.Processed, report.Success, report.Failed, report.Skipped, report.TotalRewards, dryRun)
	return report, nil
}

// RandomAudit re-verifies a random sample of settled actions against the
// deterministic scorer, flagging mismatches and auto-suspending actors that
// accumulate too many unresolved audit flags.
func (s *BatchService) RandomAudit(ctx context.Context, sampleSize int) (int, error) {
	if sampleSize <= 0 {
		sampleSize = 20
	}
	sample, err := s.actions.SampleSettled(sampleSize)
	if err != nil {
		return 0, err
	}
	flagged := 0
	for i := range sample {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
		a := &sample[i]
		stored, err := s.actions.GetScoreByActionID(a.ID)
		if err != nil || stored == nil {
			continue
		}
		recomputed := s.scorer.ComputeLightScore(a)
		if recomputed == stored.LightScore {
			continue
		}
		details := fmt.Sprintf(`{"action_id":%d,"stored":%d,"recomputed":%d}`, a.ID, stored.LightScore, recomputed)
		if dup, err := s.fraud.HasSignalWithDetails(a.ActorID, domain.SignalAudit, details); err != nil || dup {
			continue
		}
		actionID := a.ID
		if err := s.fraud.CreateSignal(&models.FraudSignal{
			ActorID:    a.ActorID,
			ActionID:   &actionID,
			SignalType: domain.SignalAudit,
			Severity:   3,
			Details:    details,
			Source:     "random_audit",
		}); err != nil {
			log.Printf("[Audit] signal for action %d: %v", a.ID, err)
			continue
		}
		flagged++

		n, err := s.fraud.CountUnresolvedByType(a.ActorID, domain.SignalAudit)
		if err != nil {
			continue
		}
		if n >= int64(s.policy.AuditFlagLimit) {
			s.suspendOnce(a.ActorID, int(n)*15, fmt.Sprintf("%d unresolved audit flags", n))
		}
	}
	return flagged, nil
}

// CrossAccountScan groups recent actions by device fingerprint and IP hash and
// files sybil signals for overlapping actor sets. Signals are keyed by
// fingerprint and day so repeated scans stay idempotent.
func (s *BatchService) CrossAccountScan(ctx context.Context) (int, error) {
	since := time.Now().Add(-24 * time.Hour)
	recent, err := s.actions.RecentFingerprinted(since)
	if err != nil {
		return 0, err
	}
	day := time.Now().Format("2006-01-02")
	byDevice := map[string]map[uint]bool{}
	byIP := map[string]map[uint]bool{}
	for _, a := range recent {
		if a.DeviceFingerprint != "" {
			if byDevice[a.DeviceFingerprint] == nil {
				byDevice[a.DeviceFingerprint] = map[uint]bool{}
			}
			byDevice[a.DeviceFingerprint][a.ActorID] = true
		}
		if a.IPHash != "" {
			if byIP[a.IPHash] == nil {
				byIP[a.IPHash] = map[uint]bool{}
			}
			byIP[a.IPHash][a.ActorID] = true
		}
	}
	created := 0
	created += s.fileSybilSignals(ctx, byDevice, "device", day, 4)
	created += s.fileSybilSignals(ctx, byIP, "ip", day, 3)
	return created, nil
}

func (s *BatchService) fileSybilSignals(ctx context.Context, groups map[string]map[uint]bool, kind, day string, severity int) int {
	created := 0
	for key, actors := range groups {
		if len(actors) < 2 || ctx.Err() != nil {
			continue
		}
		ids := make([]uint, 0, len(actors))
		for id := range actors {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, actorID := range ids {
			details := fmt.Sprintf(`{"kind":%q,"key":%q,"day":%q,"actors":%d}`, kind, key, day, len(ids))
			if dup, err := s.fraud.HasSignalWithDetails(actorID, domain.SignalSybil, details); err != nil || dup {
				continue
			}
			if err := s.fraud.CreateSignal(&models.FraudSignal{
				ActorID:    actorID,
				SignalType: domain.SignalSybil,
				Severity:   severity,
				Details:    details,
				Source:     "cross_account_scan",
			}); err != nil {
				log.Printf("[Scan] sybil signal for actor %d: %v", actorID, err)
				continue
			}
			created++
		}
	}
	return created
}

// ReleasePendingRewards settles reward credits whose hold expired and resolves
// frozen ones: released when the freeze window lapsed, permanently voided when
// the actor was suspended in the meantime.
func (s *BatchService) ReleasePendingRewards(ctx context.Context) (released, voided int, err error) {
	now := time.Now()
	due, err := s.ledger.ReleasableRewards(now.Add(-s.policy.RewardHold), now)
	if err != nil {
		return 0, 0, err
	}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return released, voided, err
		}
		entry := due[i]
		wasVoided := false
		txErr := s.db.Transaction(func(tx *gorm.DB) error {
			switch entry.Status {
			case domain.TxStatusPending:
				return s.ledger.SettlePendingTx(tx, entry.ID)
			case domain.TxStatusFrozen:
				susp, err := s.fraud.ActiveSuspension(entry.UserID, now)
				if err != nil {
					return err
				}
				if susp != nil {
					wasVoided = true
					return s.ledger.VoidFrozenTx(tx, &entry)
				}
				return s.ledger.ReleaseFrozenTx(tx, &entry)
			}
			return nil
		})
		if txErr != nil {
			log.Printf("[Release] transaction %d: %v", entry.ID, txErr)
			continue
		}
		if wasVoided {
			voided++
		} else {
			released++
		}
	}
	log.Printf("[Release] released=%d voided=%d", released, voided)
	return released, voided, nil
}

// suspendOnce creates a suspension unless one is already active.
func (s *BatchService) suspendOnce(userID uint, riskScore int, reason string) {
	now := time.Now()
	active, err := s.fraud.ActiveSuspension(userID, now)
	if err != nil || active != nil {
		return
	}
	if riskScore > 100 {
		riskScore = 100
	}
	if err := s.fraud.CreateSuspension(&models.Suspension{
		UserID:    userID,
		Reason:    reason,
		RiskScore: riskScore,
	}); err != nil {
		log.Printf("[Audit] suspend user %d: %v", userID, err)
		return
	}
	log.Printf("[Audit] auto-suspended user %d: %s", userID, reason)
}
