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

	"gorm.io/gorm"
)

// CheckMetadata carries the integrity attributes of the activity that
// triggered the check.
type CheckMetadata struct {
	DeviceFingerprint string `json:"device_fingerprint"`
	IPHash            string `json:"ip_hash"`
	ContentHash       string `json:"content_hash"`
	ContentLength     int    `json:"content_length"`
}

// FraudReport is the outcome of one actor check.
type FraudReport struct {
	Signals        []models.FraudSignal `json:"signals"`
	RiskScore      int                  `json:"risk_score"`
	Recommendation string               `json:"recommendation"`
}

const (
	RecommendNone      = "NONE"
	RecommendMonitor   = "MONITOR"
	RecommendFreeze    = "FREEZE_REWARDS"
	RecommendSuspended = "AUTO_SUSPENDED"
)

// FraudService screens actors for abuse. The four heuristics run concurrently
// and every signal is persisted before containment is evaluated, so the
// decision is always reproducible from stored rows.
type FraudService struct {
	db      *gorm.DB
	actions *repository.ActionRepository
	fraud   *repository.FraudRepository
	ledger  *repository.LedgerRepository
	roles   *RoleCache
	policy  *config.PolicyConfig
}

func NewFraudService(
	db *gorm.DB,
	actions *repository.ActionRepository,
	fraud *repository.FraudRepository,
	ledger *repository.LedgerRepository,
	roles *RoleCache,
	policy *config.PolicyConfig,
) *FraudService {
	return &FraudService{
		db:      db,
		actions: actions,
		fraud:   fraud,
		ledger:  ledger,
		roles:   roles,
		policy:  policy,
	}
}

// CheckActor runs all detectors against an actor and applies the containment
// policy for the resulting risk score.
func (s *FraudService) CheckActor(ctx context.Context, actorID uint, actionID *uint, actionType string, meta CheckMetadata) (*FraudReport, error) {
	type detector func() *models.FraudSignal
	detectors := []detector{
		func() *models.FraudSignal { return s.detectSybil(actorID, meta) },
		func() *models.FraudSignal { return s.detectBot(actorID, actionType) },
		func() *models.FraudSignal { return s.detectSpam(actorID, meta) },
		func() *models.FraudSignal { return s.detectCollusion(actorID) },
	}

	results := make(chan *models.FraudSignal, len(detectors))
	for _, d := range detectors {
		go func(d detector) {
			results <- d()
		}(d)
	}
	var fresh []models.FraudSignal
	for range detectors {
		select {
		case sig := <-results:
			if sig != nil {
				sig.ActorID = actorID
				sig.ActionID = actionID
				sig.Source = "realtime_check"
				fresh = append(fresh, *sig)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].SignalType < fresh[j].SignalType })

	// Persist first; containment below is derived from the stored set.
	for i := range fresh {
		if err := s.fraud.CreateSignal(&fresh[i]); err != nil {
			return nil, err
		}
	}

	unresolved, err := s.fraud.ListUnresolvedByActor(actorID)
	if err != nil {
		return nil, err
	}
	risk := RiskScore(unresolved)
	report := &FraudReport{Signals: fresh, RiskScore: risk, Recommendation: RecommendNone}

	switch {
	case risk > s.policy.RiskSuspend:
		report.Recommendation = RecommendSuspended
		if err := s.suspend(actorID, risk); err != nil {
			return report, err
		}
		if err := s.freezePendingRewards(actorID); err != nil {
			return report, err
		}
	case risk > s.policy.RiskFreeze:
		report.Recommendation = RecommendFreeze
		if err := s.freezePendingRewards(actorID); err != nil {
			return report, err
		}
	case risk > s.policy.RiskMonitor:
		report.Recommendation = RecommendMonitor
		log.Printf("[Fraud] actor %d risk %d: monitoring", actorID, risk)
	}
	return report, nil
}

// RiskScore maps a set of unresolved signals to the 0-100 risk scale.
func RiskScore(signals []models.FraudSignal) int {
	if len(signals) == 0 {
		return 0
	}
	maxSeverity := 0
	for _, s := range signals {
		if s.Severity > maxSeverity {
			maxSeverity = s.Severity
		}
	}
	risk := 15*len(signals) + 10*maxSeverity
	if risk > 100 {
		risk = 100
	}
	return risk
}

func (s *FraudService) detectSybil(actorID uint, meta CheckMetadata) *models.FraudSignal {
	if meta.DeviceFingerprint == "" && meta.IPHash == "" {
		return nil
	}
	since := time.Now().Add(-24 * time.Hour)
	hit, otherActor, err := s.actions.FingerprintCollision(actorID, meta.DeviceFingerprint, meta.IPHash, since)
	if err != nil {
		log.Printf("[Fraud] sybil detector: %v", err)
		return nil
	}
	if !hit {
		return nil
	}
	severity := 3
	if meta.DeviceFingerprint != "" {
		severity = 4
	}
	return &models.FraudSignal{
		SignalType: domain.SignalSybil,
		Severity:   severity,
		Details:    fmt.Sprintf(`{"colliding_actor":%d}`, otherActor),
	}
}

func (s *FraudService) detectBot(actorID uint, actionType string) *models.FraudSignal {
	if actionType != "" {
		n, err := s.actions.CountSameTypeSince(actorID, actionType, time.Now().Add(-time.Hour))
		if err != nil {
			log.Printf("[Fraud] bot detector: %v", err)
			return nil
		}
		if n > int64(s.policy.BotHourlyCap) {
			return &models.FraudSignal{
				SignalType: domain.SignalBot,
				Severity:   4,
				Details:    fmt.Sprintf(`{"hourly_count":%d,"action_type":%q}`, n, actionType),
			}
		}
	}
	stamps, err := s.actions.RecentTimestamps(actorID, 10)
	if err != nil || len(stamps) < 10 {
		return nil
	}
	if uniformIntervals(stamps, 0.10) {
		return &models.FraudSignal{
			SignalType: domain.SignalBot,
			Severity:   3,
			Details:    `{"pattern":"uniform_intervals"}`,
		}
	}
	return nil
}

func (s *FraudService) detectSpam(actorID uint, meta CheckMetadata) *models.FraudSignal {
	if meta.ContentLength > 0 && meta.ContentLength < s.policy.MinContentLength {
		return &models.FraudSignal{
			SignalType: domain.SignalSpam,
			Severity:   2,
			Details:    fmt.Sprintf(`{"content_length":%d}`, meta.ContentLength),
		}
	}
	if meta.ContentHash == "" {
		return nil
	}
	n, err := s.actions.CountContentHash(actorID, meta.ContentHash)
	if err != nil {
		log.Printf("[Fraud] spam detector: %v", err)
		return nil
	}
	if n > 2 {
		return &models.FraudSignal{
			SignalType: domain.SignalSpam,
			Severity:   3,
			Details:    fmt.Sprintf(`{"repeated_hash_count":%d}`, n),
		}
	}
	return nil
}

func (s *FraudService) detectCollusion(actorID uint) *models.FraudSignal {
	targets, err := s.actions.RecentTargets(actorID, 50)
	if err != nil || len(targets) < 10 {
		return nil
	}
	counts := map[string]int{}
	for _, t := range targets {
		counts[t]++
	}
	// Concentration: do the top 3 targets absorb more than half the actions?
	top := make([]int, 0, len(counts))
	for _, n := range counts {
		top = append(top, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(top)))
	sum := 0
	for i := 0; i < len(top) && i < 3; i++ {
		sum += top[i]
	}
	if len(counts) > 3 && sum*2 > len(targets) {
		return &models.FraudSignal{
			SignalType: domain.SignalCollusion,
			Severity:   3,
			Details:    fmt.Sprintf(`{"target_count":%d,"top3_share":%d,"window":%d}`, len(counts), sum, len(targets)),
		}
	}
	if len(counts) <= 3 && len(targets) >= 10 {
		return &models.FraudSignal{
			SignalType: domain.SignalCollusion,
			Severity:   3,
			Details:    fmt.Sprintf(`{"target_count":%d,"window":%d}`, len(counts), len(targets)),
		}
	}
	return nil
}

// uniformIntervals reports whether consecutive gaps are all within tolerance
// of their mean and the mean is faster than one action per minute.
func uniformIntervals(stamps []time.Time, tolerance float64) bool {
	if len(stamps) < 3 {
		return false
	}
	intervals := make([]float64, 0, len(stamps)-1)
	for i := 1; i < len(stamps); i++ {
		// stamps are newest first
		intervals = append(intervals, stamps[i-1].Sub(stamps[i]).Seconds())
	}
	var sum float64
	for _, iv := range intervals {
		sum += iv
	}
	mean := sum / float64(len(intervals))
	if mean <= 0 || mean >= 60 {
		return false
	}
	for _, iv := range intervals {
		if iv < mean*(1-tolerance) || iv > mean*(1+tolerance) {
			return false
		}
	}
	return true
}

// freezePendingRewards moves the actor's unsettled reward credits into the
// reserved bucket. Already-frozen entries are untouched, so repeated
// containment never double-freezes.
func (s *FraudService) freezePendingRewards(actorID uint) error {
	pending, err := s.ledger.PendingRewards(actorID)
	if err != nil {
		return err
	}
	frozenUntil := time.Now().Add(s.policy.FreezeWindow)
	for i := range pending {
		entry := pending[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.ledger.FreezeRewardTx(tx, &entry, frozenUntil)
		})
		if err != nil {
			log.Printf("[Fraud] freeze transaction %d: %v", entry.ID, err)
			continue
		}
	}
	if len(pending) > 0 {
		log.Printf("[Fraud] froze %d pending rewards for actor %d", len(pending), actorID)
	}
	return nil
}

// suspend creates the suspension row unless one is already active, so repeated
// checks never double-suspend.
func (s *FraudService) suspend(actorID uint, risk int) error {
	now := time.Now()
	active, err := s.fraud.ActiveSuspension(actorID, now)
	if err != nil {
		return err
	}
	if active != nil {
		return nil
	}
	if err := s.fraud.CreateSuspension(&models.Suspension{
		UserID:    actorID,
		Reason:    domain.SuspensionReasonAuto,
		RiskScore: risk,
	}); err != nil {
		return err
	}
	log.Printf("[Fraud] auto-suspended actor %d at risk %d", actorID, risk)
	return nil
}

// ResolveSignal marks a signal handled after administrative review.
func (s *FraudService) ResolveSignal(signalID uint) error {
	if _, err := s.fraud.GetSignal(signalID); err != nil {
		return domain.ErrNotFound
	}
	return s.fraud.ResolveSignal(signalID)
}

// LiftSuspension restores a suspended user. The admin identity is verified
// through the role cache.
func (s *FraudService) LiftSuspension(userID, adminID uint) error {
	isAdmin, err := s.roles.IsAdmin(adminID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: user %d is not an administrator", domain.ErrInvalidState, adminID)
	}
	return s.fraud.LiftSuspension(userID, adminID, time.Now())
}

// IsSuspended reports whether the user is currently contained.
func (s *FraudService) IsSuspended(userID uint) (bool, error) {
	susp, err := s.fraud.ActiveSuspension(userID, time.Now())
	if err != nil {
		return false, err
	}
	return susp != nil, nil
}
