package service

import (
	"testing"

	"camly/internal/domain"
	"camly/internal/models"
	"camly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newScorerService(t *testing.T, db *gorm.DB) *ScorerService {
	t.Helper()
	return NewScorerService(
		db,
		repository.NewActionRepository(db),
		repository.NewLedgerRepository(db),
		LogNotifier{},
		testPolicy(),
	)
}

func submitPassingAction(t *testing.T, svc *ScorerService, actorID uint, evidence string) *models.PPLPAction {
	t.Helper()
	// post base 40 + full content depth 30 + both attestations 10 clears the
	// pass bar before the evidence component.
	a, err := svc.SubmitAction(actorID, "platform-1", "post", "target-1", evidence, "device-a", "ip-a", "content-"+evidence, 400)
	require.NoError(t, err)
	return a
}

func TestSubmitActionRecordsEvidenceHash(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	u := seedUser(t, db, "actor", domain.RoleUser)

	a, err := svc.SubmitAction(u.ID, "platform-1", "comment", "post-9", "saw it happen", "", "", "", 64)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusPending, a.Status)
	assert.Len(t, a.EvidenceHash, 64)

	_, err = svc.SubmitAction(u.ID, "platform-1", "", "post-9", "x", "", "", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScorePassCreditsPendingReward(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	u := seedUser(t, db, "actor", domain.RoleUser)
	a := submitPassingAction(t, svc, u.ID, "evidence-1")

	score, err := svc.Score(a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPass, score.Decision)
	assert.GreaterOrEqual(t, score.LightScore, svc.policy.PassScore)
	assert.Equal(t, int64(score.LightScore)*svc.policy.RewardPerPoint, score.FinalReward)

	var reward models.Transaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", u.ID, domain.TxTypeReward).First(&reward).Error)
	assert.Equal(t, domain.TxStatusPending, reward.Status)
	assert.Equal(t, score.FinalReward, reward.Amount)

	var action models.PPLPAction
	require.NoError(t, db.First(&action, a.ID).Error)
	assert.Equal(t, domain.ActionStatusScored, action.Status)
}

func TestScoreIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	u := seedUser(t, db, "actor", domain.RoleUser)
	a := submitPassingAction(t, svc, u.ID, "evidence-2")

	first, err := svc.Score(a.ID)
	require.NoError(t, err)
	second, err := svc.Score(a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.LightScore, second.LightScore)

	// Exactly one score row and one reward credit.
	var scores, rewards int64
	require.NoError(t, db.Model(&models.PPLPScore{}).Where("action_id = ?", a.ID).Count(&scores).Error)
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ? AND type = ?", u.ID, domain.TxTypeReward).Count(&rewards).Error)
	assert.Equal(t, int64(1), scores)
	assert.Equal(t, int64(1), rewards)
}

func TestScoreDuplicateContentHashWithholdsSecondReward(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	u := seedUser(t, db, "actor", domain.RoleUser)

	first, err := svc.SubmitAction(u.ID, "platform-1", "share", "t-1", "original share", "device-a", "ip-a", "same-artifact", 400)
	require.NoError(t, err)
	second, err := svc.SubmitAction(u.ID, "platform-1", "share", "t-2", "reposted share", "device-a", "ip-a", "same-artifact", 400)
	require.NoError(t, err)

	s1, err := svc.Score(first.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DecisionPass, s1.Decision)
	assert.Positive(t, s1.FinalReward)

	s2, err := svc.Score(second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPass, s2.Decision)
	assert.Zero(t, s2.FinalReward)

	// Only the first submission produced a reward credit.
	var rewards int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ? AND type = ?", u.ID, domain.TxTypeReward).Count(&rewards).Error)
	assert.Equal(t, int64(1), rewards)
}

func TestScoreFailGrantsNothing(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	u := seedUser(t, db, "actor", domain.RoleUser)

	// A bare like caps out at 35 even with the best evidence component.
	a, err := svc.SubmitAction(u.ID, "platform-1", "like", "post-2", "clicked", "", "", "", 0)
	require.NoError(t, err)

	score, err := svc.Score(a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionFail, score.Decision)
	assert.Zero(t, score.FinalReward)

	var rewards int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", u.ID).Count(&rewards).Error)
	assert.Zero(t, rewards)
}

func TestComputeLightScoreDeterministic(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	a := &models.PPLPAction{
		ActionType:        "share",
		EvidenceHash:      "abc123",
		DeviceFingerprint: "d",
		ContentLength:     200,
	}
	first := svc.ComputeLightScore(a)
	second := svc.ComputeLightScore(a)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0)
	assert.LessOrEqual(t, first, 100)
}

func TestScoreUnknownActionNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newScorerService(t, db)
	_, err := svc.Score(12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
