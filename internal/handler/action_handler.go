package handler

import (
	"net/http"
	"strconv"

	"camly/internal/middleware"
	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

type ActionHandler struct {
	scorer  *service.ScorerService
	actions *repository.ActionRepository
}

func NewActionHandler(scorer *service.ScorerService, actions *repository.ActionRepository) *ActionHandler {
	return &ActionHandler{scorer: scorer, actions: actions}
}

type SubmitActionRequest struct {
	PlatformID        string `json:"platform_id" binding:"required"`
	ActionType        string `json:"action_type" binding:"required,oneof=post share comment referral like"`
	TargetID          string `json:"target_id"`
	Evidence          string `json:"evidence" binding:"required"`
	DeviceFingerprint string `json:"device_fingerprint"`
	IPHash            string `json:"ip_hash"`
	ContentHash       string `json:"content_hash"`
	ContentLength     int    `json:"content_length"`
}

// Submit records a platform action for later scoring.
func (h *ActionHandler) Submit(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	var req SubmitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.scorer.SubmitAction(actorID, req.PlatformID, req.ActionType, req.TargetID, req.Evidence,
		req.DeviceFingerprint, req.IPHash, req.ContentHash, req.ContentLength)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":            a.ID,
		"status":        a.Status,
		"evidence_hash": a.EvidenceHash,
	})
}

// Score scores a single pending action. Re-scoring a scored action returns the
// stored score unchanged. Admin only.
func (h *ActionHandler) Score(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action id"})
		return
	}
	score, err := h.scorer.Score(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action_id":      score.ActionID,
		"score":          score.LightScore,
		"decision":       score.Decision,
		"reward_amount":  score.FinalReward,
		"policy_version": score.PolicyVersion,
	})
}

func (h *ActionHandler) GetScore(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action id"})
		return
	}
	score, err := h.actions.GetScoreByActionID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	if score == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "action not scored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action_id":      score.ActionID,
		"score":          score.LightScore,
		"decision":       score.Decision,
		"reward_amount":  score.FinalReward,
		"policy_version": score.PolicyVersion,
	})
}
