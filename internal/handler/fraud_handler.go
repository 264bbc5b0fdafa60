package handler

import (
	"net/http"

	"camly/internal/middleware"
	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

type FraudHandler struct {
	svc  *service.FraudService
	repo *repository.FraudRepository
}

func NewFraudHandler(svc *service.FraudService, repo *repository.FraudRepository) *FraudHandler {
	return &FraudHandler{svc: svc, repo: repo}
}

type CheckActorRequest struct {
	ActorID    uint                  `json:"actor_id" binding:"required"`
	ActionID   *uint                 `json:"action_id"`
	ActionType string                `json:"action_type"`
	Metadata   service.CheckMetadata `json:"metadata"`
}

// Check runs the fraud detectors against an actor. Admin only.
func (h *FraudHandler) Check(c *gin.Context) {
	var req CheckActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.svc.CheckActor(c.Request.Context(), req.ActorID, req.ActionID, req.ActionType, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListSignals returns an actor's unresolved signals. Admin only.
func (h *FraudHandler) ListSignals(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	signals, err := h.repo.ListUnresolvedByActor(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list signals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "risk_score": service.RiskScore(signals)})
}

// ResolveSignal marks a signal reviewed. Admin only.
func (h *FraudHandler) ResolveSignal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.ResolveSignal(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "resolved": true})
}

// LiftSuspension restores a suspended user. Admin only.
func (h *FraudHandler) LiftSuspension(c *gin.Context) {
	adminID := middleware.GetUserID(c)
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.LiftSuspension(id, adminID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "lifted": true})
}
