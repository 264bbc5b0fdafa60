package handler

import (
	"net/http"
	"strconv"

	"camly/internal/domain"
	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

type MintHandler struct {
	svc  *service.MintService
	repo *repository.MintRepository
}

func NewMintHandler(svc *service.MintService, repo *repository.MintRepository) *MintHandler {
	return &MintHandler{svc: svc, repo: repo}
}

type RequestMintRequest struct {
	ActionID         uint   `json:"action_id" binding:"required"`
	RecipientAddress string `json:"recipient_address" binding:"required"`
}

// Request creates a mint request for a passed action. Re-requesting the same
// action returns the existing request id.
func (h *MintHandler) Request(c *gin.Context) {
	var req RequestMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.RequestMint(req.ActionID, req.RecipientAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mint_request_id": id})
}

type RequestMintBatchRequest struct {
	ActionIDs        []uint `json:"action_ids" binding:"required,min=1"`
	RecipientAddress string `json:"recipient_address" binding:"required"`
}

// RequestBatch creates mint requests for many actions. Individual failures do
// not fail the batch; the counts report the split.
func (h *MintHandler) RequestBatch(c *gin.Context) {
	var req RequestMintBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.svc.RequestMintBatch(c.Request.Context(), req.ActionIDs, req.RecipientAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Approve moves a pending request to approved. Admin only.
func (h *MintHandler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Approve(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.MintStatusApproved})
}

type SignMintRequest struct {
	Signature     string `json:"signature" binding:"required"`
	SignerAddress string `json:"signer_address" binding:"required"`
}

// Sign attaches the authorizer signature to an approved request. Admin only.
func (h *MintHandler) Sign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req SignMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Sign(id, req.Signature, req.SignerAddress); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.MintStatusSigned})
}

// Settle submits the signed request on chain. Admin only.
func (h *MintHandler) Settle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	txHash, err := h.svc.Settle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.MintStatusMinted, "tx_hash": txHash})
}

type RejectMintRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject terminates a non-terminal request. Admin only.
func (h *MintHandler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RejectMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Reject(id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.MintStatusRejected})
}

// ListByStatus pages mint requests in one lifecycle state. Admin only.
func (h *MintHandler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", domain.MintStatusPending)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	ms, err := h.repo.ListByStatus(status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list mint requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mint_requests": ms})
}

// ExpireStale sweeps past-deadline requests into EXPIRED. Admin only.
func (h *MintHandler) ExpireStale(c *gin.Context) {
	n, err := h.svc.ExpireStale()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
