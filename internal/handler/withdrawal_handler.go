package handler

import (
	"net/http"
	"strconv"

	"camly/internal/middleware"
	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	svc  *service.WithdrawalService
	repo *repository.WithdrawalRepository
}

func NewWithdrawalHandler(svc *service.WithdrawalService, repo *repository.WithdrawalRepository) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc, repo: repo}
}

type CreateWithdrawalRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,min=1"`
}

// Create places a withdrawal request. The amount is debited exactly once here;
// processing never re-debits, and a terminal failure keeps the debit for
// operator review.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.RequestWithdrawal(userID, req.WalletAddress, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             w.ID,
		"order_id":       w.OrderID,
		"amount":         w.Amount,
		"wallet_address": w.WalletAddress,
		"status":         w.Status,
	})
}

func (h *WithdrawalHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	ws, err := h.repo.ListByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": ws})
}

// ListPending returns withdrawals awaiting processing. Admin only.
func (h *WithdrawalHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	ws, err := h.repo.ListPending(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": ws})
}

// Process executes the on-chain payout for a pending withdrawal. Admin only.
func (h *WithdrawalHandler) Process(c *gin.Context) {
	adminID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}
	txHash, err := h.svc.ProcessWithdrawal(c.Request.Context(), uint(id), adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "COMPLETED", "tx_hash": txHash})
}
