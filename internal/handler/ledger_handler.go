package handler

import (
	"net/http"
	"strconv"

	"camly/internal/middleware"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	transfers *service.TransferService
}

func NewLedgerHandler(transfers *service.TransferService) *LedgerHandler {
	return &LedgerHandler{transfers: transfers}
}

type SendGiftRequest struct {
	ReceiverID  uint   `json:"receiver_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,min=1"`
	Message     string `json:"message" binding:"max=500"`
	GiftType    string `json:"gift_type"`
	ContextType string `json:"context_type" binding:"omitempty,oneof=post profile project"`
	ContextID   string `json:"context_id"`
}

// SendGift moves tokens from the caller to the receiver. Resubmitting the same
// gift within the dedup window returns the original gift id with a 200.
func (h *LedgerHandler) SendGift(c *gin.Context) {
	senderID := middleware.GetUserID(c)
	var req SendGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	giftID, err := h.transfers.Transfer(senderID, req.ReceiverID, req.Amount, req.Message, req.GiftType, req.ContextType, req.ContextID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gift_id": giftID,
		"amount":  req.Amount,
		"status":  "SETTLED",
	})
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	b, err := h.transfers.GetBalance(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":         b.Balance,
		"reserved":        b.Reserved,
		"lifetime_earned": b.LifetimeEarned,
		"lifetime_spent":  b.LifetimeSpent,
	})
}

func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	txs, err := h.transfers.ListTransactions(userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
