package handler

import (
	"net/http"
	"strconv"

	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the batch jobs and reconciliation tools. Everything
// here sits behind the admin middleware.
type AdminHandler struct {
	batch     *service.BatchService
	collector *service.CollectorService
	ledger    *repository.LedgerRepository
}

func NewAdminHandler(
	batch *service.BatchService,
	collector *service.CollectorService,
	ledger *repository.LedgerRepository,
) *AdminHandler {
	return &AdminHandler{batch: batch, collector: collector, ledger: ledger}
}

type RunBatchRequest struct {
	BatchSize int  `json:"batch_size"`
	DryRun    bool `json:"dry_run"`
}

// RunBatch scores a tranche of pending actions. The response is always 200;
// per-item failures are reported in the counts.
func (h *AdminHandler) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.BatchSize < 1 || req.BatchSize > 1000 {
		req.BatchSize = 100
	}
	report, err := h.batch.RunBatch(c.Request.Context(), req.BatchSize, req.DryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RandomAudit re-scores a random sample of settled actions and flags drift.
func (h *AdminHandler) RandomAudit(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("sample", "20"))
	if size < 1 || size > 500 {
		size = 20
	}
	flagged, err := h.batch.RandomAudit(c.Request.Context(), size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sample": size, "flagged": flagged})
}

// CrossAccountScan looks for shared devices and addresses across actors.
func (h *AdminHandler) CrossAccountScan(c *gin.Context) {
	signals, err := h.batch.CrossAccountScan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals_created": signals})
}

// ReleaseRewards settles matured pending rewards and resolves frozen ones.
func (h *AdminHandler) ReleaseRewards(c *gin.Context) {
	released, voided, err := h.batch.ReleasePendingRewards(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released, "voided": voided})
}

// CollectorScan reconciles on-chain deposits into the collector wallet.
func (h *AdminHandler) CollectorScan(c *gin.Context) {
	report, err := h.collector.Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RecomputeBalance re-derives a user's balance from the transaction log and
// reports any drift against the stored row.
func (h *AdminHandler) RecomputeBalance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	derived, err := h.ledger.RecomputeBalance(id)
	if err != nil {
		respondError(c, err)
		return
	}
	stored, err := h.ledger.GetOrCreate(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": id,
		"stored": gin.H{
			"balance":         stored.Balance,
			"reserved":        stored.Reserved,
			"lifetime_earned": stored.LifetimeEarned,
			"lifetime_spent":  stored.LifetimeSpent,
		},
		"derived": gin.H{
			"balance":         derived.Balance,
			"reserved":        derived.Reserved,
			"lifetime_earned": derived.LifetimeEarned,
			"lifetime_spent":  derived.LifetimeSpent,
		},
		"in_sync": stored.Balance == derived.Balance &&
			stored.Reserved == derived.Reserved &&
			stored.LifetimeEarned == derived.LifetimeEarned &&
			stored.LifetimeSpent == derived.LifetimeSpent,
	})
}

// TotalSupply sums every user balance, for treasury monitoring.
func (h *AdminHandler) TotalSupply(c *gin.Context) {
	total, err := h.ledger.SumBalances()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_balance": total})
}
