package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"camly/internal/domain"
	"camly/internal/middleware"
	"camly/internal/models"
	"camly/internal/repository"
	"camly/internal/service"

	"github.com/gin-gonic/gin"
)

var walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type AuthHandler struct {
	svc     *service.AuthService
	wallets *repository.WalletLinkRepository
}

func NewAuthHandler(svc *service.AuthService, wallets *repository.WalletLinkRepository) *AuthHandler {
	return &AuthHandler{svc: svc, wallets: wallets}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, access, refresh, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user": gin.H{
			"id":       u.ID,
			"email":    u.Email,
			"username": u.Username,
			"role":     u.Role,
		},
	})
}

type LinkWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// LinkWallet registers an external address for the caller, used by the
// collector scan to attribute inbound deposits.
func (h *AuthHandler) LinkWallet(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req LinkWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Address))
	if !walletAddressRe.MatchString(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}
	link := &models.WalletLink{UserID: userID, Address: addr, Source: domain.WalletSourceRegistered}
	if err := h.wallets.Upsert(link); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link wallet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

func (h *AuthHandler) ListWallets(c *gin.Context) {
	userID := middleware.GetUserID(c)
	links, err := h.wallets.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list wallets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": links})
}
