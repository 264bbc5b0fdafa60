package router

import (
	"time"

	"camly/config"
	"camly/internal/handler"
	"camly/internal/middleware"
	"camly/internal/repository"
	"camly/internal/service"
	"camly/pkg/chain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, chainClient chain.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	giftRepo := repository.NewGiftRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	actionRepo := repository.NewActionRepository(db)
	mintRepo := repository.NewMintRepository(db)
	fraudRepo := repository.NewFraudRepository(db)
	walletLinkRepo := repository.NewWalletLinkRepository(db)

	// Services
	notifier := service.LogNotifier{}
	roleCache := service.NewRoleCache(userRepo, 5*time.Minute)
	authSvc := service.NewAuthService(cfg, userRepo)
	transferSvc := service.NewTransferService(db, ledgerRepo, giftRepo, userRepo, fraudRepo, notifier, &cfg.Policy)
	withdrawalSvc := service.NewWithdrawalService(db, ledgerRepo, withdrawalRepo, fraudRepo, chainClient, &cfg.Chain, &cfg.Policy)
	scorerSvc := service.NewScorerService(db, actionRepo, ledgerRepo, notifier, &cfg.Policy)
	batchSvc := service.NewBatchService(db, actionRepo, ledgerRepo, fraudRepo, scorerSvc, &cfg.Policy)
	mintSvc := service.NewMintService(db, mintRepo, actionRepo, fraudRepo, chainClient, &cfg.Chain, &cfg.Policy)
	fraudSvc := service.NewFraudService(db, actionRepo, fraudRepo, ledgerRepo, roleCache, &cfg.Policy)
	collectorSvc := service.NewCollectorService(chainClient, walletLinkRepo, withdrawalRepo, ledgerRepo, fraudRepo, &cfg.Chain)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, walletLinkRepo)
	ledgerHandler := handler.NewLedgerHandler(transferSvc)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc, withdrawalRepo)
	actionHandler := handler.NewActionHandler(scorerSvc, actionRepo)
	mintHandler := handler.NewMintHandler(mintSvc, mintRepo)
	fraudHandler := handler.NewFraudHandler(fraudSvc, fraudRepo)
	adminHandler := handler.NewAdminHandler(batchSvc, collectorSvc, ledgerRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.AdminRequired()

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/balance", ledgerHandler.GetBalance)
			me.GET("/transactions", ledgerHandler.ListTransactions)
			me.GET("/withdrawals", withdrawalHandler.List)
			me.POST("/wallets", authHandler.LinkWallet)
			me.GET("/wallets", authHandler.ListWallets)
		}

		api.POST("/gifts", authMw, ledgerHandler.SendGift)
		api.POST("/withdrawals", authMw, withdrawalHandler.Create)
		api.POST("/actions", authMw, actionHandler.Submit)
		api.GET("/actions/:id/score", authMw, actionHandler.GetScore)

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.GET("/withdrawals", withdrawalHandler.ListPending)
			admin.POST("/withdrawals/:id/process", withdrawalHandler.Process)

			admin.POST("/actions/:id/score", actionHandler.Score)
			admin.POST("/batch/run", adminHandler.RunBatch)
			admin.POST("/batch/audit", adminHandler.RandomAudit)
			admin.POST("/batch/scan", adminHandler.CrossAccountScan)
			admin.POST("/batch/release", adminHandler.ReleaseRewards)

			admin.POST("/mint-requests", mintHandler.Request)
			admin.GET("/mint-requests", mintHandler.ListByStatus)
			admin.POST("/mint-requests/:id/approve", mintHandler.Approve)
			admin.POST("/mint-requests/:id/sign", mintHandler.Sign)
			admin.POST("/mint-requests/:id/settle", mintHandler.Settle)
			admin.POST("/mint-requests/:id/reject", mintHandler.Reject)
			admin.POST("/mint-batches", mintHandler.RequestBatch)
			admin.POST("/mint-batches/expire", mintHandler.ExpireStale)

			admin.POST("/fraud/check", fraudHandler.Check)
			admin.GET("/fraud/actors/:id/signals", fraudHandler.ListSignals)
			admin.POST("/fraud/signals/:id/resolve", fraudHandler.ResolveSignal)
			admin.POST("/fraud/users/:id/unsuspend", fraudHandler.LiftSuspension)

			admin.GET("/collector/scan", adminHandler.CollectorScan)
			admin.GET("/ledger/:id/recompute", adminHandler.RecomputeBalance)
			admin.GET("/supply", adminHandler.TotalSupply)
		}
	}

	return r
}
