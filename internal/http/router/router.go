package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	transactionHandler *handlers.TransactionHandler,
	feeHandler *handlers.FeeHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// Публичные маршруты: расчёт комиссий не требует авторизации.
	feeRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	api.POST("/fees/calculate", feeRateLimit, feeHandler.CalculateFees)
	api.GET("/fees/estimate", feeRateLimit, feeHandler.EstimateFees)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/escrows", escrowHandler.CreateEscrow)
		protected.GET("/escrows/active", escrowHandler.GetActiveEscrows)
		protected.GET("/escrows/stats", escrowHandler.GetEscrowStats)
		protected.GET("/escrows/:id", middleware.IDValidator("id"), escrowHandler.GetEscrow)
		protected.POST("/escrows/:id/fund", middleware.IDValidator("id"), escrowHandler.FundEscrow)
		protected.POST("/escrows/:id/release", middleware.IDValidator("id"), escrowHandler.ReleaseEscrow)
		protected.POST("/escrows/:id/refund", middleware.IDValidator("id"), escrowHandler.RefundEscrow)
		protected.POST("/escrows/:id/conditions/:index/complete", middleware.IDValidator("id"), escrowHandler.CompleteCondition)
		protected.POST("/escrows/:id/check-auto-release", middleware.IDValidator("id"), escrowHandler.CheckAutoRelease)
		protected.GET("/jobs/:id/escrow", middleware.IDValidator("id"), escrowHandler.GetEscrowByJob)

		protected.POST("/disputes", disputeHandler.OpenDispute)
		protected.GET("/disputes", disputeHandler.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.IDValidator("id"), disputeHandler.GetDispute)
		protected.POST("/disputes/:id/messages", middleware.IDValidator("id"), disputeHandler.AddMessage)
		protected.POST("/disputes/:id/evidence", middleware.IDValidator("id"), disputeHandler.AddEvidence)
		protected.POST("/disputes/:id/escalate", middleware.IDValidator("id"), disputeHandler.EscalateDispute)

		protected.GET("/transactions", transactionHandler.ListMyTransactions)
		protected.GET("/transactions/volume", transactionHandler.GetMyVolume)
		protected.GET("/transactions/reference/:reference", transactionHandler.GetTransactionByReference)
		protected.GET("/transactions/:id", middleware.IDValidator("id"), transactionHandler.GetTransaction)
	}

	// Администрирование: разрешение споров и ручные операции с леджером.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.POST("/escrows/:id/resolve-dispute", middleware.IDValidator("id"), escrowHandler.ResolveEscrowDispute)

		admin.GET("/disputes/attention", disputeHandler.ListRequiringAttention)
		admin.GET("/disputes/stats", disputeHandler.GetDisputeStats)
		admin.PATCH("/disputes/:id/status", middleware.IDValidator("id"), disputeHandler.UpdateStatus)
		admin.POST("/disputes/:id/resolve", middleware.IDValidator("id"), disputeHandler.ResolveDispute)

		admin.POST("/transactions", transactionHandler.CreateTransaction)
		admin.PATCH("/transactions/:id/status", middleware.IDValidator("id"), transactionHandler.UpdateTransactionStatus)
		admin.POST("/transactions/:id/attempts", middleware.IDValidator("id"), transactionHandler.RecordProcessingAttempt)
	}

	return r
}
