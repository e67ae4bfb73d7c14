package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-billing/internal/config"
	"github.com/ignatzorin/freelance-billing/internal/http/handlers"
	"github.com/ignatzorin/freelance-billing/internal/http/middleware"
	"github.com/ignatzorin/freelance-billing/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	contractHandler *handlers.ContractHandler,
	milestoneHandler *handlers.MilestoneHandler,
	timesheetHandler *handlers.TimesheetHandler,
	billingHandler *handlers.BillingHandler,
	payoutHandler *handlers.PayoutHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
	webhookHandler *handlers.WebhookHandler,
	cronHandler *handlers.CronHandler,
	wsHandler *handlers.WSHandler,
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

	// Вебхуки шлюзов живут вне /api: путь прописан в настройках шлюза.
	// Подпись вместо JWT, rate limit от шумных ретраев.
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		webhooks.POST("/stripe", webhookHandler.Stripe)
		webhooks.POST("/paypal", webhookHandler.Paypal)
	}

	// Служебные запуски batch-задач, статический токен вместо JWT
	cron := r.Group("/cron")
	cron.Use(middleware.InternalTokenMiddleware(cfg.InternalCronToken))
	{
		cron.POST("/charge-weekly", cronHandler.ChargeWeekly)
		cron.POST("/payout-weekly", cronHandler.PayoutWeekly)
	}

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
		protected.POST("/contracts/:id/pause", middleware.UUIDValidator("id"), contractHandler.Pause)
		protected.POST("/contracts/:id/resume", middleware.UUIDValidator("id"), contractHandler.Resume)
		protected.POST("/contracts/:id/complete", middleware.UUIDValidator("id"), contractHandler.Complete)
		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), contractHandler.Cancel)
		protected.PATCH("/contracts/:id/settings", middleware.UUIDValidator("id"), contractHandler.UpdateSettings)

		// Вехи fixed-контрактов
		protected.POST("/contracts/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.Create)
		protected.GET("/contracts/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.List)
		protected.POST("/milestones/:id/fund", middleware.UUIDValidator("id"), milestoneHandler.Fund)
		protected.POST("/milestones/:id/submit", middleware.UUIDValidator("id"), milestoneHandler.Submit)
		protected.POST("/milestones/:id/request-revision", middleware.UUIDValidator("id"), milestoneHandler.RequestRevision)
		protected.POST("/milestones/:id/accept", middleware.UUIDValidator("id"), milestoneHandler.Accept)

		// Табели hourly-контрактов
		protected.POST("/contracts/:id/time-entries", middleware.UUIDValidator("id"), timesheetHandler.AddTimeEntry)
		protected.GET("/contracts/:id/timesheets", middleware.UUIDValidator("id"), timesheetHandler.List)
		protected.POST("/timesheets/:id/submit", middleware.UUIDValidator("id"), timesheetHandler.Submit)
		protected.POST("/timesheets/:id/approve", middleware.UUIDValidator("id"), timesheetHandler.Approve)
		protected.POST("/timesheets/:id/dispute", middleware.UUIDValidator("id"), timesheetHandler.Dispute)

		// Журнал, балансы, инвойсы
		protected.GET("/contracts/:id/balance", middleware.UUIDValidator("id"), billingHandler.EscrowBalance)
		protected.GET("/contracts/:id/ledger", middleware.UUIDValidator("id"), billingHandler.History)
		protected.GET("/invoices", billingHandler.Invoices)
		protected.GET("/invoices/:id", middleware.UUIDValidator("id"), billingHandler.Invoice)

		// Выплаты
		protected.GET("/payouts/balance", payoutHandler.Balance)
		protected.GET("/payouts", payoutHandler.History)
		protected.POST("/payouts/methods", payoutHandler.AddMethod)
		protected.GET("/payouts/methods", payoutHandler.ListMethods)
		protected.DELETE("/payouts/methods/:id", middleware.UUIDValidator("id"), payoutHandler.DeactivateMethod)

		// Споры
		protected.POST("/contracts/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.GET("/contracts/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.List)
		protected.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.TakeUnderReview)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		protected.POST("/disputes/:id/cancel", middleware.UUIDValidator("id"), disputeHandler.Cancel)

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.UnreadCount)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
	}

	return r
}
