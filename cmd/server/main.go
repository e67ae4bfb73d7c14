package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-billing/internal/config"
	"github.com/ignatzorin/freelance-billing/internal/cron"
	"github.com/ignatzorin/freelance-billing/internal/db"
	"github.com/ignatzorin/freelance-billing/internal/gateway"
	"github.com/ignatzorin/freelance-billing/internal/goroutine"
	httpHandlers "github.com/ignatzorin/freelance-billing/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-billing/internal/http/router"
	"github.com/ignatzorin/freelance-billing/internal/logger"
	"github.com/ignatzorin/freelance-billing/internal/pkg/feecalc"
	"github.com/ignatzorin/freelance-billing/internal/repository"
	"github.com/ignatzorin/freelance-billing/internal/service"
	"github.com/ignatzorin/freelance-billing/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Проверка JWT выдаётся внешним auth-сервисом, нам нужна только валидация.
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	contractRepo := repository.NewContractRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	timesheetRepo := repository.NewTimesheetRepository(dbConn)
	invoiceRepo := repository.NewInvoiceRepository(dbConn)
	payoutRepo := repository.NewPayoutRepository(dbConn)
	payoutMethodRepo := repository.NewPayoutMethodRepository(dbConn)
	billingProfileRepo := repository.NewBillingProfileRepository(dbConn)
	feeOverrideRepo := repository.NewFeeOverrideRepository(dbConn, ledgerRepo)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	cronLeaseRepo := repository.NewCronLeaseRepository(dbConn)

	// Платёжные шлюзы.
	stripeGateway := gateway.NewStripeGateway(
		cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.StripeWebhookSecret,
		cfg.GatewayTimeout, cfg.GatewayConnectTimeout, logger.WithComponent("stripe"),
	)
	paypalGateway := gateway.NewPaypalGateway(
		cfg.PaypalBaseURL, cfg.PaypalClientID, cfg.PaypalClientSecret, cfg.PaypalWebhookID,
		cfg.GatewayTimeout, cfg.GatewayConnectTimeout, logger.WithComponent("paypal"),
	)

	// Вебсокеты.
	hub := ws.NewHub(logger.WithComponent("ws"))
	goroutine.SafeGo(hub.Run)

	// Сервисы.
	feeCalculator := feecalc.NewCalculator(feeOverrideRepo)
	notificationService := service.NewNotificationService(notificationRepo, hub, logger.WithComponent("notifications"))
	contractService := service.NewContractService(contractRepo, disputeRepo, logger.WithComponent("contracts"))
	milestoneService := service.NewMilestoneService(
		milestoneRepo, contractRepo, billingProfileRepo,
		stripeGateway, feeCalculator, cfg.MilestoneRevisionLimit,
		logger.WithComponent("milestones"),
	)
	timesheetService := service.NewTimesheetService(timesheetRepo, contractRepo, logger.WithComponent("timesheets"))
	billingService := service.NewBillingService(
		timesheetRepo, contractRepo, billingProfileRepo,
		stripeGateway, cfg.CronWorkers, logger.WithComponent("billing"),
	)
	payoutService := service.NewPayoutService(
		payoutRepo, payoutMethodRepo, ledgerRepo,
		stripeGateway, paypalGateway,
		cfg.MinPayoutAmount, cfg.PeerPayoutFeeRate,
		cfg.CronWorkers, logger.WithComponent("payouts"),
	)
	reconciliationService := service.NewReconciliationService(
		ledgerRepo, payoutRepo, milestoneRepo, notificationService,
		logger.WithComponent("reconciliation"),
	)
	ledgerService := service.NewLedgerService(ledgerRepo, invoiceRepo, contractRepo)
	payoutMethodService := service.NewPayoutMethodService(payoutMethodRepo)
	disputeService := service.NewDisputeService(disputeRepo, contractRepo, logger.WithComponent("disputes"))

	// Планировщик недельных batch-задач.
	scheduler := cron.NewScheduler(
		cronLeaseRepo, billingService, payoutService,
		cfg.CronLeaseTTL, logger.WithComponent("cron"),
	)
	if err := scheduler.Start(cfg.BillingCronSpec, cfg.PayoutCronSpec); err != nil {
		log.Fatalf("main: ошибка запуска планировщика: %v", err)
	}
	defer scheduler.Stop()

	// HTTP хэндлеры.
	contractHandler := httpHandlers.NewContractHandler(contractService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService)
	timesheetHandler := httpHandlers.NewTimesheetHandler(timesheetService)
	billingHandler := httpHandlers.NewBillingHandler(ledgerService)
	payoutHandler := httpHandlers.NewPayoutHandler(payoutService, payoutMethodService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	webhookHandler := httpHandlers.NewWebhookHandler(stripeGateway, paypalGateway, reconciliationService, logger.WithComponent("webhooks"))
	cronHandler := httpHandlers.NewCronHandler(billingService, payoutService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		contractHandler, milestoneHandler, timesheetHandler,
		billingHandler, payoutHandler, disputeHandler,
		notificationHandler, webhookHandler, cronHandler,
		wsHandler, healthHandler, tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
