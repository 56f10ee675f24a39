package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/config"
	"github.com/milestone-escrow/backend/internal/db"
	"github.com/milestone-escrow/backend/internal/events"
	apphttp "github.com/milestone-escrow/backend/internal/http"
	"github.com/milestone-escrow/backend/internal/http/handlers"
	"github.com/milestone-escrow/backend/internal/mail"
	"github.com/milestone-escrow/backend/internal/ratelimit"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Ledger
	ledger, closeLedger, err := chain.Connect(ctx, chain.ConnectOptions{
		RPCURL:         cfg.LedgerRPCURL,
		ChainID:        cfg.LedgerChainID,
		ConfirmTimeout: cfg.LedgerConfirmTimeout,
		ArtifactPath:   cfg.EscrowArtifactPath,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to ledger", zap.Error(err))
	}
	defer closeLedger()

	// Mail
	mailer, err := mail.NewSender(cfg, log)
	if err != nil {
		log.Fatal("failed to configure mail", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	projectRepo := repositories.NewProjectRepo(pool)
	timelineRepo := repositories.NewTimelineRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)
	chainEventRepo := repositories.NewChainEventRepo(pool)
	mfaRepo := repositories.NewMfaRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Rate limiting
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimitBackend == "redis" {
		store = ratelimit.NewRedisStore(rdb)
	}
	limiter := ratelimit.New(store, log)

	// Services
	walletService := services.NewWalletService(walletRepo, ledger, services.WalletOptions{
		FunderKey:   cfg.FunderPrivateKey,
		MinBalance:  cfg.WalletMinBalance,
		TopUpAmount: cfg.WalletTopUpAmount,
	}, log)
	defer walletService.Wait()

	gateway := services.NewPaymentGateway(nil, log)
	escrowService := services.NewEscrowService(projectRepo, timelineRepo, ledger, walletService, gateway, publisher, services.EscrowOptions{
		FunderKey:    cfg.FunderPrivateKey,
		CompanyKey:   cfg.CompanyPrivateKey,
		FiatPayments: cfg.IsFiatMode(),
		ReviewPeriod: cfg.ReviewPeriod,
	}, log)
	mfaService := services.NewMfaService(mfaRepo, userRepo, mailer, services.MfaOptions{
		Secret:       cfg.MfaCodeSecret,
		TTL:          cfg.MfaCodeTTL,
		OverrideCode: cfg.MfaOverrideCode,
	}, log).WithAuditor(auditRepo)
	authService := services.NewAuthService(userRepo, mfaService, cfg.JWTSecret, cfg.JWTExpiration, log).WithAuditor(auditRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, timelineRepo, chainEventRepo, notificationRepo, log)
	indexerService := services.NewIndexerService(projectRepo, ledger, chainEventRepo, publisher, log)

	// Handlers
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)
	h := apphttp.Handlers{
		Auth:    handlers.NewAuthHandler(authService, log),
		User:    handlers.NewUserHandler(authService, auditRepo, log),
		Mfa:     handlers.NewMfaHandler(mfaService, log),
		Project: handlers.NewProjectHandler(projectService, log),
		Escrow:  handlers.NewEscrowHandler(escrowService, mfaService, log),
		Indexer: handlers.NewIndexerHandler(indexerService, log),
		Meta:    handlers.NewMetaHandler(cfg.IsFiatMode()),
		WSHub:   wsHub,
	}

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, limiter, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
