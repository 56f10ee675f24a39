package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/config"
	"github.com/milestone-escrow/backend/internal/db"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/milestone-escrow/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const settlementJobName = "review-timeout-settlement"

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 5, MinConns: 1}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	ledger, closeLedger, err := chain.Connect(ctx, chain.ConnectOptions{
		RPCURL:         cfg.LedgerRPCURL,
		ChainID:        cfg.LedgerChainID,
		ConfirmTimeout: cfg.LedgerConfirmTimeout,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to ledger", zap.Error(err))
	}
	defer closeLedger()

	// Repos
	projectRepo := repositories.NewProjectRepo(pool)
	timelineRepo := repositories.NewTimelineRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	walletService := services.NewWalletService(walletRepo, ledger, services.WalletOptions{
		FunderKey:   cfg.FunderPrivateKey,
		MinBalance:  cfg.WalletMinBalance,
		TopUpAmount: cfg.WalletTopUpAmount,
	}, log)
	defer walletService.Wait()

	escrowService := services.NewEscrowService(projectRepo, timelineRepo, ledger, walletService, services.NewPaymentGateway(nil, log), publisher, services.EscrowOptions{
		FunderKey:    cfg.FunderPrivateKey,
		CompanyKey:   cfg.CompanyPrivateKey,
		FiatPayments: cfg.IsFiatMode(),
		ReviewPeriod: cfg.ReviewPeriod,
	}, log)
	settlement := services.NewSettlementJob(projectRepo, walletService, escrowService, log)

	// Scheduler
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.SettlementInterval),
		gocron.NewTask(func() {
			// Run logs its own summary.
			if _, err := settlement.Run(ctx); err != nil {
				log.Error("settlement run failed", zap.Error(err))
			}
		}),
		gocron.WithName(settlementJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatal("failed to register job", zap.String("job", settlementJobName), zap.Error(err))
	}
	scheduler.Start()

	// Metrics
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	go func() {
		addr := fmt.Sprintf(":%s", cfg.WorkerPort)
		if err := app.Listen(addr); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("worker started",
		zap.Duration("settlement_interval", cfg.SettlementInterval),
		zap.String("metrics_port", cfg.WorkerPort),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down worker")
	cancel()
	if err := scheduler.Shutdown(); err != nil {
		log.Error("scheduler shutdown failed", zap.Error(err))
	}
	_ = app.Shutdown()
}
