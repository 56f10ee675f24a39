package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/config"
	"github.com/milestone-escrow/backend/internal/db"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/milestone-escrow/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisLastRun     = "chain-indexer:last_run"
	redisLastIndexed = "chain-indexer:last_indexed"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
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

	indexer := services.NewIndexerService(
		repositories.NewProjectRepo(pool),
		ledger,
		repositories.NewChainEventRepo(pool),
		events.NewRedisPublisher(rdb, log),
		log,
	)

	log.Info("chain indexer started", zap.Duration("interval", cfg.IndexerInterval))

	ticker := time.NewTicker(cfg.IndexerInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runOnce(ctx, indexer, rdb, log)
	for {
		select {
		case <-ticker.C:
			runOnce(ctx, indexer, rdb, log)
		case <-sigCh:
			log.Info("shutting down chain indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runOnce performs one indexing pass and records its outcome in redis for
// operators. A pass never returns early on a single project's failure.
func runOnce(ctx context.Context, indexer *services.IndexerService, rdb *redis.Client, log *zap.Logger) {
	started := time.Now()
	indexed, err := indexer.IndexAll(ctx)
	if err != nil {
		log.Error("index pass failed", zap.Error(err))
		return
	}

	_ = rdb.Set(ctx, redisLastRun, started.UTC().Format(time.RFC3339), 0).Err()
	if indexed > 0 {
		_ = rdb.Set(ctx, redisLastIndexed, indexed, 0).Err()
		log.Info("index pass finished", zap.Int("indexed", indexed), zap.Duration("took", time.Since(started)))
	}
}
