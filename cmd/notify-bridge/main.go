package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/config"
	"github.com/milestone-escrow/backend/internal/db"
	"github.com/milestone-escrow/backend/internal/events"
	"github.com/milestone-escrow/backend/internal/mail"
	"github.com/milestone-escrow/backend/internal/repositories"
	"go.uber.org/zap"
)

// Notify Bridge: small service that subscribes to notification events in
// Redis and delivers them to the recipient by email.

const sendTimeout = 30 * time.Second

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2, MinConns: 1}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	mailer, err := mail.NewSender(cfg, log)
	if err != nil {
		log.Fatal("failed to configure mail", zap.Error(err))
	}
	users := repositories.NewUserRepo(pool)
	subscriber := events.NewRedisSubscriber(rdb, log)

	log.Info("notify-bridge started")

	err = subscriber.Subscribe(ctx, events.StreamNotifications, func(event events.Event) {
		if event.Type != events.EventNotification {
			return
		}
		forwardByEmail(ctx, users, mailer, event, log)
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}

func forwardByEmail(ctx context.Context, users *repositories.UserRepo, mailer mail.Sender, event events.Event, log *zap.Logger) {
	raw, _ := event.Payload["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return
	}
	title, _ := event.Payload["title"].(string)
	body, _ := event.Payload["body"].(string)
	if title == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		log.Warn("notification recipient lookup failed", zap.String("user_id", raw), zap.Error(err))
		return
	}
	if err := mailer.Send(ctx, mail.NotificationMessage(user.Email, title, body)); err != nil {
		log.Warn("failed to forward notification", zap.String("user_id", raw), zap.Error(err))
		return
	}
	log.Info("notification forwarded", zap.String("user_id", raw))
}
