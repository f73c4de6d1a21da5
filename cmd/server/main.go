// Command server runs the engagement pipeline API: webhook ingestion,
// campaign sends, segmentation and deliverability reporting.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/api"
	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/config"
	"github.com/machinesoul11/ss-website-sub000/internal/deliverability"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/distlock"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
	"github.com/machinesoul11/ss-website-sub000/internal/repository/postgres"
	"github.com/machinesoul11/ss-website-sub000/internal/sendtime"
	"github.com/machinesoul11/ss-website-sub000/internal/transport/sendgrid"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("database unreachable: %v", err)
	}
	pingCancel()
	logger.Info("database connected")

	store := postgres.New(db)

	// Redis backs the campaign intent lock when configured; otherwise the
	// orchestrator falls back to a Postgres advisory lock.
	var lockFactory campaign.LockFactory
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Warn("redis unreachable, using pg advisory locks", "addr", cfg.Redis.Addr, "error", err.Error())
			redisClient.Close()
		} else {
			defer redisClient.Close()
			ttl := time.Duration(cfg.Campaign.LockTTLSeconds) * time.Second
			lockFactory = func(key string) distlock.DistLock {
				return distlock.NewRedisLock(redisClient, key, ttl)
			}
			logger.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}
	if lockFactory == nil {
		lockFactory = func(key string) distlock.DistLock {
			return distlock.NewPGAdvisoryLock(db, key)
		}
	}

	transport := sendgrid.NewClient(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	if cfg.SendGrid.BaseURL != "" {
		transport.SetBaseURL(cfg.SendGrid.BaseURL)
	}

	campaigns := campaign.NewService(store, store, transport, cfg.Site.BaseURL,
		campaign.WithThrottle(cfg.Campaign.BatchSize, cfg.Campaign.BatchDelay()),
		campaign.WithLockFactory(lockFactory),
	)

	verifier := webhook.NewVerifier(cfg.Webhook.SigningKey)
	if !verifier.Enabled() {
		logger.Warn("webhook signature verification disabled (no signing key configured)")
	}

	handlers := &api.Handlers{
		Campaigns:                campaigns,
		Users:                    store,
		Scorer:                   engagement.NewScorer(store),
		Processor:                webhook.NewProcessor(store),
		Verifier:                 verifier,
		Monitor:                  deliverability.NewMonitor(store),
		Evaluator:                abtest.NewEvaluator(store, nil),
		Optimizer:                sendtime.NewOptimizer(store),
		Ping:                     store.Ping,
		DeliverabilityWindowDays: cfg.Reports.DeliverabilityWindowDays,
		SendTimeWindowDays:       cfg.Reports.SendTimeWindowDays,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Server, handlers)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
	logger.Info("server stopped")
}
