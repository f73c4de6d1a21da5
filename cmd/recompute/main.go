// Command recompute runs a full engagement-score recompute over every signup
// and exits. Meant for cron or as a manual backfill after importing events.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/machinesoul11/ss-website-sub000/internal/config"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
	"github.com/machinesoul11/ss-website-sub000/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	userID := flag.String("user", "", "recompute a single user instead of everyone")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database url is required (database.url or DATABASE_URL)")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	scorer := engagement.NewScorer(postgres.New(db))

	if *userID != "" {
		score, err := scorer.Recompute(ctx, *userID)
		if err != nil {
			log.Fatalf("recompute %s: %v", *userID, err)
		}
		fmt.Printf("user %s: score %d (interactions=%d feedback=%d profile=%d recency=%d)\n",
			*userID, score.Total,
			score.Breakdown.EmailInteractions, score.Breakdown.FeedbackSubmissions,
			score.Breakdown.ProfileCompleteness, score.Breakdown.ActivityRecency)
		return
	}

	result, err := scorer.RecomputeAll(ctx)
	if err != nil {
		log.Fatalf("recompute all: %v", err)
	}
	fmt.Printf("recomputed %d users, %d errors\n", result.Updated, len(result.Errors))
	for _, e := range result.Errors {
		fmt.Println("  ", e)
	}
}
