// Command cleanup deletes orphaned photo objects whose listing was never
// persisted. Intended to run on a schedule (cron or similar).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"homeportal/internal/cleanup"
	"homeportal/internal/util"
	"homeportal/services/listing/internal/app"
	"homeportal/services/listing/internal/config"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config.yaml")
	retentionHours := flag.Int("retention-hours", cleanup.DefaultConfig().RetentionHours, "minimum orphan age before deletion")
	maxDeletions := flag.Int("max-deletions", cleanup.DefaultConfig().MaxDeletionCount, "abort when more objects than this are eligible")
	dryRun := flag.Bool("dry-run", false, "report without deleting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		StoreDriver:    cfg.StoreDriver,
		DatabaseURL:    cfg.DatabaseURL,
		MongoURI:       cfg.MongoURI,
		MongoDatabase:  cfg.MongoDatabase,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		JWKSURL:        cfg.AuthJWKSURL,
		Issuer:         cfg.AuthIssuer,
		Audience:       cfg.AuthAudience,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	runCfg := cleanup.DefaultConfig()
	runCfg.RetentionHours = *retentionHours
	runCfg.MaxDeletionCount = *maxDeletions
	runCfg.DryRun = *dryRun

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	result, err := cleanup.NewService(appCore.Store(), appCore.Objects(), logger).Run(ctx, runCfg)
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
