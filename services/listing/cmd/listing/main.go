package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"homeportal/internal/ratelimit"
	"homeportal/internal/util"
	"homeportal/services/listing/internal/app"
	"homeportal/services/listing/internal/config"
	"homeportal/services/listing/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		StoreDriver:      cfg.StoreDriver,
		DatabaseURL:      cfg.DatabaseURL,
		MongoURI:         cfg.MongoURI,
		MongoDatabase:    cfg.MongoDatabase,
		RedisAddr:        cfg.RedisAddr,
		RedisPassword:    cfg.RedisPassword,
		MinioEndpoint:    cfg.MinioEndpoint,
		MinioAccessKey:   cfg.MinioAccessKey,
		MinioSecretKey:   cfg.MinioSecretKey,
		MinioBucket:      cfg.MinioBucket,
		MinioUseSSL:      cfg.MinioUseSSL,
		JWKSURL:          cfg.AuthJWKSURL,
		Issuer:           cfg.AuthIssuer,
		Audience:         cfg.AuthAudience,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiTextModel:  cfg.GeminiTextModel,
		GeminiImageModel: cfg.GeminiImageModel,
		EncodePhotos:     cfg.EncodePhotos,
		UploadConcurrency: cfg.UploadConcurrency,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:     appCore,
		Limiter: limiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("listing server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
