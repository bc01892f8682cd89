package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/config"
	logpkg "github.com/kailas-cloud/labeldesk/internal/logger"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
	"github.com/kailas-cloud/labeldesk/internal/storage"
	"github.com/kailas-cloud/labeldesk/internal/tsne"
	"github.com/kailas-cloud/labeldesk/internal/version"
	chiTransport "github.com/kailas-cloud/labeldesk/internal/transport/chi"
	"github.com/kailas-cloud/labeldesk/internal/transport/twitter"
	annotationuc "github.com/kailas-cloud/labeldesk/internal/usecase/annotation"
	clusteruc "github.com/kailas-cloud/labeldesk/internal/usecase/cluster"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
	profileuc "github.com/kailas-cloud/labeldesk/internal/usecase/profile"
	projectionuc "github.com/kailas-cloud/labeldesk/internal/usecase/projection"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting labeldesk",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg.Database, cfg.Storage.KeyPrefix, logger)
	if err != nil {
		logger.Fatal("Failed to open label store", zap.Error(err))
	}
	defer backend.Close()

	// Register domain metrics explicitly (no init())
	metrics.RegisterDomainMetrics()

	token, err := cfg.Twitter.ResolveBearerToken()
	if err != nil {
		logger.Fatal("Failed to read Twitter bearer token", zap.Error(err))
	}
	if token == "" {
		logger.Warn("No Twitter bearer token configured, profile embeds will fall back")
	}
	directory := twitter.New(twitter.Config{
		APIBaseURL:     cfg.Twitter.APIBaseURL,
		PublishBaseURL: cfg.Twitter.PublishBaseURL,
		BearerToken:    token,
		UserAgent:      cfg.Twitter.UserAgent,
		Timeout:        time.Duration(cfg.Twitter.TimeoutSec) * time.Second,
		Logger:         logger,
	})

	// Use case services
	clusterSvc := clusteruc.New(backend.Repo, logger)
	projectionSvc := projectionuc.New(projectionuc.Config{
		TSNE: tsne.Config{
			Perplexity:   cfg.Projection.Perplexity,
			LearningRate: cfg.Projection.LearningRate,
			Iterations:   cfg.Projection.Iterations,
			Seed:         cfg.Projection.Seed,
		},
		Width:  cfg.Projection.Width,
		Height: cfg.Projection.Height,
	}, nil, logger)
	profileSvc := profileuc.New(directory, directory, logger)
	healthSvc := healthuc.New(backend, directory)

	sessions := annotationuc.NewRegistry(time.Duration(cfg.Session.IdleTTLMin)*time.Minute, logger)
	go sessions.Run(ctx, time.Duration(cfg.Session.SweepIntervalSec)*time.Second)

	server := chiTransport.NewServer(clusterSvc, projectionSvc, profileSvc, sessions, healthSvc, chiTransport.Options{
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
		APIKeys:      cfg.Auth.APIKeys,
	})

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
