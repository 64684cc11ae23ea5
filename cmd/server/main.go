// Command server runs the LevelUp HTTP API.
//
// Startup order: .env, config, logging, tracing, document store,
// repositories, services, router, background jobs, HTTP server. SIGINT or
// SIGTERM stops the jobs, drains in-flight requests, flushes traces and
// closes the database.
//
//go:generate swag init -g cmd/server/main.go -o docs --parseInternal
//
// @title                      LevelUp API
// @version                    1.0
// @description                Gamified LeetCode community: profiles, squads, leaderboards, challenges and notifications.
// @BasePath                   /api/v1
// @securityDefinitions.apikey EasyAuth
// @in                         header
// @name                       X-MS-CLIENT-PRINCIPAL-ID
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tbourn/levelup-backend/docs"
	"github.com/tbourn/levelup-backend/internal/config"
	"github.com/tbourn/levelup-backend/internal/docstore"
	httpapi "github.com/tbourn/levelup-backend/internal/http"
	"github.com/tbourn/levelup-backend/internal/observability"
	"github.com/tbourn/levelup-backend/internal/repo"
	"github.com/tbourn/levelup-backend/internal/services"
	"github.com/tbourn/levelup-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	log.Logger = sysutil.NewLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := docstore.Open(cfg.DBPath, docstore.Options{
		Trace:  cfg.OTEL.Enabled || sysutil.IsTruthy(os.Getenv("DB_TRACE")),
		Silent: !cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open document store")
	}
	containers, err := docstore.NewContainers(db, docstore.Settings{
		PageSize: cfg.Store.PageSize,
		Retry: docstore.RetryPolicy{
			MaxRetries:      cfg.Store.MaxRetries,
			InitialInterval: cfg.Store.RetryInitial,
		},
		Breaker: docstore.BreakerPolicy{
			ConsecutiveFailures: uint32(max(cfg.Store.BreakerFailures, 0)),
			OpenTimeout:         cfg.Store.BreakerTimeout,
		},
		CacheSize: cfg.Store.CacheSize,
		Metrics:   true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init containers")
	}

	repos := repo.New(containers,
		repo.WithLogger(log.Logger),
		repo.WithMaxLimit(cfg.Store.MaxLimit),
	)
	svc := services.New(repos)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	httpapi.RegisterRoutes(r, repos, svc, cfg)

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.Version = appVersion
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	jobsCtx, stopJobs := context.WithCancel(ctx)
	var jobs sync.WaitGroup
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		svc.Notifications.RunSweeper(jobsCtx, cfg.Jobs.NotificationSweepInterval)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.AppEnv).
			Str("db", cfg.DBPath).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	stopJobs()
	jobs.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}
	log.Info().Msg("bye")
}
