// README: Entry point; loads config, wires services, starts the HTTP server and drains plan jobs on shutdown.
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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"friendus/internal/app"
	"friendus/internal/cache"
	"friendus/internal/config"
	httptransport "friendus/internal/http"
	"friendus/internal/infra"
	"friendus/internal/modules/activity"
	"friendus/internal/modules/aiusage"
	"friendus/internal/modules/planjob"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := infra.NewLogger(cfg.Log.Level, zap.String("service", "friendus-api"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("friendus-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kv cache.Store
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		kv = cache.NewRedisStore(redisClient, "friendus:")
	} else {
		logger.Warn("FRIENDUS_REDIS_ADDR not set; plan jobs and place cache are kept in memory")
		kv = cache.NewMemoryStore(cfg.Jobs.TTL, 10*time.Minute)
	}

	engine, err := app.NewEngine(ctx, cfg, kv, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	jobOpts := planjob.Options{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		Timeout:       cfg.Jobs.Timeout,
		Logger:        logger.Named("planjob"),
	}
	if engine.Weather != nil {
		jobOpts.Weather = engine.Weather
	}

	deps := httptransport.Deps{Logger: logger.Named("http")}
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer dbPool.Close()
		if cfg.DB.Migrate {
			if err := infra.RunMigrations(cfg.DB.DSN, logger.Named("migrate")); err != nil {
				return err
			}
		}

		usage := aiusage.NewService(aiusage.NewStore(dbPool), cfg.Quota.MonthlyCredits)
		jobOpts.Quota = usage
		deps.Credits = usage
		deps.Activities = activity.NewService(activity.NewStore(dbPool))
	} else {
		logger.Warn("FRIENDUS_DB_DSN not set; credits and room activities are disabled")
	}

	jobs := planjob.NewService(planjob.NewStore(kv, cfg.Jobs.TTL), engine.Planner, jobOpts)
	deps.Jobs = jobs

	if logger.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		logger.Warn("plan jobs did not drain", zap.Error(err))
	}
	return nil
}
