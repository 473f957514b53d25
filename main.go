package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradecopier/config"
	"tradecopier/internal/adapter"
	"tradecopier/internal/audit"
	"tradecopier/internal/cache"
	"tradecopier/internal/database"
	"tradecopier/internal/engine"
	"tradecopier/internal/handlers"
	"tradecopier/internal/scheduler"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	log.Info().Str("environment", cfg.Environment).Msg("starting trade copier")

	gw, err := database.NewGateway(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer gw.Close()

	discoveryCache, err := cache.NewRedisDiscoveryCache(cfg.RedisURL, 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	defer discoveryCache.Close()

	endpoints, err := config.LoadEndpointOverrides(cfg.AdapterEndpointsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load adapter endpoint overrides")
	}

	useMock := !cfg.UseRealAdapters
	registry := adapter.NewRegistry(useMock, discoveryCache, cfg.MaxAPIRequestsPerMinute, endpoints)

	eng := engine.NewEngine(cfg, gw, registry)
	accounts := engine.NewAccountManager(gw, registry)

	var archiver *audit.Archiver
	if cfg.S3AuditBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("failed to load AWS config, execution log archiving disabled")
		} else {
			archiver = audit.NewArchiver(gw, s3.NewFromConfig(awsCfg), cfg.S3AuditBucket, cfg.S3AuditPrefix)
		}
	}

	sched := scheduler.New(gw, archiver, eng, cfg.RetentionMaxAge)
	if err := sched.Start(cfg.RetentionSweepCron); err != nil {
		log.Fatal().Err(err).Msg("failed to start maintenance scheduler")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sched.RecoverOnStartup(startupCtx)
	cancel()

	apiHandler := handlers.NewAPIHandler(gw, eng, accounts)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      apiHandler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	eng.Shutdown(shutdownCtx)
	stopped := sched.Stop()
	<-stopped.Done()
	srv.Shutdown(shutdownCtx)

	log.Info().Msg("shutdown complete")
}
