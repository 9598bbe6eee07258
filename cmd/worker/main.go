// Package main provides the headless dashboard watcher. It runs the
// configured dashboards, logs their alert feeds and consumes refresh
// triggers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/app"
	"github.com/mentionwatch/console/internal/config"
	"github.com/mentionwatch/console/internal/telemetry"
	"github.com/mentionwatch/console/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "mentionwatch-console-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting console worker")

	cfg := config.FromEnv()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PolicyFile).Msg("failed to load policy")
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	built, err := app.BuildDashboards(app.DashboardsConfig{
		Config:     cfg,
		Policy:     policy,
		Instrument: true,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dashboards")
	}
	defer built.Registry.Close()

	feed := worker.WatchAlerts(built.Registry, log)
	defer feed.Stop()

	go func() {
		if err := built.Registry.Run(ctx); err != nil {
			log.Error().Err(err).Msg("dashboards stopped")
		}
	}()

	if cfg.PubSubEnabled() && cfg.PubSubRefreshSubscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubRefreshSubscription,
			Trigger:          worker.NewTriggerHandler(built.Registry, log),
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create refresh trigger handler")
		}
		defer func() { _ = handler.Close() }()
		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("refresh trigger handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("no refresh subscription configured, running on timers only")
	}

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		active := make(map[string]int)
		for _, d := range built.Registry.List() {
			active[d.ID()] = feed.Active(d.ID())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "healthy",
			"version":      Version,
			"activeAlerts": active,
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
