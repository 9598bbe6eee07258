// Package main provides the entrypoint for the MentionWatch console API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/api"
	"github.com/mentionwatch/console/internal/api/middleware"
	"github.com/mentionwatch/console/internal/app"
	"github.com/mentionwatch/console/internal/auth"
	"github.com/mentionwatch/console/internal/automation"
	"github.com/mentionwatch/console/internal/config"
	"github.com/mentionwatch/console/internal/database"
	"github.com/mentionwatch/console/internal/telemetry"
	"github.com/mentionwatch/console/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "mentionwatch-console-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting console API")

	cfg := config.FromEnv()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PolicyFile).Msg("failed to load policy")
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
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

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

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
	log.Info().
		Int("dashboards", len(policy.Dashboards)).
		Str("upstream", cfg.UpstreamBaseURL).
		Msg("dashboards configured")

	// Automation settings store
	var repo automation.Repository
	switch cfg.AutomationStore {
	case config.StoreMemory:
		repo = automation.NewInMemoryRepository()
		log.Warn().Msg("automation settings kept in memory")
	default:
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure schema")
		}
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
		repo = automation.NewPostgresRepository(pool)
	}

	var publisher automation.Publisher = automation.LogPublisher{Logger: log}
	if cfg.PubSubEnabled() && cfg.PubSubAutomationTopic != "" {
		pub, err := automation.NewPubSubPublisher(ctx, automation.PubSubPublisherConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubAutomationTopic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create automation publisher")
		}
		defer func() { _ = pub.Close() }()
		publisher = pub
	}

	automationService := automation.NewService(automation.ServiceConfig{
		Repository:    repo,
		Publisher:     publisher,
		BufferMinutes: policy.Thresholds.RecencyBufferMinutes,
		Logger:        log,
	})

	signingKey := cfg.JWTSigningKey
	if signingKey == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("JWT_SIGNING_KEY is required in production")
		}
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{
		SigningKey: signingKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Leeway:     30 * time.Second,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Logger:     log,
		Metrics:    metrics,
		Verifier:   verifier,
		Upstreams:  built.Upstreams,
		Dashboards: built.Registry,
		Automation: automationService,
		RequireTLS: cfg.IsProduction(),
	})

	// Dashboard cycles stop with ctx.
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
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
