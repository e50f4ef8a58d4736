package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"platformauth/internal/httpapi"
	"platformauth/internal/session"
	"platformauth/internal/webhook"
	"platformauth/pkg/config"
	"platformauth/pkg/db"
)

func main() {
	cfg := config.Load()

	logLevel := zerolog.InfoLevel
	if cfg.AppEnv != "prod" {
		logLevel = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store session.Store
	if cfg.DatabaseURL != "" || cfg.MigrationsPath != "" {
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("db open")
		}
		defer pool.Close()

		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				log.Fatal().Err(err).Msg("migrate")
			}
		}
		store = session.NewPostgresStore(pool, cfg.Platform.ShopSuffix, log.With().Str("component", "sessions").Logger())
		log.Info().Msg("using postgres session store")
	} else {
		store = session.NewMemoryStore(cfg.Platform.ShopSuffix, log.With().Str("component", "sessions").Logger())
		log.Warn().Msg("using in-memory session store; sessions do not survive restarts and cannot be shared across instances")
	}

	sessions := session.Manager{Store: store, ShopSuffix: cfg.Platform.ShopSuffix}

	registry := webhook.NewRegistry()
	registry.Register(webhook.TopicAppUninstalled, webhook.UninstallHandler{
		Sessions: sessions,
		Log:      log.With().Str("component", "uninstall").Logger(),
	})
	billing := webhook.BillingHandler{Log: log.With().Str("component", "billing").Logger()}
	registry.Register(webhook.TopicSubscriptionUpdate, billing)
	registry.Register(webhook.TopicOneTimePurchase, billing)

	router, processor := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:      cfg,
		Sessions: sessions,
		Registry: registry,
		Log:      log,
	})

	go session.Sweeper{
		Store:    store,
		Interval: cfg.SessionSweepInterval,
		Log:      log.With().Str("component", "sweeper").Logger(),
	}.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)

	// Webhook delivery is at-least-once; drain in-flight handlers before
	// the process exits so verified events are not lost.
	processor.Wait()
}
