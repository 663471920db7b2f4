package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/royalartisanat/shop-api/internal/account"
	"github.com/royalartisanat/shop-api/internal/catalog"
	"github.com/royalartisanat/shop-api/internal/config"
	"github.com/royalartisanat/shop-api/internal/db"
	"github.com/royalartisanat/shop-api/internal/handler"
	"github.com/royalartisanat/shop-api/internal/notify"
	"github.com/royalartisanat/shop-api/internal/order"
	"github.com/royalartisanat/shop-api/internal/ratelimit"
	"github.com/royalartisanat/shop-api/internal/transport"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "shop-api").Logger()

	log.Info().Msg("Shop API starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTPNotifier(cfg.SMTP)
		log.Info().Str("smtp_host", cfg.SMTP.Host).Msg("Order notifications enabled")
	} else {
		log.Warn().Msg("SMTP not configured, order notifications disabled")
	}

	ledger := catalog.NewLedger()
	products := catalog.NewRepository(pg.Pool)
	accounts := account.NewRepository(pg.Pool)
	orders := order.NewRepository(pg.Pool, ledger)
	svc := order.NewService(orders, products, accounts, notifier)

	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	limiter.StartJanitor(ctx, cfg.RateLimit.PruneInterval)

	router := transport.NewRouter(handler.NewOrderHandler(svc), limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
