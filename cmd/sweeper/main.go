package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanoney1-alt/UpTend-sub012/internal/approval"
	"github.com/alanoney1-alt/UpTend-sub012/internal/config"
	"github.com/alanoney1-alt/UpTend-sub012/internal/logging"
	"github.com/alanoney1-alt/UpTend-sub012/internal/notify"
	"github.com/alanoney1-alt/UpTend-sub012/internal/payments"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

// The sweeper runs separately from the API so approval timeouts fire even
// when the API is down or redeploying. Sweeps are idempotent, so running
// it alongside an API instance is harmless.
func main() {
	_ = godotenv.Load()

	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2113", "address to serve prometheus metrics on")
	flag.Parse()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN == "" {
		logger.Error("PG_DSN is required for the sweeper")
		os.Exit(1)
	}
	store, err := storage.NewPostgresStore(cfg.PGDSN)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}

	var sender notify.Sender = notify.Nop{}
	if cfg.PushEndpoint != "" {
		sender = notify.NewPushSender(cfg.PushEndpoint, cfg.PushKey, nil)
	}

	svc := approval.NewService(store, store, sender, logger)
	svc.Holds = payments.NewStripeHolds()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		logger.Info("metrics/health listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("approval sweeper started", "interval", cfg.SweepInterval)
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down sweeper")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, cfg.SweepInterval)
			expired, err := svc.Sweep(sweepCtx)
			cancel()
			if err != nil {
				logger.Error("sweep failed", "error", err)
				continue
			}
			if len(expired) > 0 {
				logger.Info("sweep expired approvals", "count", len(expired))
			}
		}
	}
}
