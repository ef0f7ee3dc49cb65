package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/alanoney1-alt/UpTend-sub012/internal/approval"
	"github.com/alanoney1-alt/UpTend-sub012/internal/assign"
	"github.com/alanoney1-alt/UpTend-sub012/internal/config"
	"github.com/alanoney1-alt/UpTend-sub012/internal/credentials"
	"github.com/alanoney1-alt/UpTend-sub012/internal/directory"
	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	httpapi "github.com/alanoney1-alt/UpTend-sub012/internal/http"
	"github.com/alanoney1-alt/UpTend-sub012/internal/ingest"
	"github.com/alanoney1-alt/UpTend-sub012/internal/logging"
	"github.com/alanoney1-alt/UpTend-sub012/internal/matcher"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/narrative"
	"github.com/alanoney1-alt/UpTend-sub012/internal/notify"
	"github.com/alanoney1-alt/UpTend-sub012/internal/payments"
	"github.com/alanoney1-alt/UpTend-sub012/internal/pricing"
	"github.com/alanoney1-alt/UpTend-sub012/internal/routing"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var store storage.Store
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			runMigrations(cfg.PGDSN, logger)
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		store = storage.NewMemoryStore()
	}

	var locations geo.Locations
	if cfg.RedisAddr != "" {
		locations = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		locations = geo.NewIndex()
	}

	pros := directory.NewMemory(locations)
	credRegistry := credentials.NewMemoryRegistry()

	requirements := credentials.DefaultRequirements()
	if err := requirements.Validate(); err != nil {
		logger.Error("invalid credential requirements", "error", err)
		os.Exit(1)
	}
	gate := credentials.NewGate(requirements, credRegistry, credentials.StaticAccounts{}, logger)

	wsReg := notify.NewWSRegistry(logger)
	var sender notify.Sender = wsReg
	if cfg.PushEndpoint != "" {
		sender = notify.NewPushSender(cfg.PushEndpoint, cfg.PushKey, wsReg)
	}

	var narrator matcher.Narrator
	if cfg.OpenAIAPIKey != "" {
		gen, err := narrative.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Warn("narrative generator disabled", "error", err)
		} else {
			narrator = gen
		}
	}

	match := &matcher.Service{Gate: gate, Narrator: narrator, Logger: logger, TopN: cfg.MatcherTopN}
	assigner := &assign.Assigner{Directory: pros, Matcher: match, Jobs: store, Logger: logger}
	planner := &routing.Planner{Jobs: store}
	heatmap := &directory.HeatmapService{Directory: pros, Regions: defaultRegions()}

	approvals := approval.NewService(store, store, sender, logger)
	approvals.Holds = payments.NewStripeHolds()

	var engine pricing.Engine
	if cfg.PricingEndpoint != "" {
		engine = pricing.NewHTTPEngine(cfg.PricingEndpoint)
	} else {
		engine = unknownEngine{}
	}
	verifier := pricing.NewVerifier(engine, store, approvals, logger)
	verifier.AutoApprovePct = cfg.AutoApprovePct
	verifier.ApprovalWindow = cfg.ApprovalWindow

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
	}

	srv := httpapi.NewServer(logger)
	srv.Store = store
	srv.Directory = pros
	srv.Locations = locations
	srv.Gate = gate
	srv.Matcher = match
	srv.Assigner = assigner
	srv.Planner = planner
	srv.Heatmap = heatmap
	srv.Verifier = verifier
	srv.Approvals = approvals
	srv.Kafka = kp
	srv.WSReg = wsReg
	srv.Pros = pros
	srv.CredRegistry = credRegistry
	srv.Init()

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("dispatch api listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// unknownEngine stands in when no pricing endpoint is configured: every
// recompute falls back to the original quoted price.
type unknownEngine struct{}

func (unknownEngine) Recompute(ctx context.Context, st models.ServiceType, inputs models.PricingInputs) (float64, error) {
	return 0, pricing.ErrUnknownServiceType
}

func defaultRegions() map[string]models.Coord {
	return map[string]models.Coord{
		"london-central": {Lat: 51.5072, Lon: -0.1276},
		"london-south":   {Lat: 51.4415, Lon: -0.1022},
		"manchester":     {Lat: 53.4808, Lon: -2.2426},
		"birmingham":     {Lat: 52.4862, Lon: -1.8904},
	}
}

func runMigrations(dsn string, logger interface{ Error(string, ...any) }) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_dispatch.sql"))
	if err != nil {
		logger.Error("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec error", "error", err)
	}
}
