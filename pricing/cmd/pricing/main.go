package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaign_pricing/pricing/internal/auth"
	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/cart"
	"campaign_pricing/pricing/internal/config"
	"campaign_pricing/pricing/internal/eligibility"
	"campaign_pricing/pricing/internal/events"
	"campaign_pricing/pricing/internal/handler"
	"campaign_pricing/pricing/internal/logic"
	"campaign_pricing/pricing/internal/mq"
	"campaign_pricing/pricing/internal/reconcile"
	"campaign_pricing/pricing/internal/scarcity"
	"campaign_pricing/pricing/internal/store"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Environment Variables
	cfg, err := config.Load("pricing/.env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Catalog and campaigns: Postgres when configured, otherwise the campaigns file
	var (
		db      *sql.DB
		catalog campaign.Catalog
		repo    campaign.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping database: %v", err)
		}
		campaigns := store.NewCampaignStore(db)
		seedCampaigns(ctx, campaigns, cfg.CampaignsFile)
		catalog, repo = store.NewCatalogStore(db), campaigns
	} else {
		static, err := store.LoadCampaignFile(cfg.CampaignsFile)
		if err != nil {
			log.Fatalf("failed to load campaigns: %v", err)
		}
		catalog, repo = static, static
		log.Printf("[pricing] serving campaigns from %s", cfg.CampaignsFile)
	}

	cache := store.NewCampaignCache(repo)
	if err := cache.Refresh(ctx); err != nil {
		log.Fatalf("failed to load campaigns: %v", err)
	}
	go cache.Run(ctx, cfg.CampaignRefresh)

	// 3. Scarcity baselines
	var meta *store.MetaStore
	switch cfg.MetaBackend {
	case "postgres":
		meta = store.NewMetaStore(db, store.Postgres)
	default:
		sqliteDB, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open meta store: %v", err)
		}
		defer sqliteDB.Close()
		meta = store.NewMetaStore(sqliteDB, store.SQLite)
	}
	if err := meta.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to prepare meta store: %v", err)
	}
	baselines := scarcity.NewBaselineStore(meta)

	// 4. Sessions and view tracking
	var (
		sessions cart.SessionStore
		views    handler.ViewRecorder
		counters = scarcity.CatalogCounters{Catalog: catalog}
	)
	if cfg.RedisAddr != "" {
		memory := store.NewMemoryStore(cfg.RedisAddr, cfg.RedisPW, cfg.RedisDB, cfg.SessionTTL)
		if err := memory.Ping(ctx); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer memory.Close()
		sessions, views, counters.Views = memory, memory, memory
	} else {
		sessions = store.NewLocalSessions()
		log.Printf("[pricing] REDIS_ADDR not set, sessions kept in memory")
	}

	// 5. Lifecycle notifications
	notifier := events.Multi{events.LogNotifier{Logger: logger}}
	if cfg.ZMQPort > 0 {
		pub, err := mq.NewPublisher(cfg.ZMQPort, logger)
		if err != nil {
			log.Fatalf("failed to bind event publisher: %v", err)
		}
		defer pub.Close()
		notifier = append(notifier, pub)
		log.Printf("[pricing] publishing cart events on :%d", cfg.ZMQPort)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to init tokens: %v", err)
	}

	var base logic.PriceBaseStrategy = logic.RegularPrice{}
	if cfg.PriceBase == "sale" {
		base = logic.PreferSalePrice{}
	}
	calc := logic.NewCalculator(base)

	// 6. Initialize layers
	h := handler.NewPricingHandler(handler.Deps{
		Tokens:   tokens,
		Repo:     repo,
		Catalog:  catalog,
		Resolver: eligibility.NewResolver(cache, catalog, nil, logger),
		Calc:     calc,
		Display: logic.TaxDisplay{
			Rate:                cfg.TaxRate.Shift(-2),
			PricesIncludeTax:    cfg.PricesIncludeTax,
			DisplayIncludingTax: cfg.DisplayIncludingTax,
		},
		Scarcity:     scarcity.NewService(baselines, counters, logger),
		Baselines:    baselines,
		Tracker:      cart.NewTracker(catalog, calc, notifier, nil, logger),
		Reconciler:   reconcile.NewReconciler(repo, catalog, calc, nil, logger),
		Sessions:     sessions,
		Views:        views,
		FlatShipping: cfg.FlatShipping,
	})

	// 7. gRPC health endpoint
	lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("pricing", healthpb.HealthCheckResponse_SERVING)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("[pricing] grpc health server stopped: %v", err)
		}
	}()

	// 8. HTTP API
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h, cfg.InternalSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[pricing] HTTP API running on %s, health on %s", cfg.HTTPAddr, cfg.GRPCHealthAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[pricing] shutting down")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[pricing] http shutdown: %v", err)
	}
	grpcServer.GracefulStop()
}

// seedCampaigns upserts the campaigns file into Postgres when one exists.
func seedCampaigns(ctx context.Context, campaigns *store.CampaignStore, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	static, err := store.LoadCampaignFile(path)
	if err != nil {
		log.Printf("[pricing] campaigns file ignored: %v", err)
		return
	}
	list, err := static.ListCampaigns(ctx)
	if err != nil {
		log.Printf("[pricing] campaigns file ignored: %v", err)
		return
	}
	for _, c := range list {
		if err := campaigns.UpsertCampaign(ctx, c); err != nil {
			log.Printf("[pricing] seed failed for campaign %d: %v", c.ID, err)
		}
	}
	log.Printf("[pricing] seeded %d campaigns from %s", len(list), path)
}
