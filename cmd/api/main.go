package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tastyfund/backend/internal/api"
	"github.com/tastyfund/backend/internal/auth"
	"github.com/tastyfund/backend/internal/cache"
	"github.com/tastyfund/backend/internal/config"
	"github.com/tastyfund/backend/internal/db"
	"github.com/tastyfund/backend/internal/logger"
	"github.com/tastyfund/backend/internal/metrics"
	"github.com/tastyfund/backend/internal/repository"
	"github.com/tastyfund/backend/internal/repository/memory"
	"github.com/tastyfund/backend/internal/repository/postgres"
	"github.com/tastyfund/backend/internal/scheduler"
	"github.com/tastyfund/backend/internal/services"
	"github.com/tastyfund/backend/internal/worker"
)

type stores struct {
	users       repository.Users
	restaurants repository.Restaurants
	campaigns   repository.Campaigns
	investments repository.Investments
	ledger      repository.Ledger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st stores
	switch cfg.Storage {
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")
		m := memory.New()
		st = stores{m.Users(), m.Restaurants(), m.Campaigns(), m.Investments(), m.Ledger()}
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				log.Error("migrations", "err", err)
				os.Exit(1)
			}
		}
		repos := postgres.NewRepositories(pool, pgx.TxIsoLevel(cfg.DBIsolation))
		st = stores{repos.Users, repos.Restaurants, repos.Campaigns, repos.Investments, repos.Ledger}
	}

	var summaries cache.SummaryCache = cache.Noop{}
	switch {
	case cfg.RedisURL != "":
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.SummaryCacheTTL)
		if err != nil {
			log.Error("redis config", "err", err)
			os.Exit(1)
		}
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable; summary cache degrades to misses", "err", err)
		}
		summaries = rc
	case cfg.SummaryCacheLocal:
		summaries = cache.NewMemory(cfg.SummaryCacheTTL)
	}

	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	tokens := auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	userSvc := services.NewUserService(st.users)
	restSvc := services.NewRestaurantService(st.restaurants, st.campaigns, st.ledger)
	campSvc := services.NewCampaignService(st.campaigns, st.restaurants, st.investments, st.ledger,
		services.CampaignOptions{TxAttempts: cfg.LedgerRetries, Cache: summaries})
	invSvc := services.NewInvestmentService(st.ledger, st.investments, services.InvestmentOptions{
		Mode:       services.SettlementMode(cfg.SettlementMode),
		TxAttempts: cfg.LedgerRetries,
		Cache:      summaries,
	})

	sweeper := scheduler.NewSweeper(ctx, campSvc, wp, cfg.SweepBatch)
	if err := sweeper.Register(cfg.SweepSchedule); err != nil {
		log.Error("scheduler", "err", err)
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:           cfg,
		Tokens:        tokens,
		UserSvc:       userSvc,
		RestaurantSvc: restSvc,
		CampaignSvc:   campSvc,
		InvestmentSvc: invSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env,
			"storage", cfg.Storage, "settlement", cfg.SettlementMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
