package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"secdir/internal/config"
	"secdir/internal/logger"
	"secdir/internal/queries"
	"secdir/internal/server"
	"secdir/internal/session"
	"secdir/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	zlog, err := logger.New()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	ctx = logger.ToContext(ctx, zlog)

	reg, err := queries.Load(cfg.QueriesFile)
	if err != nil {
		zlog.Fatalf("loading query templates: %v", err)
	}
	zlog.Infof("loaded %d query templates from %s", reg.Len(), cfg.QueriesFile)

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		zlog.Fatalf("connecting to postgres: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		zlog.Fatalf("pinging postgres: %v", err)
	}

	store, err := postgres.New(ctx, pool, reg)
	if err != nil {
		zlog.Fatalf("initializing store: %v", err)
	}

	opts := []session.Option{}
	if cfg.RedisHost != "" {
		cache, err := session.NewCache(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			zlog.Errorf("redis unavailable, sessions served from postgres only: %v", err)
		} else {
			defer cache.Close()
			opts = append(opts, session.WithCache(cache))
		}
	}
	sessions := session.NewManager(store, session.NewTokenSource(), opts...)

	tm, err := server.NewTemplateManager()
	if err != nil {
		zlog.Fatalf("loading templates: %v", err)
	}

	srv := server.New(cfg, store, sessions, tm, zlog)
	if err := srv.Run(ctx); err != nil {
		zlog.Fatalf("server stopped: %v", err)
	}
	zlog.Info("shutdown complete")
}
