package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grl-racing/grlbot/commands"
	"github.com/grl-racing/grlbot/config"
	"github.com/grl-racing/grlbot/flowcache"
	"github.com/grl-racing/grlbot/flowcache/memorycache"
	"github.com/grl-racing/grlbot/flowcache/rediscache"
	"github.com/grl-racing/grlbot/gateway/discord"
	"github.com/grl-racing/grlbot/health"
	"github.com/grl-racing/grlbot/internal/logctx"
	"github.com/grl-racing/grlbot/notify"
	"github.com/grl-racing/grlbot/router"
	"github.com/grl-racing/grlbot/sessions"
	"github.com/grl-racing/grlbot/sessions/memorystore"
	"github.com/grl-racing/grlbot/sessions/mongostore"
	"github.com/grl-racing/grlbot/whitelist"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	flowCacheSize   = 1024
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "grlbot",
		Short:        "GRL racing league Discord bot",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(logctx.Handler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ping, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	flows, err := buildFlowCache(cfg, log)
	if err != nil {
		return err
	}
	defer flows.Close()

	conn, err := discord.Connect(cfg.Token, discord.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	defer conn.Close()

	notifier := notify.New(discord.NewDMOpener(conn), notify.WithLogger(log))
	manager := sessions.NewManager(store, notifier, sessions.WithLogger(log))
	handlers := commands.NewHandlers(manager, flows, commands.WithLogger(log))

	tenants := cfg.TenantWhitelist()
	gate := whitelist.New(tenants, whitelist.WithLogger(log))

	rt := router.New(conn, gate, handlers.Registrations(), router.WithLogger(log))
	if err := rt.Start(ctx); err != nil {
		return err
	}
	defer rt.Stop()

	probes := health.New(cfg.HTTPAddr, ping, health.WithLogger(log))
	go func() {
		if err := probes.ListenAndServe(); err != nil {
			log.Error("health server failed", "error", err)
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := probes.Shutdown(sctx); err != nil {
			log.Warn("health server shutdown", "error", err)
		}
	}()

	log.Info("grlbot running", "tenants", len(tenants), "http_addr", cfg.HTTPAddr)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// buildStore picks the Mongo-backed session store when a URI is
// configured, the in-memory one otherwise.
func buildStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (sessions.Store, health.Pinger, error) {
	if cfg.MongoURI == "" {
		log.Warn("no GRLBOT_MONGO_URI; sessions will not survive restarts")
		return memorystore.New(), nil, nil
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	store, err := mongostore.New(mongostore.Config{Client: client})
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureIndexes(cctx); err != nil {
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("using mongo session store")
	return store, store.Ping, nil
}

// buildFlowCache picks the Redis-backed flow cache when an address is
// configured, the in-memory one otherwise.
func buildFlowCache(cfg *config.Config, log *slog.Logger) (flowcache.Cache, error) {
	if cfg.RedisAddr == "" {
		return memorycache.New(flowCacheSize)
	}
	cache, err := rediscache.New(rediscache.Config{
		Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("using redis flow cache")
	return cache, nil
}
