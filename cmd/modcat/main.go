package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/app"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/catalog"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/observability"
	"github.com/modcat/modcat/internal/platform/cache"
	"github.com/modcat/modcat/internal/platform/db"
	"github.com/modcat/modcat/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	registry, err := loadRegistry(cfg)
	if err != nil {
		logger.Error("load role policy", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()
	readiness := []app.ReadinessCheck{{Name: "postgres", Check: dbpool.Ping}}

	var tokens auth.TokenStore
	switch cfg.TokenBackend {
	case app.TokenBackendRedis:
		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		tokens = auth.NewRedisTokenStore(redisClient, cfg.TokenMaxAge)
		readiness = append(readiness, app.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	default:
		logger.Warn("using in-memory token store; tokens are lost on restart")
		tokens = auth.NewMemoryTokenStore(cfg.TokenMaxAge)
	}
	tokens = auth.InstrumentStore(tokens, metrics)

	identities := identity.NewRepository(dbpool)
	verifier := identity.NewVerifier(identities, cfg.LoginHashConcurrency)

	resolver := auth.NewResolver(auth.ResolverConfig{
		Tokens:        tokens,
		Identities:    identities,
		Registry:      registry,
		LookupTimeout: cfg.IdentityLookupTimeout,
		Logger:        logger,
		Recorder:      metrics,
	})
	authenticator := auth.Authenticator{Resolver: resolver, Logger: logger}
	guards := access.Middleware{Logger: logger, Recorder: metrics}

	authService := auth.NewService(auth.ServiceConfig{
		Identities: identities,
		Verifier:   verifier,
		Tokens:     tokens,
		Registry:   registry,
		Resolver:   resolver,
		Logger:     logger,
	})
	authHandler := auth.NewHandler(logger, authService, authenticator, cfg.LoginRateLimit)

	usersService := users.NewService(identities, tokens, logger)
	usersHandler := users.NewHandler(logger, usersService, guards)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), logger)
	catalogHandler := catalog.NewHandler(logger, catalogService, guards)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Authenticator:  authenticator,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		CatalogHandler: catalogHandler,
		Metrics:        metrics,
		Readiness:      readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("token_backend", cfg.TokenBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadRegistry(cfg *app.Config) (*access.Registry, error) {
	if cfg.RolePolicyPath == "" {
		return access.DefaultRegistry(), nil
	}
	return access.LoadRegistryFile(cfg.RolePolicyPath)
}
