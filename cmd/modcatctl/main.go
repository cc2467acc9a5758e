package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modcat/modcat/cmd/modcatctl/cli"
	"github.com/modcat/modcat/internal/app"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/platform/cache"
	"github.com/modcat/modcat/internal/platform/db"
	"github.com/modcat/modcat/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Options{Connect: connect})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect opens the same stores the server uses, driven by the server's
// environment configuration.
func connect(ctx context.Context) (*cli.Backend, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
	if err != nil {
		return nil, err
	}
	repo := identity.NewRepository(pool)
	b := &cli.Backend{
		Identities: repo,
		Hasher:     identity.NewVerifier(repo, 1),
		Migrate: func(ctx context.Context) ([]string, error) {
			return migrations.Apply(ctx, pool)
		},
		Close: pool.Close,
	}
	if cfg.TokenBackend == app.TokenBackendRedis {
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			pool.Close()
			return nil, err
		}
		b.Tokens = auth.NewRedisTokenStore(client, cfg.TokenMaxAge)
		b.Close = func() {
			_ = client.Close()
			pool.Close()
		}
	}
	return b, nil
}
