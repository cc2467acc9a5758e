// Package cli implements the modcatctl operator commands.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/identity"
)

// ErrRedisRequired is returned when a command needs the shared token store.
var ErrRedisRequired = errors.New("this command requires TOKEN_BACKEND=redis; the in-memory store lives inside the server process")

// Backend holds the live dependencies commands operate on.
type Backend struct {
	Identities identity.Repository
	// Tokens is nil unless the configured backend is shared with the server.
	Tokens  auth.TokenStore
	Hasher  Hasher
	Migrate func(ctx context.Context) ([]string, error)
	Close   func()
}

// Hasher derives a stored secret from a plaintext password.
type Hasher interface {
	Hash(ctx context.Context, secret string) (string, error)
}

// Connector opens a Backend. Commands that only read local files never call it.
type Connector func(ctx context.Context) (*Backend, error)

// Options configures the root command.
type Options struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Connect Connector
}

// NewRootCommand assembles the modcatctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	root := &cobra.Command{
		Use:           "modcatctl",
		Short:         "Operator tooling for the modcat catalog service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	c := &commands{opts: opts}
	root.AddCommand(c.rolesCommand(), c.tokensCommand(), c.usersCommand(), c.migrateCommand())
	return root
}

type commands struct {
	opts Options
}

func (c *commands) backend(ctx context.Context) (*Backend, func(), error) {
	if c.opts.Connect == nil {
		return nil, nil, errors.New("no backend configured")
	}
	b, err := c.opts.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if b.Close != nil {
			b.Close()
		}
	}
	return b, closer, nil
}
