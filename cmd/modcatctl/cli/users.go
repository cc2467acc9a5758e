package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/users"
)

const adminPasswordEnv = "MODCAT_ADMIN_PASSWORD"

func (c *commands) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer identities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <identity-id>",
		Short: "Deactivate an identity and revoke its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, done, err := c.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			if b.Tokens == nil {
				return ErrRedisRequired
			}
			n, err := users.NewService(b.Identities, b.Tokens, nil).Deactivate(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "identity %d deactivated, %d token(s) revoked\n", id, n)
			return nil
		},
	})

	var in auth.RegisterInput
	create := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv(adminPasswordEnv)
			}
			in.Role = string(access.RoleAdmin)
			if err := auth.NewValidator(access.DefaultRegistry()).Struct(in); err != nil {
				return fmt.Errorf("invalid admin details: %w", err)
			}
			b, done, err := c.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			hash, err := b.Hasher.Hash(cmd.Context(), in.Password)
			if err != nil {
				return err
			}
			created, err := b.Identities.Create(cmd.Context(), identity.NewIdentity{
				Username:     in.Username,
				Email:        in.Email,
				DisplayName:  in.DisplayName,
				Role:         access.RoleAdmin,
				PasswordHash: hash,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", created.Username, created.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Username, "username", "", "login name")
	create.Flags().StringVar(&in.Email, "email", "", "email address")
	create.Flags().StringVar(&in.DisplayName, "display-name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "password (defaults to $"+adminPasswordEnv+")")
	cmd.AddCommand(create)
	return cmd
}
