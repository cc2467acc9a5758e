package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *commands) tokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage issued bearer tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke-all <identity-id>",
		Short: "Invalidate every token bound to an identity",
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
			n, err := b.Tokens.RevokeAll(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("revoke tokens: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d token(s) for identity %d\n", n, id)
			return nil
		},
	})
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid identity id %q", raw)
	}
	return id, nil
}
