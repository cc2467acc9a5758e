package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modcat/modcat/internal/access"
)

func (c *commands) rolesCommand() *cobra.Command {
	var (
		policyPath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Print the role to permission policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := access.DefaultRegistry()
			if policyPath != "" {
				var err error
				if registry, err = access.LoadRegistryFile(policyPath); err != nil {
					return err
				}
			}
			return printGrants(cmd, registry.Grants(), asJSON)
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy file to print instead of the built-in one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a policy file covers every role with declared permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := access.LoadRegistryFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d roles\n", len(registry.Roles()))
			return nil
		},
	}
	cmd.AddCommand(validate)
	return cmd
}

func printGrants(cmd *cobra.Command, grants []access.RoleGrant, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(grants)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tPERMISSIONS")
	for _, g := range grants {
		fmt.Fprintf(tw, "%s\t%s\n", g.Role, strings.Join(g.Permissions.Strings(), ", "))
	}
	return tw.Flush()
}
