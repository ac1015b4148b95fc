package cli

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get RESOURCE UUID",
		Short: "Read one entity by uuid",
		Long: `Read one entity of RESOURCE and print it, as YAML unless -o or --json
say otherwise.

Examples:
  # Show a VM
  prismctl get vms 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10

  # Same, as JSON
  prismctl get vms 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10 -j`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := invoke(cmd.Context(), args[0], map[string]any{"state": "info", "uuid": args[1]})
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), args[0], res)
		},
	}
}
