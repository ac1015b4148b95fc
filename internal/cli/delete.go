package cli

import (
	"github.com/prismctl/prismctl/internal/driver"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "delete RESOURCE UUID [flags]",
		Short: "Delete one entity by uuid",
		Long: `Delete one entity of RESOURCE by uuid and wait for the deletion task.

Examples:
  # Delete a VM
  prismctl delete vms 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10

  # Delete without waiting
  prismctl delete subnets 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10 --wait=false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := invoke(cmd.Context(), args[0], map[string]any{
				"state": "absent",
				"uuid":  args[1],
				"wait":  wait,
			})
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), args[0], []*driver.Result{res})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the deletion task")
	return cmd
}
