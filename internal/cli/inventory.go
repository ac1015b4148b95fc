package cli

import (
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/prismctl/prismctl/internal/inventory"
	"github.com/prismctl/prismctl/internal/resources"
	"github.com/spf13/cobra"
)

func newInventoryCmd() *cobra.Command {
	var (
		filters []string
		ansible bool
	)
	cmd := &cobra.Command{
		Use:   "inventory [flags]",
		Short: "Print the VMs grouped by cluster",
		Long: `Print every VM grouped by cluster name with its ansible_host, the first
IP of its first normal NIC. Filters are KEY==VALUE or KEY!=VALUE over VM
fields and must all hold.

Examples:
  # Powered-on VMs only
  prismctl inventory --filter status.resources.power_state==ON

  # Dynamic inventory layout
  prismctl inventory --ansible`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := inventory.ParseFilters(filters)
			if err != nil {
				return err
			}
			t, err := connect(nil)
			if err != nil {
				return err
			}
			client := entity.New(t.conn, t.transport, resources.V3+"/vms")
			inv, err := inventory.Build(cmd.Context(), client, parsed)
			if err != nil {
				return err
			}
			var out any = inv
			if ansible {
				out = inv.Ansible()
			}
			if opts.output == "yaml" {
				return printAs(cmd.OutOrStdout(), "yaml", out)
			}
			return printAs(cmd.OutOrStdout(), "json", out)
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "KEY==VALUE or KEY!=VALUE, repeatable")
	cmd.Flags().BoolVar(&ansible, "ansible", false, "Use the dynamic inventory layout")
	return cmd
}
