package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type listOptions struct {
	filters       []string
	fiql          string
	match         []string
	offset        int
	length        int
	sortOrder     string
	sortAttribute string
}

func newListCmd() *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list RESOURCE [flags]",
		Short: "List entities of a resource",
		Long: `List entities of RESOURCE. --filter expressions are sent to the server,
--match ones are applied to the returned entities. Lengths above the server
page size are fetched page by page.

Examples:
  # First 20 VMs
  prismctl list vms

  # VMs named web-1
  prismctl list vms --filter vm_name==web-1

  # Powered-on VMs among the first 100
  prismctl list vms --length 100 --match power_state=ON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := o.params()
			if err != nil {
				return err
			}
			res, err := invoke(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), args[0], res)
		},
	}
	cmd.Flags().StringArrayVar(&o.filters, "filter", nil, "Server side filter KEY==VALUE, repeatable")
	cmd.Flags().StringVar(&o.fiql, "fiql", "", "Raw server side filter, overrides --filter")
	cmd.Flags().StringArrayVar(&o.match, "match", nil, "Client side filter KEY=VALUE, repeatable")
	cmd.Flags().IntVar(&o.offset, "offset", 0, "Offset of the first entity")
	cmd.Flags().IntVar(&o.length, "length", 0, "Number of entities, 0 for the server default")
	cmd.Flags().StringVar(&o.sortOrder, "sort-order", "", "ASCENDING or DESCENDING")
	cmd.Flags().StringVar(&o.sortAttribute, "sort-attribute", "", "Attribute to sort on")
	return cmd
}

func (o listOptions) params() (map[string]any, error) {
	params := map[string]any{
		"state":          "list",
		"offset":         o.offset,
		"length":         o.length,
		"sort_order":     o.sortOrder,
		"sort_attribute": o.sortAttribute,
		"filter":         o.fiql,
	}
	if len(o.filters) > 0 {
		filters := map[string]any{}
		for _, f := range o.filters {
			k, v, ok := strings.Cut(f, "==")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid filter %q, expected KEY==VALUE", f)
			}
			filters[k] = v
		}
		params["filters"] = filters
	}
	if len(o.match) > 0 {
		custom := map[string]any{}
		for _, m := range o.match {
			k, v, ok := strings.Cut(m, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid match %q, expected KEY=VALUE", m)
			}
			custom[k] = v
		}
		params["custom_filter"] = custom
	}
	return params, nil
}
