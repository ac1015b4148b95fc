package cli

import (
	"fmt"

	"github.com/prismctl/prismctl/internal/resolver"
	"github.com/spf13/cobra"
)

func newIDsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Allocate entity identifiers",
	}
	cmd.AddCommand(newIDsAllocateCmd(), newIDsSaltedCmd())
	return cmd
}

func newIDsAllocateCmd() *cobra.Command {
	var (
		count    int
		clientID string
	)
	cmd := &cobra.Command{
		Use:   "allocate [flags]",
		Short: "Ask the server for fresh identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(nil)
			if err != nil {
				return err
			}
			ids, err := resolver.NewIdempotenceClient(t.conn, t.transport, clientID).Allocate(cmd.Context(), count)
			if err != nil {
				return err
			}
			return printIDs(cmd, ids)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of identifiers")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client identifier, random when empty")
	return cmd
}

func newIDsSaltedCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "salted NAME... [flags]",
		Short: "Derive one stable identifier per name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return printIDs(cmd, resolver.SaltedIDs(args))
			}
			t, err := connect(nil)
			if err != nil {
				return err
			}
			ids, err := resolver.NewIdempotenceClient(t.conn, t.transport, "").Salted(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printIDs(cmd, ids)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Derive the identifiers without calling the server")
	return cmd
}

func printIDs(cmd *cobra.Command, ids []string) error {
	if opts.output != "" {
		return printData(cmd.OutOrStdout(), map[string]any{"uuid_list": ids})
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
