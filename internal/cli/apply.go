package cli

import (
	"fmt"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/spf13/cobra"
)

type applyOptions struct {
	filename string
	resource string
	wait     bool
	timeout  int
	state    string
}

func newApplyCmd() *cobra.Command {
	var o applyOptions
	cmd := &cobra.Command{
		Use:   "apply -f FILENAME [--resource RESOURCE] [flags]",
		Short: "Run the module invocations described in a file",
		Long: `Run one module invocation per YAML document of FILENAME. A document's
"resource" key selects the resource and overrides --resource; "state" defaults
to present. {{ .ENV.NAME }} placeholders are replaced from the environment.

Examples:
  # Create or update VMs
  prismctl apply -f vms.yaml --resource vms

  # Remove them without waiting for the tasks
  prismctl apply -f vms.yaml --resource vms --state absent --wait=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, o)
		},
	}
	cmd.Flags().StringVarP(&o.filename, "filename", "f", "", "File with one parameter document per invocation")
	cmd.Flags().StringVarP(&o.resource, "resource", "r", "", "Resource of documents without a resource key")
	cmd.Flags().BoolVar(&o.wait, "wait", true, "Wait for the tasks of mutations")
	cmd.Flags().IntVar(&o.timeout, "timeout", 0, "Task wait deadline in seconds")
	cmd.Flags().StringVar(&o.state, "state", "", "State of documents without a state key")
	cmd.MarkFlagRequired("filename")
	return cmd
}

func runApply(cmd *cobra.Command, o applyOptions) error {
	docs, err := ParseParamsFile(o.filename)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%s has no documents", o.filename)
	}

	var results []*driver.Result
	var labels []string
	for i, doc := range docs {
		name := doc.Resource
		if name == "" {
			name = o.resource
		}
		if name == "" {
			return fmt.Errorf("document %d: no resource, set --resource or a resource key", i+1)
		}
		params := doc.Params
		if _, ok := params["state"]; !ok && o.state != "" {
			params["state"] = o.state
		}
		if cmd.Flags().Changed("wait") {
			params["wait"] = o.wait
		}
		if cmd.Flags().Changed("timeout") {
			params["timeout"] = o.timeout
		}
		res, err := invoke(cmd.Context(), name, params)
		if err != nil {
			return err
		}
		results = append(results, res)
		labels = append(labels, name)
	}

	if opts.output != "" {
		return printResults(cmd.OutOrStdout(), "", results)
	}
	var failed error
	for i, res := range results {
		if err := printResults(cmd.OutOrStdout(), labels[i], []*driver.Result{res}); err != nil {
			failed = err
		}
	}
	return failed
}
