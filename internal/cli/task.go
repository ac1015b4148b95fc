package cli

import (
	"fmt"
	"time"

	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/tasks"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with server tasks",
	}
	cmd.AddCommand(newTaskWaitCmd())
	return cmd
}

func newTaskWaitCmd() *cobra.Command {
	var (
		timeout    time.Duration
		apiVersion string
	)
	cmd := &cobra.Command{
		Use:   "wait TASK_UUID [flags]",
		Short: "Wait for a task to finish",
		Long: `Poll a task until it succeeds, fails or the timeout passes, then print it.

Examples:
  prismctl task wait 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10 --timeout 10m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(nil)
			if err != nil {
				return err
			}
			poller := tasks.NewPoller(t.conn, t.transport, apiVersion)
			if opts.output == "" {
				poller.Progress = func(task tasks.Task) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %d%%\n", task.UUID, task.Status, task.Percent)
				}
			}
			task, err := poller.WaitForCompletion(cmd.Context(), args[0], timeout)
			if err != nil {
				res := &driver.Result{TaskUUID: args[0]}
				return printResults(cmd.OutOrStdout(), "task", []*driver.Result{res.Fail(err)})
			}
			if opts.output == "" {
				okLabel.Fprintf(cmd.OutOrStdout(), "[OK] ")
				fmt.Fprintf(cmd.OutOrStdout(), "task %s %s\n", task.UUID, task.Status)
				return nil
			}
			return printData(cmd.OutOrStdout(), task)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", tasks.DefaultDeadline, "Wait deadline")
	cmd.Flags().StringVar(&apiVersion, "api-version", "3.1", "Task API version, 4.0 for v4 tasks")
	return cmd
}
