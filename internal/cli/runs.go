package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunsCommand creates the sync-run history command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "runs <tenant>",
		Short:         "Show a tenant's import run history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(rootOpts, args[0], false)
			if err != nil {
				return err
			}
			defer rt.Close()

			f := newFormatter(rootOpts, cmd)
			runs, err := rt.store.ListRuns(commandContext(cmd), args[0], limit)
			if err != nil {
				_ = f.Error(ErrCodeDatabase, err.Error(), nil)
				return WrapExitError(ExitCommandError, "list runs", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(runs)
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "no runs")
				return nil
			}
			for _, run := range runs {
				totals := run.Totals()
				fmt.Fprintf(w, "%s  %s  %s  fetched=%d written=%d unchanged=%d deleted=%d errored=%d\n",
					run.StartedAt.Format("2006-01-02 15:04:05"), run.ID, run.Status,
					totals.Fetched, totals.Written, totals.Unchanged, totals.Deleted, totals.Errored)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to show (default 50)")

	return cmd
}
