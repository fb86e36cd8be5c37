package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tenantsync/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Types         []string
	ResetDisabled bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <tenant>",
		Short: "Import a tenant's resource inventory into the cache",
		Long: `Fetch a tenant's full resource inventory and synchronize the local cache.

Only changed resources are written; ids absent from the fetch are tombstoned
for types where absence means deletion. Types that fail with an authorization
or entitlement error are disabled for the tenant until --reset-disabled.

Example:
  tenantsync import acme
  tenantsync import acme --type rule_label --type firewall_rule`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "restrict the import to specific resource types (repeatable)")
	cmd.Flags().BoolVar(&opts.ResetDisabled, "reset-disabled", false, "clear disabled resource types before importing")

	return cmd
}

func runImport(opts *ImportOptions, tenantName string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts.RootOptions, tenantName, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	f := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)
	eng := rt.newImporter()

	if opts.ResetDisabled {
		if err := eng.ResetDisabled(ctx, tenantName); err != nil {
			return WrapExitError(ExitCommandError, "reset disabled types", err)
		}
		f.VerboseLog("disabled types cleared for %s", tenantName)
	}

	run, err := eng.Run(ctx, tenantName, rt.product, opts.Types...)
	if err != nil {
		_ = f.Error(ErrCodeImportFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "import failed", err)
	}

	if opts.Format == "json" {
		if err := f.Success(run); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		totals := run.Totals()
		fmt.Fprintf(w, "run %s: %s\n", run.ID, run.Status)
		fmt.Fprintf(w, "fetched=%d written=%d unchanged=%d deleted=%d errored=%d\n",
			totals.Fetched, totals.Written, totals.Unchanged, totals.Deleted, totals.Errored)
		if run.ErrorDetail != "" {
			fmt.Fprintln(w, run.ErrorDetail)
		}
	}

	if run.Status == store.RunStatusPartial {
		return NewExitError(ExitFailure, "import completed with errors")
	}
	return nil
}
