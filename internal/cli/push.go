package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tenantsync/internal/push"
	"github.com/roach88/tenantsync/internal/snapshot"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	Envelope  string
	Snapshot  string
	From      string
	DryRun    bool
	MaxPasses int
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push <tenant>",
		Short: "Push a baseline configuration into a target tenant",
		Long: `Reconcile a baseline into the target tenant.

The baseline comes either from an envelope file (--envelope) or from a stored
snapshot of another tenant (--snapshot with --from). The target is imported
first, every baseline entry is classified against it, and pending changes are
pushed in dependency order with source ids remapped to target ids.

Example:
  tenantsync push staging --envelope baseline.json
  tenantsync push staging --snapshot golden --from prod --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Envelope, "envelope", "", "baseline envelope file")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "baseline snapshot name (requires --from)")
	cmd.Flags().StringVar(&opts.From, "from", "", "tenant the baseline snapshot belongs to")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "classify only; issue no create or update calls")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", 0, "hard cap on push passes (default 10)")

	return cmd
}

func runPush(opts *PushOptions, tenantName string, cmd *cobra.Command) error {
	rt, err := openRuntime(opts.RootOptions, tenantName, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	f := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	var env push.Envelope
	switch {
	case opts.Envelope != "" && opts.Snapshot != "":
		return NewExitError(ExitCommandError, "--envelope and --snapshot are mutually exclusive")
	case opts.Envelope != "":
		env, err = LoadEnvelope(opts.Envelope)
		if err != nil {
			return WrapExitError(ExitCommandError, "load baseline", err)
		}
	case opts.Snapshot != "":
		if opts.From == "" {
			return NewExitError(ExitCommandError, "--snapshot requires --from <tenant>")
		}
		_, contents, err := snapshot.New(rt.store).Get(ctx, opts.From, rt.product, opts.Snapshot)
		if err != nil {
			return WrapExitError(ExitCommandError, "load baseline snapshot", err)
		}
		env = push.FromSnapshot(rt.product, contents)
	default:
		return NewExitError(ExitCommandError, "provide --envelope or --snapshot")
	}

	if env.Product != string(rt.product) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("baseline product %q does not match tenant product %q", env.Product, rt.product))
	}

	var pushOpts []push.Option
	if opts.MaxPasses > 0 {
		pushOpts = append(pushOpts, push.WithMaxPasses(opts.MaxPasses))
	}
	if opts.DryRun {
		pushOpts = append(pushOpts, push.WithDryRun())
	}

	report, err := rt.newPusher(pushOpts...).Run(ctx, tenantName, env)
	if err != nil {
		_ = f.Error(ErrCodePushFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "push failed", err)
	}

	if opts.Format == "json" {
		if err := f.Success(report); err != nil {
			return err
		}
	} else {
		push.Render(cmd.OutOrStdout(), report)
	}

	if report.Count(push.OutcomeFailed) > 0 {
		return NewExitError(ExitFailure, "push completed with failed records")
	}
	return nil
}
