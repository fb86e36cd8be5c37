package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tenantsync/internal/push"
	"github.com/roach88/tenantsync/internal/snapshot"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, list, diff, export, and delete configuration snapshots",
	}

	cmd.AddCommand(newSnapshotSaveCommand(rootOpts))
	cmd.AddCommand(newSnapshotListCommand(rootOpts))
	cmd.AddCommand(newSnapshotDeleteCommand(rootOpts))
	cmd.AddCommand(newSnapshotDiffCommand(rootOpts))
	cmd.AddCommand(newSnapshotExportCommand(rootOpts))

	return cmd
}

func newSnapshotSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var name, comment string

	cmd := &cobra.Command{
		Use:           "save <tenant>",
		Short:         "Capture the tenant's current cached configuration",
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
			meta, err := snapshot.New(rt.store).Save(commandContext(cmd), args[0], rt.product, name, comment)
			if err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "save snapshot", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(meta)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %q saved: %d resources\n", meta.Name, meta.ResourceCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "snapshot name (defaults to a timestamp)")
	cmd.Flags().StringVar(&comment, "comment", "", "free-text comment")

	return cmd
}

func newSnapshotListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <tenant>",
		Short:         "List snapshots, newest first",
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
			metas, err := snapshot.New(rt.store).List(commandContext(cmd), args[0], rt.product)
			if err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "list snapshots", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(metas)
			}
			w := cmd.OutOrStdout()
			if len(metas) == 0 {
				fmt.Fprintln(w, "no snapshots")
				return nil
			}
			for _, m := range metas {
				fmt.Fprintf(w, "%s  %s  %d resources", m.Name, m.CreatedAt.Format("2006-01-02 15:04:05"), m.ResourceCount)
				if m.Comment != "" {
					fmt.Fprintf(w, "  %s", m.Comment)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func newSnapshotDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <tenant> <name>",
		Short:         "Delete a snapshot",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(rootOpts, args[0], false)
			if err != nil {
				return err
			}
			defer rt.Close()

			f := newFormatter(rootOpts, cmd)
			if err := snapshot.New(rt.store).Delete(commandContext(cmd), args[0], rt.product, args[1]); err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "delete snapshot", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"deleted": args[1]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %q deleted\n", args[1])
			return nil
		},
	}
}

func newSnapshotDiffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <tenant> <snapshot-a> [snapshot-b]",
		Short: "Diff two snapshots, or a snapshot against the current cache",
		Long: `Compare two snapshots field by field, ignoring server-managed timestamps.
With one snapshot name the comparison runs against the current cache contents.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(rootOpts, args[0], false)
			if err != nil {
				return err
			}
			defer rt.Close()

			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)
			svc := snapshot.New(rt.store)

			_, a, err := svc.Get(ctx, args[0], rt.product, args[1])
			if err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "load snapshot", err)
			}

			var b snapshot.Contents
			if len(args) == 3 {
				_, b, err = svc.Get(ctx, args[0], rt.product, args[2])
			} else {
				b, err = svc.Live(ctx, args[0], rt.product)
			}
			if err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "load comparison side", err)
			}

			result := snapshot.Diff(a, b)
			if rootOpts.Format == "json" {
				return f.Success(result)
			}
			snapshot.Render(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newSnapshotExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:           "export <tenant> <name>",
		Short:         "Export a snapshot as a portable baseline envelope",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(rootOpts, args[0], false)
			if err != nil {
				return err
			}
			defer rt.Close()

			f := newFormatter(rootOpts, cmd)
			_, contents, err := snapshot.New(rt.store).Get(commandContext(cmd), args[0], rt.product, args[1])
			if err != nil {
				_ = f.Error(ErrCodeSnapshot, err.Error(), nil)
				return WrapExitError(ExitCommandError, "load snapshot", err)
			}

			data, err := push.FromSnapshot(rt.product, contents).Marshal()
			if err != nil {
				return WrapExitError(ExitCommandError, "encode envelope", err)
			}

			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write envelope", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "envelope written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the envelope to a file instead of stdout")

	return cmd
}
