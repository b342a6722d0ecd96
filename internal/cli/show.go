// ABOUTME: show and history commands for inspecting one household
// ABOUTME: show reads the current or a past snapshot; history lists every version

package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389/household-registry/internal/household"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Version uint64
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <household-id>",
		Short: "Print a household with its guardians and students",
		Long: `Print the current snapshot of a household.

With --version, print the household as it stood at that version, including
withdrawn households.

Examples:
  household-admin show HH00001
  household-admin show HH00001 --version 2 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, args[0])
		},
	}

	cmd.Flags().Uint64Var(&opts.Version, "version", 0, "snapshot version (default: current)")

	return cmd
}

func runShow(cmd *cobra.Command, opts *ShowOptions, id string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closeDB, err := openRepository(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeDB()

	var agg *household.Aggregate
	if opts.Version > 0 {
		agg, err = repo.Snapshot(ctx, id, opts.Version)
	} else {
		agg, err = repo.GetHouseholdData(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("reading household: %w", err)
	}
	if agg == nil {
		if opts.Version > 0 {
			return fmt.Errorf("household %s has no version %d", id, opts.Version)
		}
		return fmt.Errorf("household %s not found or withdrawn", id)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), agg)
	}
	printAggregate(cmd.OutOrStdout(), agg)
	return nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <household-id>",
		Short: "List every version of a household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, args[0])
		},
	}
}

func runHistory(cmd *cobra.Command, opts *RootOptions, id string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closeDB, err := openRepository(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeDB()

	versions, err := repo.History(ctx, id)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(versions) == 0 {
		return fmt.Errorf("household %s not found", id)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), versions)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  VERSION\tSTATUS\tUPDATED\tBY\tLOGIN")
	fmt.Fprintln(w, "  -------\t------\t-------\t--\t-----")
	for _, h := range versions {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\n",
			h.Version, h.Status, formatTime(h.UpdatedAt), orDash(h.UpdatedBy), h.LoginEmail)
	}
	return w.Flush()
}
