// ABOUTME: withdraw command tombstoning a household and its members
// ABOUTME: Requires --yes so a typo cannot remove a family from the roster

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// WithdrawOptions holds flags for the withdraw command.
type WithdrawOptions struct {
	*RootOptions
	Actor string
	Yes   bool
}

// WithdrawResult is the JSON shape of a withdrawal.
type WithdrawResult struct {
	HouseholdID string `json:"householdId"`
	Version     uint64 `json:"version"`
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WithdrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "withdraw <household-id>",
		Short: "Withdraw a household from the registry",
		Long: `Withdraw a household.

Appends a deleted version of the household, its guardians and its students.
Earlier versions stay readable with show --version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithdraw(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "operator recorded as the author (required)")
	_ = cmd.MarkFlagRequired("actor")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm the withdrawal")

	return cmd
}

func runWithdraw(cmd *cobra.Command, opts *WithdrawOptions, id string) error {
	if !opts.Yes {
		return fmt.Errorf("refusing to withdraw %s without --yes", id)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closeDB, err := openRepository(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeDB()

	version, err := repo.Withdraw(ctx, id, opts.Actor)
	if err != nil {
		return fmt.Errorf("withdrawing household: %w", err)
	}

	res := WithdrawResult{HouseholdID: id, Version: version}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s at version %d\n", id, version)
	return nil
}
