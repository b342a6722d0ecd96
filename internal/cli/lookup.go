// ABOUTME: lookup command resolving an email address to its household
// ABOUTME: Reports whether the address is still in use by the current snapshot

package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// LookupResult is the JSON shape of a lookup.
type LookupResult struct {
	Email       string `json:"email"`
	HouseholdID string `json:"householdId"`
	Active      bool   `json:"active"`
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <email>",
		Short: "Find the household an email address belongs to",
		Long: `Find the household an email address belongs to.

Addresses are matched case-insensitively against guardian, student and
login emails. An address that a household has since replaced is reported
as inactive; magic links and edit-code logins reject it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, rootOpts, args[0])
		},
	}
}

func runLookup(cmd *cobra.Command, opts *RootOptions, email string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closeDB, err := openRepository(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeDB()

	agg, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("looking up email: %w", err)
	}
	if agg == nil {
		return fmt.Errorf("no household uses %s", email)
	}

	res := LookupResult{
		Email:       email,
		HouseholdID: agg.Household.ID,
		Active:      agg.UsesEmail(email),
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s", res.HouseholdID, res.Email)
	if res.Active {
		color.New(color.FgGreen).Fprintln(out, "  active")
	} else {
		color.New(color.FgYellow).Fprintln(out, "  inactive")
	}
	return nil
}
