// ABOUTME: Root cobra command for household-admin and shared repository wiring
// ABOUTME: Holds global flags and opens the record store named by the config file

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/2389/household-registry/internal/config"
	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/tabular"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for household-admin.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "household-admin",
		Short: "Inspect and maintain the household registry",
		Long: `Operator tooling for the household registry.

Reads the same config file as household-registry and works directly on
its database. Reads never modify the tables; withdraw appends tombstones.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath(), "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log repository activity to stderr")

	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))

	return cmd
}

// openRepository loads the config and returns a repository over its
// database. closeDB releases the database handle.
func openRepository(ctx context.Context, opts *RootOptions, stderr io.Writer) (repo *household.Repository, closeDB func() error, err error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := tabular.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	repo = household.NewRepository(store, household.WithLogger(logger))
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("creating tables: %w", err)
	}
	return repo, store.Close, nil
}
