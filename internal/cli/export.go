// ABOUTME: export command writing every current member as a CSV row
// ABOUTME: Supports UTF-8, UTF-8 with BOM and Shift_JIS output for spreadsheet tools

package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/2389/household-registry/internal/household"
)

// Export encodings.
const (
	EncodingUTF8    = "utf8"
	EncodingUTF8BOM = "utf8-bom"
	EncodingSJIS    = "sjis"
)

// exportHeader is the column order of an export.
var exportHeader = []string{
	"household_id", "version", "login_email", "role", "member_id",
	"contact_priority", "relationship", "last_name", "first_name",
	"last_name_kana", "first_name_kana", "graduation_year",
	"email", "mobile_phone", "home_phone", "address",
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out      string
	Encoding string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write current households as CSV",
		Long: `Write one CSV row per current guardian and student.

Withdrawn households and removed members are left out. Members without an
address of their own inherit the household address.

Examples:
  household-admin export --out roster.csv
  household-admin export --encoding sjis > roster.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", EncodingUTF8, "output encoding (utf8|utf8-bom|sjis)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch opts.Encoding {
	case EncodingUTF8, EncodingUTF8BOM, EncodingSJIS:
	default:
		return fmt.Errorf("invalid encoding %q", opts.Encoding)
	}

	repo, closeDB, err := openRepository(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeDB()

	households, err := repo.ListCurrent(ctx)
	if err != nil {
		return fmt.Errorf("listing households: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := WriteCSV(out, households, opts.Encoding); err != nil {
		return err
	}
	if opts.Out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d households to %s\n", len(households), opts.Out)
	}
	return nil
}

// WriteCSV writes households to w in the given encoding.
func WriteCSV(w io.Writer, households []household.Aggregate, encoding string) error {
	var encoder io.WriteCloser
	switch encoding {
	case EncodingUTF8BOM:
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return fmt.Errorf("writing BOM: %w", err)
		}
	case EncodingSJIS:
		encoder = transform.NewWriter(w, japanese.ShiftJIS.NewEncoder())
		w = encoder
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, agg := range households {
		for _, row := range exportRows(agg) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing %s: %w", agg.Household.ID, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encoding csv: %w", err)
		}
	}
	return nil
}

func exportRows(agg household.Aggregate) [][]string {
	h := agg.Household
	addressOf := func(a household.Address) string {
		if a.IsZero() {
			return h.Address.Line()
		}
		return a.Line()
	}
	version := strconv.FormatUint(h.Version, 10)

	rows := make([][]string, 0, len(agg.Guardians)+len(agg.Students))
	for _, g := range agg.Guardians {
		rows = append(rows, []string{
			h.ID, version, h.LoginEmail, "guardian", g.ID,
			strconv.Itoa(g.ContactPriority), g.Relationship, g.LastName, g.FirstName,
			g.LastNameKana, g.FirstNameKana, "",
			g.Email, g.MobilePhone, g.HomePhone, addressOf(g.Address),
		})
	}
	for _, s := range agg.Students {
		rows = append(rows, []string{
			h.ID, version, h.LoginEmail, "student", s.ID,
			"", "", s.LastName, s.FirstName,
			s.LastNameKana, s.FirstNameKana, s.GraduationYear,
			s.Email, s.MobilePhone, "", addressOf(s.Address),
		})
	}
	return rows
}
