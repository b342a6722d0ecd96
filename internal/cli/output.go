// ABOUTME: Text and JSON rendering of household snapshots for the admin CLI
// ABOUTME: Text output uses aligned columns; JSON output is one indented document

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/household-registry/internal/household"
)

const timeLayout = "2006-01-02 15:04"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printAggregate writes a snapshot as a header block followed by member
// tables.
func printAggregate(w io.Writer, agg *household.Aggregate) {
	h := agg.Household
	bold := color.New(color.Bold)

	bold.Fprintf(w, "%s", h.ID)
	fmt.Fprintf(w, "  v%d  %s\n", h.Version, h.Status)
	fmt.Fprintf(w, "  login:      %s\n", h.LoginEmail)
	fmt.Fprintf(w, "  address:    %s\n", orDash(h.Address.Line()))
	fmt.Fprintf(w, "  registered: %s\n", formatTime(h.RegisteredAt))
	fmt.Fprintf(w, "  updated:    %s by %s\n", formatTime(h.UpdatedAt), orDash(h.UpdatedBy))
	if h.Notes != "" {
		fmt.Fprintf(w, "  notes:      %s\n", h.Notes)
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Guardians")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tPRIORITY\tNAME\tRELATION\tEMAIL\tPHONE")
	fmt.Fprintln(tw, "  --\t--------\t----\t--------\t-----\t-----")
	for _, g := range agg.Guardians {
		phone := g.MobilePhone
		if phone == "" {
			phone = g.HomePhone
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s %s\t%s\t%s\t%s\n",
			g.ID, g.ContactPriority, g.LastName, g.FirstName,
			orDash(g.Relationship), orDash(g.Email), orDash(phone))
	}
	tw.Flush()

	fmt.Fprintln(w)
	bold.Fprintln(w, "Students")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tGRADUATION\tEMAIL")
	fmt.Fprintln(tw, "  --\t----\t----------\t-----")
	for _, s := range agg.Students {
		fmt.Fprintf(tw, "  %s\t%s %s\t%s\t%s\n",
			s.ID, s.LastName, s.FirstName, orDash(s.GraduationYear), orDash(s.Email))
	}
	tw.Flush()
}
