// ABOUTME: Repository reading household aggregates from the three record tables
// ABOUTME: Implements lookup by email, current and historical snapshots and listing

package household

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/household-registry/internal/tabular"
)

// Repository reads and writes household aggregates on a tabular store.
type Repository struct {
	store    tabular.Store
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	editCode func() (string, error)

	// writeMu serializes saves. Identifier allocation scans whole tables, so
	// every writer must be excluded, not only writers of one household.
	writeMu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithEditCodes overrides edit code generation.
func WithEditCodes(gen func() (string, error)) Option {
	return func(r *Repository) { r.editCode = gen }
}

// NewRepository creates a repository over store. Call EnsureSchema before
// first use against an empty store.
func NewRepository(store tabular.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/2389/household-registry/internal/household"),
		now:      time.Now,
		editCode: GenerateEditCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "household")
	return r
}

// EnsureSchema creates the household, guardian and student tables.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	tables := []struct {
		name    string
		columns []string
	}{
		{HouseholdTable, HouseholdColumns},
		{GuardianTable, GuardianColumns},
		{StudentTable, StudentColumns},
	}
	for _, t := range tables {
		if err := r.store.EnsureTable(ctx, t.name, t.columns); err != nil {
			return storageErr("creating "+t.name, err)
		}
	}
	return nil
}

func readAll[T any](ctx context.Context, store tabular.Store, table string, decode func(tabular.Row) (T, error)) ([]T, error) {
	rows, err := store.ReadTable(ctx, table)
	if err != nil {
		return nil, storageErr("reading "+table, err)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, storageErr("decoding "+table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Repository) households(ctx context.Context) ([]Household, error) {
	return readAll(ctx, r.store, HouseholdTable, decodeHousehold)
}

func (r *Repository) guardians(ctx context.Context) ([]Guardian, error) {
	return readAll(ctx, r.store, GuardianTable, decodeGuardian)
}

func (r *Repository) students(ctx context.Context) ([]Student, error) {
	return readAll(ctx, r.store, StudentTable, decodeStudent)
}

type tables struct {
	households []Household
	guardians  []Guardian
	students   []Student
}

func (r *Repository) loadAll(ctx context.Context) (*tables, error) {
	var t tables
	var err error
	if t.households, err = r.households(ctx); err != nil {
		return nil, err
	}
	if t.guardians, err = r.guardians(ctx); err != nil {
		return nil, err
	}
	if t.students, err = r.students(ctx); err != nil {
		return nil, err
	}
	return &t, nil
}

// current returns the current snapshot of id, or nil when the household
// does not exist or has been withdrawn.
func (t *tables) current(id string) *Aggregate {
	h, ok := currentHousehold(t.households, id)
	if !ok || h.Status == StatusDeleted {
		return nil
	}
	return snapshot(h, t.guardians, t.students)
}

// GetHouseholdData returns the current snapshot of a household, or nil when
// it does not exist or has been withdrawn.
func (r *Repository) GetHouseholdData(ctx context.Context, householdID string) (*Aggregate, error) {
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return t.current(householdID), nil
}

// Snapshot returns the household as it was at version, or nil when that
// version does not exist.
func (r *Repository) Snapshot(ctx context.Context, householdID string, version uint64) (*Aggregate, error) {
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	h, ok := householdAt(t.households, householdID, version)
	if !ok {
		return nil, nil
	}
	return snapshot(h, t.guardians, t.students), nil
}

// History returns every household row for id in version order.
func (r *Repository) History(ctx context.Context, householdID string) ([]Household, error) {
	rows, err := r.households(ctx)
	if err != nil {
		return nil, err
	}
	var out []Household
	for _, h := range rows {
		if h.ID == householdID {
			out = append(out, h)
		}
	}
	sortByVersion(out)
	return out, nil
}

func sortByVersion(hs []Household) {
	slices.SortStableFunc(hs, func(a, b Household) int {
		return cmp.Compare(a.Version, b.Version)
	})
}

// ListCurrent returns the current snapshot of every household that has not
// been withdrawn, in registration order.
func (r *Repository) ListCurrent(ctx context.Context) ([]Aggregate, error) {
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Aggregate
	for _, h := range FilterLatest(t.households) {
		if agg := t.current(h.ID); agg != nil {
			out = append(out, *agg)
		}
	}
	return out, nil
}

// FindByEmail resolves an email to a household. Guardian contact emails
// are scanned first, then student contact emails, then household login
// emails, each in table order; matching ignores case. The first matching
// household whose current snapshot still uses the email wins. When every
// match is stale the first match is returned, so callers can tell a stale
// address from an unknown one. Returns nil when nothing matches.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Aggregate, error) {
	want := foldEmail(email)
	if want == "" {
		return nil, nil
	}
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return t.findByEmail(want), nil
}

func (t *tables) findByEmail(want string) *Aggregate {
	var candidates []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			candidates = append(candidates, id)
		}
	}
	for _, g := range t.guardians {
		if foldEmail(g.Email) == want {
			add(g.HouseholdID)
		}
	}
	for _, s := range t.students {
		if foldEmail(s.Email) == want || foldEmail(s.ClassEmail) == want {
			add(s.HouseholdID)
		}
	}
	for _, h := range t.households {
		if foldEmail(h.LoginEmail) == want {
			add(h.ID)
		}
	}

	var fallback *Aggregate
	for _, id := range candidates {
		agg := t.current(id)
		if agg == nil {
			continue
		}
		if agg.UsesEmail(want) {
			return agg
		}
		if fallback == nil {
			fallback = agg
		}
	}
	return fallback
}

// emailTaken reports whether email is actively used by a household other
// than except.
func (t *tables) emailTaken(email, except string) bool {
	want := foldEmail(email)
	if want == "" {
		return false
	}
	for _, h := range FilterLatest(t.households) {
		if h.ID == except {
			continue
		}
		if agg := t.current(h.ID); agg != nil && agg.UsesEmail(want) {
			return true
		}
	}
	return false
}

func ids[T Record](rows []T) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RecordKey()
	}
	return out
}
