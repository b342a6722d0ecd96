// ABOUTME: New-household pipeline: clean, validate, check for duplicates, save, notify
// ABOUTME: The confirmation mail carries the edit code; operators get the full detail

package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/metrics"
	"github.com/2389/household-registry/internal/notify"
)

// RegisterResult is the outcome of a registration.
type RegisterResult struct {
	HouseholdID string
	EditCode    string
	Aggregate   *household.Aggregate
}

// Registration creates households from public submissions.
type Registration struct {
	store   Store
	family  notify.Sink
	admin   notify.Sink
	notify  notifier
	metrics *metrics.Metrics
}

// NewRegistration creates the pipeline. family delivers to the registering
// household; admin delivers operator notices.
func NewRegistration(store Store, mailer Mailer, family, admin notify.Sink, logger *slog.Logger, m *metrics.Metrics) *Registration {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	logger = logger.With("component", "registration")
	return &Registration{
		store:   store,
		family:  family,
		admin:   admin,
		notify:  notifier{mailer: mailer, logger: logger, metrics: m},
		metrics: m,
	}
}

// Register validates and stores a new household. Any household id in sub
// is ignored.
func (r *Registration) Register(ctx context.Context, sub household.Submission) (res *RegisterResult, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "intake.Register")
	defer func() {
		r.metrics.Registrations.WithLabelValues(outcome(err)).Inc()
		r.metrics.ObserveSave("register", start)
		endSpan(span, err)
	}()

	sub.Household.HouseholdID = ""
	sub, err = prepare(sub)
	if err != nil {
		return nil, err
	}

	login := sub.Household.LoginEmail
	existing, err := r.store.FindByEmail(ctx, login)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.UsesEmail(login) {
		return nil, fmt.Errorf("%w: %s", household.ErrDuplicateEmail, login)
	}

	saved, err := r.store.Save(ctx, sub, household.SaveOptions{})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("household.id", saved.HouseholdID))

	r.notify.send(ctx, "confirmation", r.family, func() (notify.Message, error) {
		return r.notify.mailer.Confirmation(saved.Aggregate, saved.EditCode)
	})
	r.notify.send(ctx, "admin_registration", r.admin, func() (notify.Message, error) {
		return r.notify.mailer.AdminRegistration(saved.Aggregate)
	})

	r.notify.logger.Info("household registered", "household_id", saved.HouseholdID)
	return &RegisterResult{
		HouseholdID: saved.HouseholdID,
		EditCode:    saved.EditCode,
		Aggregate:   saved.Aggregate,
	}, nil
}
