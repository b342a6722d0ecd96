// ABOUTME: Edit pipeline for an existing household
// ABOUTME: Saves a new version when something changed and tells every guardian

package intake

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/metrics"
	"github.com/2389/household-registry/internal/notify"
)

// User-facing update messages.
const (
	MessageSaved     = "修正内容を保存しました"
	MessageUnchanged = "変更はありませんでした"
)

// UpdateResult is the outcome of an edit.
type UpdateResult struct {
	HouseholdID string
	Version     uint64
	Changed     bool
	Message     string
	Aggregate   *household.Aggregate
}

// Update applies edits to existing households.
type Update struct {
	store   Store
	family  notify.Sink
	notify  notifier
	metrics *metrics.Metrics
}

// NewUpdate creates the pipeline.
func NewUpdate(store Store, mailer Mailer, family notify.Sink, logger *slog.Logger, m *metrics.Metrics) *Update {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Update{
		store:   store,
		family:  family,
		notify:  notifier{mailer: mailer, logger: logger.With("component", "update"), metrics: m},
		metrics: m,
	}
}

// Update saves sub as the next version of its household. actorEmail is
// recorded as the author of the new rows.
func (u *Update) Update(ctx context.Context, sub household.Submission, actorEmail string) (res *UpdateResult, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "intake.Update")
	defer func() {
		label := outcome(err)
		if err == nil && !res.Changed {
			label = metrics.OutcomeUnchanged
		}
		u.metrics.Updates.WithLabelValues(label).Inc()
		u.metrics.ObserveSave("update", start)
		endSpan(span, err)
	}()

	if strings.TrimSpace(sub.Household.HouseholdID) == "" {
		return nil, ErrMissingHouseholdID
	}
	span.SetAttributes(attribute.String("household.id", sub.Household.HouseholdID))

	sub, err = prepare(sub)
	if err != nil {
		return nil, err
	}

	saved, err := u.store.Save(ctx, sub, household.SaveOptions{Actor: strings.TrimSpace(actorEmail)})
	if err != nil {
		return nil, err
	}

	res = &UpdateResult{
		HouseholdID: saved.HouseholdID,
		Version:     saved.Version,
		Changed:     saved.Changed,
		Message:     MessageUnchanged,
		Aggregate:   saved.Aggregate,
	}
	if !saved.Changed {
		return res, nil
	}
	res.Message = MessageSaved

	for _, to := range guardianEmails(saved.Aggregate) {
		u.notify.send(ctx, "edit_notice", u.family, func() (notify.Message, error) {
			return u.notify.mailer.EditNotice(saved.Aggregate, to)
		})
	}
	u.notify.logger.Info("household updated", "household_id", saved.HouseholdID, "version", saved.Version)
	return res, nil
}

// guardianEmails lists each distinct guardian contact email once, in
// contact priority order.
func guardianEmails(agg *household.Aggregate) []string {
	var out []string
	seen := make(map[string]bool)
	for _, g := range agg.Guardians {
		key := strings.ToLower(g.Email)
		if g.Email == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g.Email)
	}
	return out
}
