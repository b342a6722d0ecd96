// ABOUTME: Shared plumbing for the registration and update pipelines
// ABOUTME: Declares collaborator interfaces and best-effort notification delivery

package intake

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/metrics"
	"github.com/2389/household-registry/internal/notify"
	"github.com/2389/household-registry/internal/validation"
)

const tracerName = "github.com/2389/household-registry/internal/intake"

// ErrMissingHouseholdID is returned by Update for a submission without a
// household id.
var ErrMissingHouseholdID = errors.New("household id is required")

// Store is the part of the household repository the pipelines use.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*household.Aggregate, error)
	Save(ctx context.Context, sub household.Submission, opts household.SaveOptions) (*household.SaveResult, error)
}

// Mailer renders the pipeline notifications.
type Mailer interface {
	Confirmation(agg *household.Aggregate, editCode string) (notify.Message, error)
	AdminRegistration(agg *household.Aggregate) (notify.Message, error)
	EditNotice(agg *household.Aggregate, to string) (notify.Message, error)
}

// prepare is the common front half of both pipelines: blank entries are
// dropped, the rest normalized and validated.
func prepare(sub household.Submission) (household.Submission, error) {
	sub = household.Normalize(household.DropIncomplete(sub))
	if err := validation.Validate(sub); err != nil {
		return sub, err
	}
	return sub, nil
}

type notifier struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// send renders and delivers one message. Failures are logged and counted,
// never returned: the data is already saved.
func (n *notifier) send(ctx context.Context, kind string, sink notify.Sink, render func() (notify.Message, error)) {
	msg, err := render()
	if err == nil {
		err = sink.Send(ctx, msg)
	}
	n.metrics.Notification(kind, err)
	if err != nil {
		n.logger.Error("notification failed", "kind", kind, "to", msg.To, "error", err)
		return
	}
	n.logger.Debug("notification sent", "kind", kind, "to", msg.To)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, ErrMissingHouseholdID):
		return metrics.OutcomeInvalid
	case errors.Is(err, household.ErrDuplicateEmail), errors.Is(err, household.ErrInvalidMember):
		return metrics.OutcomeConflict
	case errors.Is(err, household.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
