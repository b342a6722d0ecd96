// ABOUTME: Prometheus instruments for registration, edit and sign-in flows
// ABOUTME: Instruments register on a caller-supplied registerer

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeUnchanged = "unchanged"
	OutcomeInvalid   = "invalid"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeExpired   = "expired"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics holds every instrument the registry exports.
type Metrics struct {
	Registrations  *prometheus.CounterVec
	Updates        *prometheus.CounterVec
	MagicLinks     *prometheus.CounterVec
	LinkRedeems    *prometheus.CounterVec
	EditCodeLogins *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	DuplicatePosts prometheus.Counter
	SaveDuration   *prometheus.HistogramVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_updates_total",
			Help: "Edit submissions by outcome",
		}, []string{"outcome"}),
		MagicLinks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_magic_links_requested_total",
			Help: "Magic link requests by outcome",
		}, []string{"outcome"}),
		LinkRedeems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_magic_links_redeemed_total",
			Help: "Magic link redemptions by outcome",
		}, []string{"outcome"}),
		EditCodeLogins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_edit_code_logins_total",
			Help: "Edit code sign-ins by outcome",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "household_notifications_total",
			Help: "Outbound notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		DuplicatePosts: f.NewCounter(prometheus.CounterOpts{
			Name: "household_duplicate_submissions_total",
			Help: "Registration posts rejected as double submissions",
		}),
		SaveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "household_save_duration_seconds",
			Help:    "Duration of registration and edit pipelines",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// NewUnregistered returns instruments bound to a private registry. Useful
// for tests and for callers that do not export metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveSave records the duration of a pipeline started at start.
func (m *Metrics) ObserveSave(operation string, start time.Time) {
	m.SaveDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Notification records one notification attempt.
func (m *Metrics) Notification(kind string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.Notifications.WithLabelValues(kind, outcome).Inc()
}
