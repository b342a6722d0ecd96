// ABOUTME: chi router exposing registration, sign-in and edit endpoints as JSON
// ABOUTME: Wires health checks, metrics, access gating and session middleware

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/household-registry/internal/auth"
	"github.com/2389/household-registry/internal/config"
	"github.com/2389/household-registry/internal/dedupe"
	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/intake"
	"github.com/2389/household-registry/internal/metrics"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Registrar creates households.
type Registrar interface {
	Register(ctx context.Context, sub household.Submission) (*intake.RegisterResult, error)
}

// Updater edits existing households.
type Updater interface {
	Update(ctx context.Context, sub household.Submission, actorEmail string) (*intake.UpdateResult, error)
}

// Authenticator runs the magic-link and edit-code flows.
type Authenticator interface {
	RequestMagicLink(ctx context.Context, email string) (string, error)
	ValidateToken(ctx context.Context, token string) (*household.Aggregate, error)
	Authenticate(ctx context.Context, email, code string) (*household.Aggregate, error)
}

// Households reads current snapshots.
type Households interface {
	GetHouseholdData(ctx context.Context, householdID string) (*household.Aggregate, error)
}

// SessionIssuer issues and verifies edit sessions.
type SessionIssuer interface {
	auth.SessionVerifier
	Issue(householdID, email string) (string, time.Time, error)
}

// Pinger reports storage readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Registration Registrar
	Update       Updater
	Auth         Authenticator
	Households   Households
	Sessions     SessionIssuer
	Ready        Pinger
	Guard        *dedupe.Guard
	Access       config.AccessConfig
	Metrics      *metrics.Metrics

	// MetricsHandler is mounted at MetricsPath when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string

	Logger *slog.Logger
	Now    func() time.Time
}

// Handler serves the registry API.
type Handler struct {
	registration Registrar
	update       Updater
	auth         Authenticator
	households   Households
	sessions     SessionIssuer
	ready        Pinger
	guard        *dedupe.Guard
	access       config.AccessConfig
	metrics      *metrics.Metrics
	metricsH     http.Handler
	metricsPath  string
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Handler. Logger, Metrics and Now default when unset.
func New(d Deps) *Handler {
	h := &Handler{
		registration: d.Registration,
		update:       d.Update,
		auth:         d.Auth,
		households:   d.Households,
		sessions:     d.Sessions,
		ready:        d.Ready,
		guard:        d.Guard,
		access:       d.Access,
		metrics:      d.Metrics,
		metricsH:     d.MetricsHandler,
		metricsPath:  d.MetricsPath,
		logger:       d.Logger,
		now:          d.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "http")
	if h.metrics == nil {
		h.metrics = metrics.NewUnregistered()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.metricsPath == "" {
		h.metricsPath = config.DefaultMetricsPath
	}
	return h
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/health/ready", h.handleReady)
	if h.metricsH != nil {
		r.Method(http.MethodGet, h.metricsPath, h.metricsH)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(limitBody)

		r.With(h.requireAccess).Post("/registrations", h.handleRegister)

		r.Post("/auth/magic-link", h.handleRequestMagicLink)
		r.Post("/auth/magic-link/verify", h.handleVerifyMagicLink)
		r.Post("/auth/edit-code", h.handleEditCode)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(h.sessions))
			r.Get("/households/{id}", h.handleGetHousehold)
			r.Put("/households/{id}", h.handleUpdateHousehold)
		})
	})

	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleHealth returns 200 OK if the server is alive.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the record store answers.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
