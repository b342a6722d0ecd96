// ABOUTME: Server assembles stores, services and the HTTP surface from config
// ABOUTME: Runs the HTTP listener under errgroup and shuts down gracefully

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/2389/household-registry/internal/auth"
	"github.com/2389/household-registry/internal/config"
	"github.com/2389/household-registry/internal/dedupe"
	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/intake"
	"github.com/2389/household-registry/internal/kv"
	"github.com/2389/household-registry/internal/metrics"
	"github.com/2389/household-registry/internal/notify"
	"github.com/2389/household-registry/internal/tabular"
	"github.com/2389/household-registry/internal/web"
)

// shutdownTimeout bounds graceful shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// Server is a running household registry.
type Server struct {
	config     *config.Config
	store      *tabular.SQLStore
	kv         kv.Store
	guard      *dedupe.Guard
	repo       *household.Repository
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// Stores opens the record store and the key-value store the config names
// and makes sure the record tables exist. The caller closes both.
func Stores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tabular.SQLStore, kv.Store, error) {
	store, err := tabular.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	var kvStore kv.Store
	switch cfg.KV.Backend {
	case config.KVMemory:
		logger.Warn("magic links are kept in memory and lost on restart")
		kvStore = kv.NewMemory()
	case config.KVRedis:
		kvStore, err = kv.DialRedis(ctx, cfg.KV.RedisURL, cfg.KV.Retention)
	default:
		kvStore, err = kv.NewSQLStore(ctx, store.DB(), store.Driver())
	}
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("opening kv store: %w", err)
	}

	return store, kvStore, nil
}

// Sinks builds the family and operator notification sinks. Without SMTP
// both fall back to the log.
func Sinks(cfg config.NotifyConfig, logger *slog.Logger) (family, admin notify.Sink, err error) {
	family = notify.NewLogSink(logger)
	if cfg.SMTP.Enabled {
		family = notify.NewSMTPSink(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.From,
		})
	}
	admin = family

	if cfg.Matrix.Enabled {
		room, err := notify.NewMatrixSink(notify.MatrixConfig{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
			RoomID:      cfg.Matrix.RoomID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating matrix sink: %w", err)
		}
		if cfg.AdminEmail != "" {
			admin = notify.Multi{family, room}
		} else {
			admin = room
		}
	}

	return family, admin, nil
}

// New creates a Server with the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, kvStore, err := Stores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg,
		store:  store,
		kv:     kvStore,
		logger: logger.With("component", "server"),
	}
	if err := s.build(ctx); err != nil {
		_ = kvStore.Close()
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context) error {
	cfg := s.config
	logger := s.logger

	s.repo = household.NewRepository(s.store, household.WithLogger(logger))
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	renderer, err := notify.NewRenderer(cfg.Notify.Sender, cfg.Notify.AdminEmail, cfg.Access.Location)
	if err != nil {
		return fmt.Errorf("loading mail templates: %w", err)
	}
	family, admin, err := Sinks(cfg.Notify, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	s.guard = dedupe.New(cfg.Dedupe.Window, cfg.Dedupe.MaxEntries)
	sessions := auth.NewSessions([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)

	authSvc := auth.NewService(s.repo, s.kv, renderer, family,
		auth.Config{FormURL: cfg.Notify.FormURL, MagicLinkTTL: cfg.Auth.MagicLinkTTL},
		auth.WithLogger(logger),
		auth.WithMetrics(m),
	)

	h := web.New(web.Deps{
		Registration:   intake.NewRegistration(s.repo, renderer, family, admin, logger, m),
		Update:         intake.NewUpdate(s.repo, renderer, family, logger, m),
		Auth:           authSvc,
		Households:     s.repo,
		Sessions:       sessions,
		Ready:          s.store,
		Guard:          s.guard,
		Access:         cfg.Access,
		Metrics:        m,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})
	s.handler = h.Routes()

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Repository returns the household repository the server writes to.
func (s *Server) Repository() *household.Repository {
	return s.repo
}

// Run listens on the configured address and blocks until ctx is canceled
// or the HTTP server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("context canceled, initiating shutdown")
		return s.gracefulShutdown()
	})

	return g.Wait()
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases stores and background work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.guard != nil {
		s.guard.Close()
	}
	errs = appendCloseError(errs, "kv close", s.kv.Close())
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}
