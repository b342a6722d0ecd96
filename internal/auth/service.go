// ABOUTME: Sign-in for the edit flow: one-time magic links and edit codes
// ABOUTME: Link tokens live in the key-value store and are consumed on first use

package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/kv"
	"github.com/2389/household-registry/internal/metrics"
	"github.com/2389/household-registry/internal/notify"
)

// Sign-in errors
var (
	ErrEmailNotFound = errors.New("email not found")
	ErrIncorrectCode = errors.New("incorrect edit code")
	ErrEmailInactive = errors.New("email no longer active")
	ErrTokenInvalid  = errors.New("magic link invalid")
	ErrTokenExpired  = errors.New("magic link expired")
)

// DefaultMagicLinkTTL is how long a magic link stays valid.
const DefaultMagicLinkTTL = 30 * time.Minute

const magicLinkPrefix = "magiclink_"

// LinkSentMessage is returned to the requester after a magic link is mailed.
const LinkSentMessage = "編集リンクをメールで送信しました。メールをご確認ください。"

// Households resolves emails and ids to current snapshots.
type Households interface {
	FindByEmail(ctx context.Context, email string) (*household.Aggregate, error)
	GetHouseholdData(ctx context.Context, householdID string) (*household.Aggregate, error)
}

// LinkMailer renders the magic-link mail.
type LinkMailer interface {
	MagicLink(to, link string, expires time.Time, ttl time.Duration) (notify.Message, error)
}

// Config holds sign-in settings.
type Config struct {
	// FormURL is the edit page the magic link points at.
	FormURL      string
	MagicLinkTTL time.Duration
}

// Service implements magic-link and edit-code sign-in.
type Service struct {
	households Households
	kv         kv.Store
	mailer     LinkMailer
	sink       notify.Sink
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a sign-in service.
func NewService(households Households, store kv.Store, mailer LinkMailer, sink notify.Sink, cfg Config, opts ...Option) *Service {
	if cfg.MagicLinkTTL <= 0 {
		cfg.MagicLinkTTL = DefaultMagicLinkTTL
	}
	s := &Service{
		households: households,
		kv:         store,
		mailer:     mailer,
		sink:       sink,
		cfg:        cfg,
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/2389/household-registry/internal/auth"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewUnregistered()
	}
	s.logger = s.logger.With("component", "auth")
	return s
}

type linkRecord struct {
	HouseholdID string `json:"householdId"`
	Expires     int64  `json:"expires"`
}

// MagicLinkURL builds the edit link for token.
func MagicLinkURL(formURL, token string, expires time.Time) string {
	q := url.Values{}
	q.Set("edit", token)
	q.Set("expires", strconv.FormatInt(expires.UnixMilli(), 10))
	sep := "?"
	if strings.Contains(formURL, "?") {
		sep = "&"
	}
	return formURL + sep + q.Encode()
}

// RequestMagicLink mails a one-time edit link to email. The link is only
// stored while the mail can be sent; a failed send removes it again.
func (s *Service) RequestMagicLink(ctx context.Context, email string) (msg string, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.RequestMagicLink")
	defer func() {
		s.metrics.MagicLinks.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	email = strings.TrimSpace(email)
	agg, err := s.households.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if agg == nil {
		return "", ErrEmailNotFound
	}
	span.SetAttributes(attribute.String("household.id", agg.Household.ID))

	token := uuid.NewString()
	key := magicLinkPrefix + token
	expires := s.now().Add(s.cfg.MagicLinkTTL)
	value, err := json.Marshal(linkRecord{HouseholdID: agg.Household.ID, Expires: expires.UnixMilli()})
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, key, string(value)); err != nil {
		return "", fmt.Errorf("storing magic link: %w", err)
	}

	mail, err := s.mailer.MagicLink(email, MagicLinkURL(s.cfg.FormURL, token, expires), expires, s.cfg.MagicLinkTTL)
	if err == nil {
		err = s.sink.Send(ctx, mail)
	}
	s.metrics.Notification("magic_link", err)
	if err != nil {
		if derr := s.kv.Delete(ctx, key); derr != nil {
			s.logger.Warn("failed to remove unsent magic link", "error", derr)
		}
		return "", fmt.Errorf("sending magic link: %w", err)
	}

	s.logger.Info("magic link sent", "household_id", agg.Household.ID, "expires", expires)
	return LinkSentMessage, nil
}

// ValidateToken redeems a magic link. A token works once: it is taken out
// of the store before it is checked, so an expired or malformed token is
// gone too, and of two concurrent redeems only one finds it.
func (s *Service) ValidateToken(ctx context.Context, token string) (agg *household.Aggregate, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.ValidateToken")
	defer func() {
		s.metrics.LinkRedeems.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	value, err := s.kv.Take(ctx, magicLinkPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("reading magic link: %w", err)
	}

	var rec linkRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil || rec.HouseholdID == "" {
		return nil, ErrTokenInvalid
	}
	if s.now().UnixMilli() > rec.Expires {
		return nil, ErrTokenExpired
	}

	agg, err = s.households.GetHouseholdData(ctx, rec.HouseholdID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, ErrTokenInvalid
	}
	span.SetAttributes(attribute.String("household.id", agg.Household.ID))
	s.logger.Info("magic link redeemed", "household_id", agg.Household.ID)
	return agg, nil
}

// Authenticate signs in with an email and the household's edit code. The
// email must still be in use by the household's current snapshot.
func (s *Service) Authenticate(ctx context.Context, email, code string) (agg *household.Aggregate, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Authenticate")
	defer func() {
		s.metrics.EditCodeLogins.WithLabelValues(outcome(err)).Inc()
		endSpan(span, err)
	}()

	agg, err = s.households.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, ErrEmailNotFound
	}
	span.SetAttributes(attribute.String("household.id", agg.Household.ID))

	want := agg.Household.EditCode
	got := strings.TrimSpace(code)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		s.logger.Info("edit code rejected", "household_id", agg.Household.ID)
		return nil, ErrIncorrectCode
	}
	if !agg.UsesEmail(email) {
		return nil, ErrEmailInactive
	}
	return agg, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrEmailNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrTokenExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrIncorrectCode), errors.Is(err, ErrEmailInactive):
		return metrics.OutcomeRejected
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
