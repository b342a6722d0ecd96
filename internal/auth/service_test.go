// ABOUTME: Tests for magic-link and edit-code sign-in
// ABOUTME: Runs against a memory-backed repository and key-value store with a fixed clock

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/kv"
	"github.com/2389/household-registry/internal/notify"
	"github.com/2389/household-registry/internal/tabular"
)

type captureSink struct {
	sent []notify.Message
	err  error
}

func (c *captureSink) Send(_ context.Context, msg notify.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type authFixture struct {
	svc   *Service
	repo  *household.Repository
	kv    *kv.Memory
	sink  *captureSink
	clock *time.Time
	saved *household.SaveResult
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := household.NewRepository(tabular.NewMemoryStore(), household.WithLogger(logger))
	require.NoError(t, repo.EnsureSchema(ctx))

	saved, err := repo.Save(ctx, household.Submission{
		Household: household.HouseholdForm{LoginEmail: "login@example.com"},
		Guardians: []household.GuardianForm{{
			ContactPriority: 1, LastName: "山田", FirstName: "花子",
			Email: "mother@example.com", MobilePhone: "090-1111-1111",
		}},
		Students: []household.StudentForm{{
			LastName: "山田", FirstName: "太郎", ClassEmail: "taro@class.example.com",
		}},
	}, household.SaveOptions{})
	require.NoError(t, err)

	renderer, err := notify.NewRenderer("さくら学園", "office@example.com", time.UTC)
	require.NoError(t, err)

	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f := &authFixture{repo: repo, kv: kv.NewMemory(), sink: &captureSink{}, clock: &now, saved: saved}
	f.svc = NewService(repo, f.kv, renderer, f.sink,
		Config{FormURL: "https://forms.example.com/edit"},
		WithLogger(logger),
		WithClock(func() time.Time { return *f.clock }),
	)
	return f
}

func (f *authFixture) tokenFromMail(t *testing.T) (string, int64) {
	t.Helper()
	require.NotEmpty(t, f.sink.sent)
	body := f.sink.sent[len(f.sink.sent)-1].Body
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "https://forms.example.com/edit?") {
			u, err := url.Parse(line)
			require.NoError(t, err)
			var ms int64
			require.NoError(t, json.Unmarshal([]byte(u.Query().Get("expires")), &ms))
			return u.Query().Get("edit"), ms
		}
	}
	t.Fatalf("no link in mail body: %s", body)
	return "", 0
}

func TestRequestMagicLink(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	msg, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	assert.Equal(t, LinkSentMessage, msg)

	require.Len(t, f.sink.sent, 1)
	assert.Equal(t, "mother@example.com", f.sink.sent[0].To)

	token, expires := f.tokenFromMail(t)
	assert.NotEmpty(t, token)
	assert.Equal(t, f.clock.Add(DefaultMagicLinkTTL).UnixMilli(), expires)

	raw, err := f.kv.Get(ctx, "magiclink_"+token)
	require.NoError(t, err)
	var rec linkRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, f.saved.HouseholdID, rec.HouseholdID)
	assert.Equal(t, expires, rec.Expires)
}

func TestRequestMagicLink_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.RequestMagicLink(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, ErrEmailNotFound))
	assert.Empty(t, f.sink.sent)
	assert.Equal(t, 0, f.kv.Len())
}

func TestRequestMagicLink_SendFailureRemovesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.sink.err = errors.New("smtp down")

	_, err := f.svc.RequestMagicLink(context.Background(), "mother@example.com")
	require.Error(t, err)
	assert.Equal(t, 0, f.kv.Len())
}

func TestValidateToken_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	token, _ := f.tokenFromMail(t)

	agg, err := f.svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, f.saved.HouseholdID, agg.Household.ID)

	_, err = f.svc.ValidateToken(ctx, token)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestValidateToken_ConcurrentRedeemsSucceedOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	token, _ := f.tokenFromMail(t)

	const redeems = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		invalid   atomic.Int32
	)
	start := make(chan struct{})
	for range redeems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.ValidateToken(ctx, token)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrTokenInvalid):
				invalid.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(redeems-1), invalid.Load())
	assert.Equal(t, 0, f.kv.Len())
}

func TestValidateToken_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	token, _ := f.tokenFromMail(t)

	*f.clock = f.clock.Add(DefaultMagicLinkTTL + time.Second)
	_, err = f.svc.ValidateToken(ctx, token)
	assert.True(t, errors.Is(err, ErrTokenExpired))

	// The expired entry was removed.
	_, err = f.kv.Get(ctx, "magiclink_"+token)
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestValidateToken_ExactlyAtExpiryIsValid(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	token, _ := f.tokenFromMail(t)

	*f.clock = f.clock.Add(DefaultMagicLinkTTL)
	_, err = f.svc.ValidateToken(ctx, token)
	assert.NoError(t, err)
}

func TestValidateToken_Malformed(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.kv.Set(ctx, "magiclink_bad", "{not json"))
	_, err := f.svc.ValidateToken(ctx, "bad")
	assert.True(t, errors.Is(err, ErrTokenInvalid))
	assert.Equal(t, 0, f.kv.Len())

	_, err = f.svc.ValidateToken(ctx, "")
	assert.True(t, errors.Is(err, ErrTokenInvalid))

	_, err = f.svc.ValidateToken(ctx, "never-issued")
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestValidateToken_WithdrawnHousehold(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMagicLink(ctx, "mother@example.com")
	require.NoError(t, err)
	token, _ := f.tokenFromMail(t)

	_, err = f.repo.Withdraw(ctx, f.saved.HouseholdID, "office@example.com")
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(ctx, token)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	code := f.saved.EditCode

	for _, email := range []string{"mother@example.com", "taro@class.example.com", "login@example.com", " Mother@Example.com "} {
		agg, err := f.svc.Authenticate(ctx, email, code)
		require.NoError(t, err, email)
		assert.Equal(t, f.saved.HouseholdID, agg.Household.ID)
	}

	_, err := f.svc.Authenticate(ctx, "nobody@example.com", code)
	assert.True(t, errors.Is(err, ErrEmailNotFound))

	_, err = f.svc.Authenticate(ctx, "mother@example.com", "000000")
	assert.True(t, errors.Is(err, ErrIncorrectCode))

	_, err = f.svc.Authenticate(ctx, "mother@example.com", "")
	assert.True(t, errors.Is(err, ErrIncorrectCode))
}

func TestAuthenticate_RemovedEmailIsInactive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	form := household.FormFromAggregate(f.saved.Aggregate)
	form.Guardians[0].Email = "mother.new@example.com"
	_, err := f.repo.Save(ctx, form, household.SaveOptions{})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "mother@example.com", f.saved.EditCode)
	assert.True(t, errors.Is(err, ErrEmailInactive))

	agg, err := f.svc.Authenticate(ctx, "mother.new@example.com", f.saved.EditCode)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), agg.Household.Version)
}

func TestMagicLinkURL(t *testing.T) {
	exp := time.UnixMilli(1743471000000)
	assert.Equal(t, "https://forms.example.com/edit?edit=abc&expires=1743471000000",
		MagicLinkURL("https://forms.example.com/edit", "abc", exp))
	assert.Equal(t, "https://forms.example.com/exec?page=edit&edit=abc&expires=1743471000000",
		MagicLinkURL("https://forms.example.com/exec?page=edit", "abc", exp))
}
