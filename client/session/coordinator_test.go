package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"herald/internal/domain/constants"
	"herald/internal/domain/credential"
	"herald/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, srv *stubServer, store Store, mutate ...func(*Config)) *Coordinator {
	cfg := Config{
		BaseURL:        srv.URL,
		HTTPClient:     srv.Client(),
		Store:          store,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		RefreshTimeout: 2 * time.Second,
		RefreshRetries: 1,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)

	return c
}

func loggedIn(t *testing.T, srv *stubServer, mutate ...func(*Config)) (*Coordinator, *MemoryStore) {
	store := NewMemoryStore()
	c := newTestCoordinator(t, srv, store, mutate...)

	_, err := c.Login(context.Background(), "a@example.com", "secret-pw")
	require.NoError(t, err)
	require.Equal(t, StateValid, c.State())

	return c, store
}

func getMe(c *Coordinator, ctx context.Context) error {
	var out map[string]any

	return c.DoJSON(ctx, http.MethodGet, "/api/v1/me", nil, &out)
}

func TestCoordinator_NoStoredSessionIsEnded(t *testing.T) {
	srv := newStubServer(t)
	c := newTestCoordinator(t, srv, NewMemoryStore())

	assert.Equal(t, StateFailed, c.State())

	_, err := c.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)

	result, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, credential.ReasonMissing, result.Reason)
	assert.Zero(t, srv.refreshCalls.Load())
}

func TestCoordinator_ExpiredAccessIsRefreshedAndRetried(t *testing.T) {
	srv := newStubServer(t)
	c, store := loggedIn(t, srv)

	require.NoError(t, getMe(c, context.Background()))

	// Sixteen minutes later the fifteen-minute access token is gone.
	srv.expireAccess()

	require.NoError(t, getMe(c, context.Background()))
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
	assert.Equal(t, StateValid, c.State())

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, srv.currentAccess(), saved.AccessToken)
}

func TestCoordinator_ConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	const n = 10

	srv := newStubServer(t)
	c, _ := loggedIn(t, srv)
	srv.expireAccess()

	// Hold the refresh open so late callers find it in flight.
	gate := make(chan struct{})
	srv.holdRefresh(gate)
	go func() {
		deadline := time.Now().Add(200 * time.Millisecond)
		for srv.rejected.Load() < n && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		close(gate)
	}()

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = getMe(c, context.Background())
		}()
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
	assert.LessOrEqual(t, srv.rejected.Load(), int32(n))
	assert.Equal(t, StateValid, c.State())
}

func TestCoordinator_RefreshTimeoutEndsSession(t *testing.T) {
	srv := newStubServer(t)
	c, store := loggedIn(t, srv, func(cfg *Config) {
		cfg.RefreshTimeout = 50 * time.Millisecond
	})
	srv.expireAccess()

	gate := make(chan struct{})
	srv.holdRefresh(gate)
	t.Cleanup(func() { close(gate) })

	err := getMe(c, context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)

	result, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, credential.ReasonRefreshExhausted, result.Reason)
	assert.True(t, result.Terminal())
	assert.Equal(t, StateFailed, c.State())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	_, err = c.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
}

func TestCoordinator_AbandonedWaiterDoesNotCancelRefresh(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv)
	srv.expireAccess()

	gate := make(chan struct{})
	srv.holdRefresh(gate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- getMe(c, ctx) }()

	require.Eventually(t, func() bool { return srv.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRefreshing, c.State())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not return after cancel")
	}

	close(gate)
	require.Eventually(t, func() bool { return c.State() == StateValid }, 2*time.Second, 5*time.Millisecond)

	token, err := c.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.currentAccess(), token)
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
}

func TestCoordinator_SecondUnauthorizedIsOrdinary(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv)
	srv.rejectEverything()

	err := getMe(c, context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, StateValid, c.State())
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
	assert.Equal(t, int32(2), srv.rejected.Load())
}

func TestCoordinator_LogoutThenRefreshFailsRotated(t *testing.T) {
	srv := newStubServer(t)
	c, store := loggedIn(t, srv)

	stolen, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, StateFailed, c.State())
	_, err = c.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)

	// A second client still holding the old pair cannot bring it back.
	srv.expireAccess()
	other := NewMemoryStore()
	require.NoError(t, other.Save(stolen))
	replay := newTestCoordinator(t, srv, other)

	err = getMe(replay, context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)

	result, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, credential.ReasonRotated, result.Reason)
	assert.Equal(t, credential.KindTerminal, result.Kind)
}

func TestCoordinator_RefreshRetriesServerErrorsThenGivesUp(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv, func(cfg *Config) {
		cfg.RefreshRetries = 2
	})
	srv.expireAccess()
	srv.failRefresh(http.StatusServiceUnavailable)

	err := getMe(c, context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)

	result, ok := ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, credential.ReasonRefreshExhausted, result.Reason)
	assert.Equal(t, int32(2), srv.refreshCalls.Load())
}

func TestCoordinator_ListenersSeeEachNewPair(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv)

	var mu sync.Mutex
	var seen []string
	stop := c.OnRefresh(func(tokens *Tokens) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tokens.AccessToken)
	})

	srv.expireAccess()
	require.NoError(t, getMe(c, context.Background()))
	first := srv.currentAccess()

	stop()
	srv.expireAccess()
	require.NoError(t, getMe(c, context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{first}, seen)
}

func TestCoordinator_LocallyExpiredTokenRefreshesBeforeSending(t *testing.T) {
	srv := newStubServer(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)
	srv.setPair(expired, "refresh-seed")

	store := NewMemoryStore()
	require.NoError(t, store.Save(&Tokens{AccessToken: expired, RefreshToken: "refresh-seed"}))
	c := newTestCoordinator(t, srv, store)

	require.NoError(t, getMe(c, context.Background()))
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
	assert.Zero(t, srv.rejected.Load(), "no request went out with the expired token")
}

func TestCoordinator_InvalidateReturnsNewerToken(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv)

	old, err := c.GetValidToken(context.Background())
	require.NoError(t, err)

	srv.expireAccess()
	fresh, err := c.Invalidate(context.Background(), old)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	again, err := c.Invalidate(context.Background(), old)
	require.NoError(t, err)
	assert.Equal(t, fresh, again)
	assert.Equal(t, int32(1), srv.refreshCalls.Load())
}

func TestCoordinator_ThrottledRefreshIsRetried(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv, func(cfg *Config) {
		cfg.RefreshRetries = 3
	})
	srv.expireAccess()
	srv.throttleRefresh(1, "")

	require.NoError(t, getMe(c, context.Background()))
	assert.Equal(t, int32(2), srv.refreshCalls.Load())
	assert.Equal(t, StateValid, c.State())
}

func TestCoordinator_ThrottledRefreshWaitsForRetryAfter(t *testing.T) {
	srv := newStubServer(t)
	c, _ := loggedIn(t, srv, func(cfg *Config) {
		cfg.RefreshRetries = 2
		cfg.RefreshTimeout = 5 * time.Second
	})
	srv.expireAccess()
	srv.throttleRefresh(1, "1")

	start := time.Now()
	require.NoError(t, getMe(c, context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, int32(2), srv.refreshCalls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "absent", value: "", want: 0},
		{name: "seconds", value: "3", want: 3 * time.Second},
		{name: "negative", value: "-1", want: 0},
		{name: "http date", value: now.Add(2 * time.Second).Format(http.TimeFormat), want: 2 * time.Second},
		{name: "past date", value: now.Add(-time.Hour).Format(http.TimeFormat), want: 0},
		{name: "garbage", value: "soon", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value, now))
		})
	}
}

func TestCoordinator_LoginDuringRefreshOutlivesStaleOutcome(t *testing.T) {
	srv := newStubServer(t)
	c, store := loggedIn(t, srv)

	old, err := c.GetValidToken(context.Background())
	require.NoError(t, err)

	gate := make(chan struct{})
	srv.holdRefresh(gate)

	done := make(chan error, 1)
	var got string
	go func() {
		var err error
		got, err = c.Invalidate(context.Background(), old)
		done <- err
	}()
	require.Eventually(t, func() bool { return srv.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// The login rotates the server-side fingerprint, so the held refresh comes back rotated.
	_, err = c.Login(context.Background(), "a@example.com", "secret-pw")
	require.NoError(t, err)
	fresh := srv.currentAccess()
	close(gate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never settled")
	}
	assert.Equal(t, fresh, got)
	assert.Equal(t, StateValid, c.State())

	token, err := c.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, fresh, saved.AccessToken)
	require.NoError(t, getMe(c, context.Background()))
}

func jarCookies(t *testing.T, c *Coordinator) map[string]string {
	u, err := url.Parse(c.BaseURL() + refreshPath)
	require.NoError(t, err)

	out := map[string]string{}
	for _, cookie := range c.client.Jar.Cookies(u) {
		out[cookie.Name] = cookie.Value
	}

	return out
}

func TestCoordinator_CookieCarrierFollowsSession(t *testing.T) {
	srv := newStubServer(t)
	c, store := loggedIn(t, srv)

	tokens, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		constants.CookieAccessToken:  tokens.AccessToken,
		constants.CookieRefreshToken: tokens.RefreshToken,
	}, jarCookies(t, c))

	srv.expireAccess()
	require.NoError(t, getMe(c, context.Background()))
	assert.Equal(t, srv.currentAccess(), jarCookies(t, c)[constants.CookieAccessToken])

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, StateFailed, c.State())
	assert.Empty(t, jarCookies(t, c))

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestCoordinator_StoredPairSeedsCookieJar(t *testing.T) {
	srv := newStubServer(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Tokens{AccessToken: "a", RefreshToken: "r"}))

	c := newTestCoordinator(t, srv, store)

	assert.Equal(t, map[string]string{
		constants.CookieAccessToken:  "a",
		constants.CookieRefreshToken: "r",
	}, jarCookies(t, c))
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	tokens, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, tokens)

	require.NoError(t, store.Save(&Tokens{AccessToken: "a", RefreshToken: "r"}))
	tokens, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.Equal(t, "r", tokens.RefreshToken)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	tokens, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, tokens)
}
