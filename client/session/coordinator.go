// Package session keeps a client's token pair valid. Requests that fail with
// 401 share a single refresh and are replayed once; a failed refresh ends the
// session for every caller.
package session

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"herald/internal/domain/constants"
	"herald/internal/domain/credential"
	"herald/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultExpirySkew     = 5 * time.Second
	defaultRefreshRetries = 3
	refreshRetryBackoff   = 200 * time.Millisecond

	refreshPath = "/auth/refresh"

	accessCookiePath  = "/"
	refreshCookiePath = "/auth"
)

// State of the session.
type State int

const (
	StateValid State = iota
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "VALID"
	case StateRefreshing:
		return "REFRESHING"
	default:
		return "FAILED"
	}
}

// Config configures a Coordinator. Only BaseURL is required. HTTPClient is
// copied and given a cookie jar owned by the Coordinator.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      Store
	Logger     *slog.Logger

	// RefreshTimeout bounds one refresh including its retries.
	RefreshTimeout time.Duration
	// ExpirySkew refreshes a token this long before its exp claim.
	ExpirySkew time.Duration
	// RefreshRetries is how often a refresh is attempted on transport or 5xx errors.
	RefreshRetries int

	Now func() time.Time
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	baseURL string
	base    *url.URL
	client  *http.Client
	jar     http.CookieJar
	store   Store
	logger  *slog.Logger
	timeout time.Duration
	skew    time.Duration
	retries int
	now     func() time.Time

	// commitMu serializes installing and ending sessions, store writes included.
	commitMu sync.Mutex

	mu         sync.Mutex
	state      State
	tokens     *Tokens
	generation uint64
	failure    *Result
	listeners  map[int]func(*Tokens)
	nextID     int

	flight singleflight.Group
}

// New builds a Coordinator and resumes any pair found in the store.
func New(cfg Config) (*Coordinator, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("session: base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "session: parse base url")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "session: cookie jar")
	}
	client := &http.Client{}
	if cfg.HTTPClient != nil {
		cp := *cfg.HTTPClient
		client = &cp
	}
	client.Jar = jar

	c := &Coordinator{
		baseURL:   base.String(),
		base:      base,
		client:    client,
		jar:       jar,
		store:     cfg.Store,
		logger:    cfg.Logger,
		timeout:   cfg.RefreshTimeout,
		skew:      cfg.ExpirySkew,
		retries:   cfg.RefreshRetries,
		now:       cfg.Now,
		listeners: make(map[int]func(*Tokens)),
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.timeout <= 0 {
		c.timeout = defaultRefreshTimeout
	}
	if c.skew <= 0 {
		c.skew = defaultExpirySkew
	}
	if c.retries <= 0 {
		c.retries = defaultRefreshRetries
	}
	if c.now == nil {
		c.now = time.Now
	}

	tokens, err := c.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if tokens == nil || tokens.RefreshToken == "" {
		c.state = StateFailed
		c.failure = ended(credential.ReasonMissing, nil)
	} else {
		c.tokens = tokens
		c.writeCookies(tokens)
	}

	return c, nil
}

// BaseURL is the server root the coordinator talks to.
func (c *Coordinator) BaseURL() string {
	return c.baseURL
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// OnRefresh registers fn to run after each newly installed pair. It returns a
// function that removes the listener.
func (c *Coordinator) OnRefresh(fn func(*Tokens)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// GetValidToken returns an access token that is not locally expired,
// refreshing first when needed.
func (c *Coordinator) GetValidToken(ctx context.Context) (string, error) {
	token, _, err := c.validToken(ctx)

	return token, err
}

func (c *Coordinator) validToken(ctx context.Context) (string, uint64, error) {
	c.mu.Lock()
	if c.state == StateFailed {
		defer c.mu.Unlock()

		return "", c.generation, c.failure
	}
	if c.state == StateValid && !c.locallyExpired(c.tokens.AccessToken) {
		defer c.mu.Unlock()

		return c.tokens.AccessToken, c.generation, nil
	}
	gen := c.generation
	c.mu.Unlock()

	return c.refreshAfter(ctx, gen)
}

// Invalidate reports that token was rejected. It returns a newer token when
// another caller already installed one, otherwise it joins or starts a refresh.
func (c *Coordinator) Invalidate(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	if c.state == StateValid && c.tokens.AccessToken != token {
		defer c.mu.Unlock()

		return c.tokens.AccessToken, nil
	}
	gen := c.generation
	c.mu.Unlock()

	t, _, err := c.refreshAfter(ctx, gen)

	return t, err
}

// refreshAfter returns a token newer than generation seen, refreshing at most once
// across all concurrent callers.
func (c *Coordinator) refreshAfter(ctx context.Context, seen uint64) (string, uint64, error) {
	c.mu.Lock()
	if c.state == StateFailed {
		defer c.mu.Unlock()

		return "", c.generation, c.failure
	}
	if c.generation != seen && c.tokens != nil {
		defer c.mu.Unlock()

		return c.tokens.AccessToken, c.generation, nil
	}
	c.state = StateRefreshing
	// The refresh runs detached from ctx so abandoning waiters never cancel it.
	ch := c.flight.DoChan("refresh", func() (any, error) {
		return c.refresh()
	})
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", seen, errors.WithStack(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", seen, res.Err
		}
		installed := res.Val.(installedPair)

		return installed.tokens.AccessToken, installed.generation, nil
	}
}

type installedPair struct {
	tokens     *Tokens
	generation uint64
}

func (c *Coordinator) refresh() (installedPair, error) {
	c.mu.Lock()
	if c.tokens == nil {
		defer c.mu.Unlock()

		return installedPair{}, c.failure
	}
	refreshToken, started := c.tokens.RefreshToken, c.generation
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	tokens, err := c.refreshWithRetry(ctx, refreshToken)
	var result *Result
	if err != nil {
		result = classifyRefreshError(err)
	}

	return c.settle(started, tokens, result)
}

// settle applies the outcome of a refresh that began at generation started.
// If Login or Logout moved the session on in the meantime the outcome is stale:
// it is dropped and the current session is reported instead.
func (c *Coordinator) settle(started uint64, tokens *Tokens, result *Result) (installedPair, error) {
	c.commitMu.Lock()

	c.mu.Lock()
	moved := c.generation != started
	current := installedPair{tokens: c.tokens, generation: c.generation}
	failure := c.failure
	c.mu.Unlock()

	if moved {
		defer c.commitMu.Unlock()
		c.logger.Info("Dropping stale refresh outcome", slog.Uint64("started", started), slog.Uint64("current", current.generation))
		if current.tokens == nil {
			return installedPair{}, failure
		}
		// The stale response may have set or expired cookies of its own.
		c.writeCookies(current.tokens)

		return current, nil
	}

	if result != nil {
		c.commitFail(result)
		c.commitMu.Unlock()

		return installedPair{}, result
	}

	installed, listeners := c.commitInstall(tokens)
	c.commitMu.Unlock()
	notify(listeners, tokens)

	return installed, nil
}

func (c *Coordinator) refreshWithRetry(ctx context.Context, refreshToken string) (*Tokens, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := refreshRetryBackoff * time.Duration(attempt)
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "refresh timed out")
			case <-time.After(wait):
			}
		}

		tokens, err := c.postRefresh(ctx, refreshToken)
		if err == nil {
			return tokens, nil
		}
		if !retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "refresh timed out")
		}
		c.logger.Warn("Refresh attempt failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
		lastErr = err
	}

	return nil, errors.Wrap(credential.New(credential.ReasonRefreshExhausted, lastErr), "refresh exhausted")
}

func (c *Coordinator) postRefresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	body, err := encodeJSON(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "refresh request")
	}
	defer resp.Body.Close()

	var tokens Tokens
	if err := decodeEnvelope(resp, &tokens); err != nil {
		return nil, err
	}

	return &tokens, nil
}

// retryable reports whether a refresh attempt may succeed when repeated:
// transport errors, throttling and server errors.
func retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}

	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}

func classifyRefreshError(err error) *Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return ended(credential.ReasonRefreshExhausted, err)
	}
	if reason, ok := credential.ReasonOf(err); ok {
		return ended(reason, err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Reason != "" {
		return ended(credential.Reason(apiErr.Reason), err)
	}

	return ended(credential.ReasonRefreshExhausted, err)
}

// install makes tokens the current pair, as after a login.
func (c *Coordinator) install(tokens *Tokens) installedPair {
	c.commitMu.Lock()
	installed, listeners := c.commitInstall(tokens)
	c.commitMu.Unlock()
	notify(listeners, tokens)

	return installed
}

// commitInstall writes tokens to the store and the cookie jar and returns to
// VALID. commitMu must be held.
func (c *Coordinator) commitInstall(tokens *Tokens) (installedPair, []func(*Tokens)) {
	if err := c.store.Save(tokens); err != nil {
		c.logger.Warn("Failed to persist session", slog.Any("error", err))
	}
	c.writeCookies(tokens)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = tokens
	c.state = StateValid
	c.failure = nil
	c.generation++
	listeners := make([]func(*Tokens), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}

	return installedPair{tokens: tokens, generation: c.generation}, listeners
}

func notify(listeners []func(*Tokens), tokens *Tokens) {
	for _, fn := range listeners {
		cp := *tokens
		fn(&cp)
	}
}

// fail ends the session.
func (c *Coordinator) fail(result *Result) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.commitFail(result)
}

// commitFail moves to FAILED and empties the store and the cookie jar.
// commitMu must be held.
func (c *Coordinator) commitFail(result *Result) {
	c.logger.Warn("Session ended", slog.String("reason", string(result.Reason)), slog.Any("error", result.Err))

	if err := c.store.Clear(); err != nil {
		c.logger.Warn("Failed to clear session", slog.Any("error", err))
	}
	c.clearCookies()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = nil
	c.state = StateFailed
	c.failure = result
	c.generation++
}

// writeCookies mirrors the HTTP-only cookies the server sets on login and refresh.
func (c *Coordinator) writeCookies(tokens *Tokens) {
	c.jar.SetCookies(c.base, []*http.Cookie{
		{Name: constants.CookieAccessToken, Value: tokens.AccessToken, Path: accessCookiePath, Expires: tokens.AccessExpiresAt, HttpOnly: true},
		{Name: constants.CookieRefreshToken, Value: tokens.RefreshToken, Path: refreshCookiePath, Expires: tokens.RefreshExpiresAt, HttpOnly: true},
	})
}

func (c *Coordinator) clearCookies() {
	c.jar.SetCookies(c.base, []*http.Cookie{
		{Name: constants.CookieAccessToken, Path: accessCookiePath, MaxAge: -1},
		{Name: constants.CookieRefreshToken, Path: refreshCookiePath, MaxAge: -1},
	})
}

// locallyExpired reads exp without verifying the signature. Tokens that are not
// JWTs are left to the server to judge.
func (c *Coordinator) locallyExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return false
	}

	return !c.now().Add(c.skew).Before(claims.ExpiresAt.Time)
}

// Do sends req with the current access token. A 401 triggers one shared
// refresh and a single replay; a 401 on the replay is returned as is.
// Bodies must be replayable: requests built by http.NewRequest from bytes or
// strings are, anything else is buffered first.
func (c *Coordinator) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	token, gen, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	token, _, err = c.refreshAfter(ctx, gen)
	if err != nil {
		return nil, err
	}

	return c.send(req, token)
}

func (c *Coordinator) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "rewind request body")
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(out)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}

	return resp, nil
}

func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return errors.Wrap(err, "buffer request body")
	}
	_ = req.Body.Close()

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Body, _ = req.GetBody()

	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
