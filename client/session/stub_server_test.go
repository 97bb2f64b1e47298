package session

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// stubServer mimics the auth endpoints with opaque tokens. Only the latest
// pair is accepted.
type stubServer struct {
	*httptest.Server

	accountID uuid.UUID

	mu      sync.Mutex
	seq     int
	access  string
	refresh string

	// refreshGate, when set, holds refresh responses until closed.
	refreshGate chan struct{}
	// refreshStatus, when non-zero, is returned by every refresh call.
	refreshStatus int
	// throttled refresh calls answer 429 with throttleRetryAfter as Retry-After.
	throttled          int
	throttleRetryAfter string
	// rejectAll makes the protected route answer 401 even for a fresh token.
	rejectAll bool

	refreshCalls atomic.Int32
	rejected     atomic.Int32
}

func newStubServer(t *testing.T) *stubServer {
	s := &stubServer{accountID: uuid.New()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/me", s.handleMe)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func (s *stubServer) issue() *Tokens {
	s.seq++
	s.access = fmt.Sprintf("access-%d", s.seq)
	s.refresh = fmt.Sprintf("refresh-%d", s.seq)

	return &Tokens{
		AccessToken:      s.access,
		RefreshToken:     s.refresh,
		AccessExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

// expireAccess makes the current access token stale, as fifteen minutes passing would.
func (s *stubServer) expireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
}

func (s *stubServer) setPair(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	s.refresh = refresh
}

func (s *stubServer) holdRefresh(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshGate = gate
}

func (s *stubServer) failRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshStatus = status
}

func (s *stubServer) throttleRefresh(calls int, retryAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.throttled = calls
	s.throttleRetryAfter = retryAfter
}

func (s *stubServer) rejectEverything() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectAll = true
}

func (s *stubServer) currentAccess() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.access
}

func (s *stubServer) handleLogin(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tokens := s.issue()
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{
		"account": map[string]any{"id": s.accountID, "email": "a@example.com"},
		"tokens":  tokens,
	})
}

func (s *stubServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate, status := s.refreshGate, s.refreshStatus
	throttle, retryAfter := s.throttled > 0, s.throttleRetryAfter
	if throttle {
		s.throttled--
	}
	s.mu.Unlock()

	if throttle {
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		writeError(w, http.StatusTooManyRequests, "")

		return
	}

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeError(w, status, "")

		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if body.RefreshToken == "" || body.RefreshToken != s.refresh {
		writeError(w, http.StatusUnauthorized, "rotated")

		return
	}
	writeData(w, http.StatusOK, s.issue())
}

func (s *stubServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "expired")

		return
	}

	s.mu.Lock()
	s.refresh = ""
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *stubServer) handleMe(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.rejected.Add(1)
		writeError(w, http.StatusUnauthorized, "expired")

		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": s.accountID})
}

func (s *stubServer) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.rejectAll && token != "" && token == s.access
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "TOKEN_ERROR", "reason": reason, "message": "rejected"},
	})
}
