package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoRefreshToken is returned when a refresh is needed but none is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Option customises Session construction.
type Option func(*Session)

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the explicit replacement for ambient login and selection state.
// It is safe for concurrent use.
type Session struct {
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	state State
}

// Open loads the persisted state from store. When no ranking was ever
// selected, defaultRanking is used.
func Open(store Store, defaultRanking string, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(state.Ranking) == "" {
		state.Ranking = strings.TrimSpace(defaultRanking)
	}
	s.state = state
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Login stores the credentials issued for username.
func (s *Session) Login(username, access, refresh string) error {
	return s.update(func(st *State) {
		st.Username = strings.TrimSpace(username)
		st.AccessToken = access
		st.RefreshToken = refresh
	})
}

// Logout clears the user and tokens. The ranking selection survives.
func (s *Session) Logout() error {
	return s.update(func(st *State) {
		st.Username = ""
		st.AccessToken = ""
		st.RefreshToken = ""
	})
}

// Username returns the logged in user, if any.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Username
}

// Authorized reports whether mutations may be attempted. That requires an
// access token that has not expired, or a refresh token able to renew it.
// Tokens without a readable exp claim count as valid.
func (s *Session) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.AccessToken == "" {
		return false
	}
	if s.state.RefreshToken != "" {
		return true
	}
	expires, ok := tokenExpiry(s.state.AccessToken)
	return !ok || s.now().Before(expires)
}

// ExpiresAt returns the access token expiry when it can be read.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tokenExpiry(s.state.AccessToken)
}

// Ranking returns the selected ranking slug.
func (s *Session) Ranking() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Ranking
}

// SetRanking persists a new ranking selection.
func (s *Session) SetRanking(slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return errors.New("ranking slug is empty")
	}
	return s.update(func(st *State) { st.Ranking = slug })
}

// AccessToken returns the bearer token for requests.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// RefreshToken returns the token used to renew the access token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

// SetAccessToken stores a renewed access token.
func (s *Session) SetAccessToken(token string) error {
	return s.update(func(st *State) { st.AccessToken = token })
}

func (s *Session) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	fn(&next)
	next.UpdatedAt = s.now().UTC()
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
