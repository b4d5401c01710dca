package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// persistedToken is the on-disk shape: the bearer token plus its expiry,
// the same pair the browser dashboard kept in local storage.
type persistedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// Store persists a bearer token with expiry to a file and hands it out
// only while it is still valid. Expired or cleared tokens read as
// absent; a cleared store forces the operator to log in again.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time

	token   string
	expires time.Time
	loaded  bool
}

// NewStore creates a token store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
	}
}

// SetToken stores the token and its expiry, in memory and on disk.
// A zero expiry means the token never expires locally.
func (s *Store) SetToken(token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.expires = expiresAt
	s.loaded = true

	record := persistedToken{AccessToken: token}
	if !expiresAt.IsZero() {
		record.ExpiresAt = expiresAt.UnixMilli()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	return nil
}

// Token returns the stored token if it has not expired. An expired
// token is cleared as a side effect.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadLocked()
	}

	if s.token == "" {
		return "", false
	}

	if !s.expires.IsZero() && s.now().After(s.expires) {
		s.clearLocked()
		return "", false
	}

	return s.token, true
}

// Clear removes the token from memory and disk. Called on logout and
// on any 401/403 from a data call.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Authenticated reports whether a valid token is available.
func (s *Store) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

func (s *Store) loadLocked() {
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var record persistedToken
	if err := json.Unmarshal(data, &record); err != nil {
		return
	}

	s.token = record.AccessToken
	if record.ExpiresAt != 0 {
		s.expires = time.UnixMilli(record.ExpiresAt)
	}
}

func (s *Store) clearLocked() {
	s.token = ""
	s.expires = time.Time{}
	s.loaded = true
	os.Remove(s.path)
}
