// internal/auth/session.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "jobcrawl"
	// FallbackDir is the directory for file-based session storage (when keyring fails)
	FallbackDir = ".jobcrawl/sessions"

	manifestKey = "_manifest"
)

// SessionData is an operator browser session: the cookies left behind after
// a person cleared the site's verification by hand.
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *SessionData) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// HTTPCookies converts the stored cookies for use with net/http. Session
// cookies (no expiry) stay session cookies.
func (s *SessionData) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// Store persists sessions in the OS keyring, or in 0600 files under a
// directory when no keyring is reachable (containers, CI).
type Store struct {
	service string
	dir     string

	once     sync.Once
	fileMode bool
	probe    func() bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDir sets the fallback directory.
func WithDir(dir string) StoreOption {
	return func(s *Store) { s.dir = dir }
}

// FileOnly skips the keyring entirely.
func FileOnly() StoreOption {
	return func(s *Store) { s.probe = func() bool { return true } }
}

// NewStore returns a session store. Without WithDir the fallback directory
// lives under the user's home.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{service: KeyringService}
	s.probe = s.keyringUnavailable
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) keyringUnavailable() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}
	testKey := "_test_keyring_access_"
	if err := keyring.Set(s.service, testKey, "test"); err != nil {
		return true
	}
	_ = keyring.Delete(s.service, testKey)
	return false
}

func (s *Store) useFiles() bool {
	s.once.Do(func() { s.fileMode = s.probe() })
	return s.fileMode
}

func (s *Store) sessionDir() (string, error) {
	dir := s.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, FallbackDir)
	}
	return dir, os.MkdirAll(dir, 0o700)
}

func (s *Store) sessionPath(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	dir, err := s.sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// Backend names where sessions are kept.
func (s *Store) Backend() string {
	if s.useFiles() {
		dir, _ := s.sessionDir()
		return "file:" + dir
	}
	return "keyring:" + s.service
}

// Save stores session, replacing any session with the same name.
func (s *Store) Save(session *SessionData) error {
	if session == nil || session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if s.useFiles() {
		path, err := s.sessionPath(session.Name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(s.service, session.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return s.updateManifest(session.Name, true)
}

// Load returns the named session. Expired sessions are an error.
func (s *Store) Load(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	var data string
	if s.useFiles() {
		path, err := s.sessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
		data = string(raw)
	} else {
		var err error
		data, err = keyring.Get(s.service, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	var session SessionData
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("session %q expired at %s", name, session.ExpiresAt.Format(time.RFC3339))
	}
	return &session, nil
}

// Delete removes the named session. Deleting a missing file session is not
// an error.
func (s *Store) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if s.useFiles() {
		path, err := s.sessionPath(name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(s.service, name); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.updateManifest(name, false)
}

// List returns the stored session names, sorted.
func (s *Store) List() ([]string, error) {
	if s.useFiles() {
		dir, err := s.sessionDir()
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}
		sessions := []string{}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
		sort.Strings(sessions)
		return sessions, nil
	}

	// The keyring cannot enumerate entries, so names are kept in a manifest.
	manifest, err := keyring.Get(s.service, manifestKey)
	if err != nil {
		return []string{}, nil
	}
	var sessions []string
	if err := json.Unmarshal([]byte(manifest), &sessions); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (s *Store) updateManifest(name string, add bool) error {
	sessions, _ := s.List()

	kept := sessions[:0]
	for _, n := range sessions {
		if n != name {
			kept = append(kept, n)
		}
	}
	if add {
		kept = append(kept, name)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, manifestKey, string(data))
}
