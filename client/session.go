// Package client is a Go client for the BuildWise API. It holds the
// authenticated session the way the web app does: credential and user
// snapshot in local storage, trusted at startup without a network round
// trip, and cleared unconditionally when any request comes back 401/403.
package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/buildwise/backend/models"
)

// Session states.
type State int

const (
	StateUninitialized State = iota
	StateAuthenticating
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Dashboard view preference values. Presentation-only: never consulted
// by the server's authorization model.
const (
	ViewManager  = "manager"
	ViewInvestor = "investor"
)

// Storage keys: the session credential/user pair and the view
// preference, persisted independently of each other.
const (
	sessionKey = "session"
	viewKey    = "userType"
)

// Store is the local key/value persistence behind a session.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore persists entries as a single JSON document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) load() (map[string]string, error) {
	data := make(map[string]string)
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt store behaves like an empty one.
		return make(map[string]string), nil
	}
	return data, nil
}

func (fs *FileStore) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(fs.path, raw, 0o600)
}

func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, err := fs.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, err := fs.load()
	if err != nil {
		return err
	}
	data[key] = value
	return fs.save(data)
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, err := fs.load()
	if err != nil {
		return err
	}
	delete(data, key)
	return fs.save(data)
}

type storedSession struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Session is the client-side auth state machine.
type Session struct {
	mu    sync.RWMutex
	state State
	token string
	user  *models.User
	store Store
}

// NewSession restores a session from the store. A stored credential
// that parses moves the session straight to authenticated; startup
// trusts local storage without a network round trip.
func NewSession(store Store) *Session {
	s := &Session{state: StateUninitialized, store: store}
	raw, ok, err := store.Get(sessionKey)
	if err != nil || !ok {
		s.state = StateUnauthenticated
		return s
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.Token == "" || stored.User == nil {
		_ = store.Delete(sessionKey)
		s.state = StateUnauthenticated
		return s
	}
	s.state = StateAuthenticated
	s.token = stored.Token
	s.user = stored.User
	return s
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) beginAuth() {
	s.mu.Lock()
	s.state = StateAuthenticating
	s.mu.Unlock()
}

// establish stores a successful login and moves to authenticated.
func (s *Session) establish(token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.token = token
	s.user = user
	raw, err := json.Marshal(storedSession{Token: token, User: user})
	if err != nil {
		return err
	}
	return s.store.Set(sessionKey, string(raw))
}

// Clear drops the credential and user snapshot and moves to
// unauthenticated. Called on logout and on any 401/403 response.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnauthenticated
	s.token = ""
	s.user = nil
	_ = s.store.Delete(sessionKey)
}

// setUser replaces the stored user snapshot after a profile update.
// Authentication state is unchanged.
func (s *Session) setUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	raw, err := json.Marshal(storedSession{Token: s.token, User: user})
	if err != nil {
		return err
	}
	return s.store.Set(sessionKey, string(raw))
}

// ViewPreference returns the persisted dashboard view, defaulting to
// the manager view on first use. It survives logout.
func (s *Session) ViewPreference() string {
	v, ok, err := s.store.Get(viewKey)
	if err != nil || !ok || (v != ViewManager && v != ViewInvestor) {
		return ViewManager
	}
	return v
}

func (s *Session) SetViewPreference(view string) error {
	if view != ViewManager && view != ViewInvestor {
		view = ViewManager
	}
	return s.store.Set(viewKey, view)
}

// ToggleViewPreference flips between the two dashboard views.
func (s *Session) ToggleViewPreference() (string, error) {
	next := ViewInvestor
	if s.ViewPreference() == ViewInvestor {
		next = ViewManager
	}
	return next, s.SetViewPreference(next)
}
