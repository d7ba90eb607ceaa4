// Package session holds the process-wide authentication state and mirrors it
// to durable storage so a later run starts where the previous one left off.
//
// A Store is constructed explicitly and passed to whoever needs it. Call
// Initialize once at startup before trusting IsAuthenticated.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alnah/go-ballot/internal/storage"
)

// StorageKey is the storage entry holding the JSON-encoded Session.
const StorageKey = "auth_user"

// Session is the authenticated user. The JSON shape is the persisted format.
type Session struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Team     string `json:"team"`
	Part     string `json:"part"`
}

// State is a snapshot of the store.
type State struct {
	User            *Session
	IsAuthenticated bool
}

// Store is the session state machine: unauthenticated or authenticated(user).
// IsAuthenticated is always equal to (user != nil). Safe for concurrent use.
type Store struct {
	storage storage.Storage

	mu   sync.RWMutex
	user *Session
}

// NewStore returns an unauthenticated store backed by s.
func NewStore(s storage.Storage) *Store {
	return &Store{storage: s}
}

// Login persists s and then marks the store authenticated.
// If persisting fails the in-memory state is left unchanged.
func (st *Store) Login(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.storage.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	u := s
	st.user = &u
	return nil
}

// Logout removes the persisted entry and resets to unauthenticated.
// The reset happens even when removal fails; the removal error is returned.
func (st *Store) Logout() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.user = nil
	if err := st.storage.Remove(StorageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Initialize rehydrates the store from storage. An absent entry leaves the
// store unauthenticated. A corrupt entry is deleted and is not an error.
// Only a storage read failure is returned.
func (st *Store) Initialize() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, ok, err := st.storage.Get(StorageKey)
	if err != nil {
		st.user = nil
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		st.user = nil
		return nil
	}

	var s *Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s == nil {
		st.user = nil
		_ = st.storage.Remove(StorageKey)
		return nil
	}
	st.user = s
	return nil
}

// User returns a copy of the current user.
func (st *Store) User() (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.user == nil {
		return Session{}, false
	}
	return *st.user, true
}

// IsAuthenticated reports whether a user is logged in.
func (st *Store) IsAuthenticated() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.user != nil
}

// State returns a snapshot. The returned User is a copy.
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.user == nil {
		return State{}
	}
	u := *st.user
	return State{User: &u, IsAuthenticated: true}
}
