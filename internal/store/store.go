package store

import (
	"sync"
	"time"

	"github.com/citypulse/server/internal/models"
)

// Snapshot is the persisted subset of a device's state.
type Snapshot struct {
	Auth  AuthState  `json:"auth"`
	App   AppState   `json:"app"`
	Event EventState `json:"event"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		App:   NewAppState(),
		Event: NewEventState(),
	}
}

// Store is the state container for one device. Reducers are applied under a
// single mutex so their effects land in the order they were dispatched.
type Store struct {
	deviceID string

	mu         sync.RWMutex
	state      Snapshot
	version    uint64
	lastAccess time.Time
	now        func() time.Time
}

func New(deviceID string) *Store {
	return newStore(deviceID, NewSnapshot(), time.Now)
}

func newStore(deviceID string, state Snapshot, now func() time.Time) *Store {
	if state.Event.Favorites == nil {
		state.Event.Favorites = FavoritesMap{}
	}
	if state.Event.Events == nil {
		state.Event.Events = []models.Event{}
	}
	if state.Event.UpcomingEvents == nil {
		state.Event.UpcomingEvents = []models.Event{}
	}
	// Loading flags describe in-flight work and never survive a restore.
	state.Event.Loading = false
	state.Event.LoadingMore = false

	return &Store{
		deviceID:   deviceID,
		state:      state,
		lastAccess: now(),
		now:        now,
	}
}

func (s *Store) DeviceID() string {
	return s.deviceID
}

// State returns the current state. Reducers copy on write, so the returned
// value is never modified afterwards.
func (s *Store) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = s.now()
	return s.state
}

func (s *Store) Events() EventState {
	return s.State().Event
}

func (s *Store) Auth() AuthState {
	return s.State().Auth
}

func (s *Store) App() AppState {
	return s.State().App
}

// DispatchEvent applies fn to the event slice and returns the new slice.
func (s *Store) DispatchEvent(fn func(EventState) EventState) EventState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Event = fn(s.state.Event)
	s.touch()
	return s.state.Event
}

func (s *Store) DispatchAuth(fn func(AuthState) AuthState) AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Auth = fn(s.state.Auth)
	s.touch()
	return s.state.Auth
}

func (s *Store) DispatchApp(fn func(AppState) AppState) AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.App = fn(s.state.App)
	s.touch()
	return s.state.App
}

// Logout clears the session. The biometric preference follows the device
// credential, which outlives the session.
func (s *Store) Logout() {
	s.DispatchAuth(func(a AuthState) AuthState { return a.Logout() })
}

// Version increases on every dispatch.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *Store) markAccessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = s.now()
}

// withIdle runs fn under the store lock if the store is still at version
// and untouched since cutoff. It reports fn's result, or false.
func (s *Store) withIdle(version uint64, cutoff time.Time, fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || s.lastAccess.After(cutoff) {
		return false
	}
	return fn()
}

func (s *Store) snapshot() (Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.version
}

func (s *Store) touch() {
	s.version++
	s.lastAccess = s.now()
}
