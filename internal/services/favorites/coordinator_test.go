package favorites

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/store"
)

type fakeRemote struct {
	mu      sync.Mutex
	records map[string][]string
	calls   []string
	failOn  map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string][]string), failOn: make(map[string]error)}
}

func (f *fakeRemote) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeRemote) LoadFavorites(_ context.Context, userID string) ([]string, error) {
	if err := f.record("load"); err != nil {
		return nil, err
	}
	return append([]string{}, f.records[userID]...), nil
}

func (f *fakeRemote) AddFavorite(_ context.Context, userID, eventID string) error {
	if err := f.record("add"); err != nil {
		return err
	}
	f.records[userID] = append(f.records[userID], eventID)
	return nil
}

func (f *fakeRemote) RemoveFavorite(_ context.Context, userID, eventID string) error {
	if err := f.record("remove"); err != nil {
		return err
	}
	var kept []string
	for _, id := range f.records[userID] {
		if id != eventID {
			kept = append(kept, id)
		}
	}
	f.records[userID] = kept
	return nil
}

func (f *fakeRemote) ClearFavorites(_ context.Context, userID string) error {
	if err := f.record("clear"); err != nil {
		return err
	}
	delete(f.records, userID)
	return nil
}

func (f *fakeRemote) SaveFavorites(_ context.Context, userID string, ids []string) error {
	if err := f.record("save"); err != nil {
		return err
	}
	f.records[userID] = ids
	return nil
}

func signedIn(user models.User) *store.Store {
	st := store.New("device-1")
	st.DispatchAuth(func(s store.AuthState) store.AuthState { return s.LoginSuccess(user) })
	return st
}

func favoritesOf(st *store.Store, userID string) []string {
	return st.Events().Favorites.Get(userID)
}

func TestToggle_GuestIsNoOp(t *testing.T) {
	remote := newFakeRemote()
	st := signedIn(models.User{ID: "guest-1", IsGuest: true})
	before := st.Events()

	res := NewCoordinator(remote).Toggle(context.Background(), st, "evt1")

	assert.False(t, res.Applied)
	assert.Empty(t, remote.calls)
	assert.Equal(t, before, st.Events())
	_, exists := st.Events().Favorites["guest-1"]
	assert.False(t, exists)
}

func TestToggle_SignedOutIsNoOp(t *testing.T) {
	remote := newFakeRemote()
	st := store.New("device-1")

	res := NewCoordinator(remote).Toggle(context.Background(), st, "evt1")

	assert.False(t, res.Applied)
	assert.Empty(t, remote.calls)
	assert.Empty(t, st.Events().Favorites)
}

func TestToggle_AddsOptimistically(t *testing.T) {
	remote := newFakeRemote()
	st := signedIn(models.User{ID: "u1"})

	res := NewCoordinator(remote).Toggle(context.Background(), st, "evt1")

	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.True(t, res.Favorite)
	assert.False(t, res.Reverted)
	assert.Equal(t, []string{"evt1"}, favoritesOf(st, "u1"))
	assert.Equal(t, []string{"add"}, remote.calls)
	assert.Equal(t, []string{"evt1"}, remote.records["u1"])
}

func TestToggle_RevertsWhenAddFails(t *testing.T) {
	remote := newFakeRemote()
	remote.failOn["add"] = errors.New("network down")
	st := signedIn(models.User{ID: "u1"})

	res := NewCoordinator(remote).Toggle(context.Background(), st, "evt1")

	assert.True(t, res.Reverted)
	assert.False(t, res.Favorite)
	assert.EqualError(t, res.Err, "network down")
	assert.Empty(t, favoritesOf(st, "u1"))
}

func TestToggle_RevertsWhenRemoveFails(t *testing.T) {
	remote := newFakeRemote()
	remote.failOn["remove"] = errors.New("timeout")
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"a", "evt1", "b"})
	})

	res := NewCoordinator(remote).Toggle(context.Background(), st, "evt1")

	assert.True(t, res.Reverted)
	assert.True(t, res.Favorite)
	assert.ElementsMatch(t, []string{"a", "evt1", "b"}, favoritesOf(st, "u1"))
}

func TestToggle_DoubleToggleRestoresSet(t *testing.T) {
	remote := newFakeRemote()
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"a"})
	})
	coord := NewCoordinator(remote)

	coord.Toggle(context.Background(), st, "evt1")
	coord.Toggle(context.Background(), st, "evt1")

	assert.Equal(t, []string{"a"}, favoritesOf(st, "u1"))
	assert.Equal(t, []string{"add", "remove"}, remote.calls)
}

func TestLoad_OverwritesLocalSet(t *testing.T) {
	remote := newFakeRemote()
	remote.records["u1"] = []string{"r1", "r2"}
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"local-only"})
	})

	require.NoError(t, NewCoordinator(remote).Load(context.Background(), st, "u1"))
	assert.Equal(t, []string{"r1", "r2"}, favoritesOf(st, "u1"))
}

func TestLoad_FailureKeepsLocalSet(t *testing.T) {
	remote := newFakeRemote()
	remote.failOn["load"] = errors.New("unavailable")
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"cached"})
	})

	err := NewCoordinator(remote).Load(context.Background(), st, "u1")
	assert.Error(t, err)
	assert.Equal(t, []string{"cached"}, favoritesOf(st, "u1"))
}

func TestClear(t *testing.T) {
	remote := newFakeRemote()
	remote.records["u1"] = []string{"a"}
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"a"})
	})
	coord := NewCoordinator(remote)

	require.NoError(t, coord.Clear(context.Background(), st, "u1"))
	_, exists := st.Events().Favorites["u1"]
	assert.False(t, exists)
	assert.NotContains(t, remote.records, "u1")
}

func TestClear_FailureKeepsLocalSet(t *testing.T) {
	remote := newFakeRemote()
	remote.failOn["clear"] = errors.New("unavailable")
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"a"})
	})

	assert.Error(t, NewCoordinator(remote).Clear(context.Background(), st, "u1"))
	assert.Equal(t, []string{"a"}, favoritesOf(st, "u1"))
}

func TestSave_PushesLocalSet(t *testing.T) {
	remote := newFakeRemote()
	st := signedIn(models.User{ID: "u1"})
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites("u1", []string{"a", "b"})
	})

	require.NoError(t, NewCoordinator(remote).Save(context.Background(), st, "u1"))
	assert.Equal(t, []string{"a", "b"}, remote.records["u1"])
}

func TestRequiresUserID(t *testing.T) {
	coord := NewCoordinator(newFakeRemote())
	st := store.New("d")

	assert.ErrorIs(t, coord.Load(context.Background(), st, ""), ErrNoUser)
	assert.ErrorIs(t, coord.Clear(context.Background(), st, ""), ErrNoUser)
	assert.ErrorIs(t, coord.Save(context.Background(), st, ""), ErrNoUser)
}
