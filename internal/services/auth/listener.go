package auth

import (
	"context"

	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// StoreProvider resolves and persists device stores. *store.Registry
// implements it.
type StoreProvider interface {
	Get(ctx context.Context, deviceID string) (*store.Store, error)
	Persist(ctx context.Context, st *store.Store) error
}

// FavoritesLoader pulls a user's remote favorites into a store.
type FavoritesLoader interface {
	Load(ctx context.Context, st *store.Store, userID string) error
}

// SessionListener applies identity changes to device stores: sign-ins
// dispatch LoginSuccess and pull the user's favorites, sign-outs clear the
// session slice.
type SessionListener struct {
	stores    StoreProvider
	favorites FavoritesLoader
}

func NewSessionListener(stores StoreProvider, favorites FavoritesLoader) *SessionListener {
	return &SessionListener{stores: stores, favorites: favorites}
}

// Run consumes the notifier until ctx ends.
func (l *SessionListener) Run(ctx context.Context, notifier *Notifier) {
	changes, cancel := notifier.Subscribe()
	l.consume(ctx, changes, cancel)
}

// Start subscribes before returning, so no change published afterwards is
// missed, and consumes in the background until ctx ends.
func (l *SessionListener) Start(ctx context.Context, notifier *Notifier) {
	changes, cancel := notifier.Subscribe()
	go l.consume(ctx, changes, cancel)
}

func (l *SessionListener) consume(ctx context.Context, changes <-chan *Delivery, cancel func()) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-changes:
			l.Apply(ctx, d.Change)
			d.Ack()
		}
	}
}

// Apply handles a single change.
func (l *SessionListener) Apply(ctx context.Context, change StateChange) {
	ctx = utils.WithDeviceID(ctx, change.DeviceID)

	st, err := l.stores.Get(ctx, change.DeviceID)
	if err != nil {
		utils.LogError(ctx, "Failed to resolve device store", err)
		return
	}

	if change.User == nil {
		st.Logout()
	} else {
		user := *change.User
		st.DispatchAuth(func(s store.AuthState) store.AuthState {
			return s.LoginSuccess(user)
		})
		if owner, ok := st.Auth().FavoritesOwner(); ok {
			if err := l.favorites.Load(ctx, st, owner); err != nil {
				utils.LogWarn(ctx, "Favorites not loaded after sign-in", utils.Fields{
					"user_id": owner,
					"error":   err.Error(),
				})
			}
		}
	}

	if err := l.stores.Persist(ctx, st); err != nil {
		utils.LogError(ctx, "Failed to persist device state", err)
	}
}
