package favorites

import (
	"context"
	"errors"

	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// Remote is the document-store record of each user's favorite ids. All
// methods return their failures to the caller.
type Remote interface {
	LoadFavorites(ctx context.Context, userID string) ([]string, error)
	AddFavorite(ctx context.Context, userID, eventID string) error
	RemoveFavorite(ctx context.Context, userID, eventID string) error
	ClearFavorites(ctx context.Context, userID string) error
	SaveFavorites(ctx context.Context, userID string, ids []string) error
}

var ErrNoUser = errors.New("no signed-in user")

// ToggleResult reports the outcome of a toggle.
type ToggleResult struct {
	// Applied is false when the toggle was skipped because no non-guest
	// user is signed in.
	Applied bool
	// Favorite is the membership left in the store.
	Favorite bool
	// Reverted is true when the remote write failed and the local change
	// was undone.
	Reverted bool
	Err      error
}

// Coordinator keeps a device's favorites in step with the remote record.
// It holds no state of its own.
type Coordinator struct {
	remote Remote
}

func NewCoordinator(remote Remote) *Coordinator {
	return &Coordinator{remote: remote}
}

// Toggle flips eventID for the signed-in user in the store, then writes the
// change remotely. A failed write restores the pre-toggle membership.
func (c *Coordinator) Toggle(ctx context.Context, st *store.Store, eventID string) ToggleResult {
	userID, ok := st.Auth().FavoritesOwner()
	if !ok || eventID == "" {
		metrics.RecordFavoriteToggle("skipped")
		return ToggleResult{}
	}

	var was bool
	st.DispatchEvent(func(s store.EventState) store.EventState {
		was = s.Favorites.Contains(userID, eventID)
		return s.ToggleFavorite(userID, eventID)
	})

	var err error
	if was {
		err = c.remote.RemoveFavorite(ctx, userID, eventID)
	} else {
		err = c.remote.AddFavorite(ctx, userID, eventID)
	}

	if err != nil {
		st.DispatchEvent(func(s store.EventState) store.EventState {
			return s.SetFavorite(userID, eventID, was)
		})
		utils.LogError(ctx, "Failed to sync favorite, reverted local change", err, utils.Fields{
			"user_id":  userID,
			"event_id": eventID,
		})
		metrics.RecordFavoriteToggle("reverted")
		return ToggleResult{Applied: true, Favorite: was, Reverted: true, Err: err}
	}

	metrics.RecordFavoriteToggle("applied")
	return ToggleResult{Applied: true, Favorite: !was}
}

// Load replaces the user's local set with the remote list. On failure the
// local set is left as it was.
func (c *Coordinator) Load(ctx context.Context, st *store.Store, userID string) error {
	if userID == "" {
		return ErrNoUser
	}

	ids, err := c.remote.LoadFavorites(ctx, userID)
	if err != nil {
		utils.LogError(ctx, "Failed to load favorites", err, utils.Fields{"user_id": userID})
		return err
	}

	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.LoadFavorites(userID, ids)
	})
	utils.LogDebug(ctx, "Favorites loaded", utils.Fields{"user_id": userID, "count": len(ids)})
	return nil
}

// Clear deletes the remote record, then the local entry.
func (c *Coordinator) Clear(ctx context.Context, st *store.Store, userID string) error {
	if userID == "" {
		return ErrNoUser
	}

	if err := c.remote.ClearFavorites(ctx, userID); err != nil {
		utils.LogError(ctx, "Failed to clear favorites", err, utils.Fields{"user_id": userID})
		return err
	}

	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.ClearUserFavorites(userID)
	})
	return nil
}

// Save overwrites the remote record with the local set.
func (c *Coordinator) Save(ctx context.Context, st *store.Store, userID string) error {
	if userID == "" {
		return ErrNoUser
	}

	ids := st.Events().Favorites.Get(userID)
	if err := c.remote.SaveFavorites(ctx, userID, ids); err != nil {
		utils.LogError(ctx, "Failed to save favorites", err, utils.Fields{"user_id": userID})
		return err
	}
	return nil
}
