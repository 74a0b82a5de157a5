package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/services/favorites"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// FavoritesSync keeps a device's favorites in step with the remote record.
// *favorites.Coordinator implements it.
type FavoritesSync interface {
	Toggle(ctx context.Context, st *store.Store, eventID string) favorites.ToggleResult
	Load(ctx context.Context, st *store.Store, userID string) error
	Clear(ctx context.Context, st *store.Store, userID string) error
	Save(ctx context.Context, st *store.Store, userID string) error
}

type FavoritesHandler struct {
	sync FavoritesSync
}

type ToggleFavoriteResponse struct {
	EventID    string `json:"eventId"`
	Applied    bool   `json:"applied"`
	IsFavorite bool   `json:"isFavorite"`
	Reverted   bool   `json:"reverted"`
}

type FavoritesResponse struct {
	IDs    []string       `json:"ids"`
	Events []models.Event `json:"events"`
}

func NewFavoritesHandler(sync FavoritesSync) *FavoritesHandler {
	return &FavoritesHandler{sync: sync}
}

// Toggle godoc
// @Summary Toggle an event in the user's favorites
// @Description Applies the change locally and writes it remotely. A failed write reverts the local change and returns 502 with reverted=true. For a guest session nothing changes and applied=false.
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Param event_id path string true "Event ID"
// @Success 200 {object} ToggleFavoriteResponse
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 502 {object} ToggleFavoriteResponse
// @Router /api/v1/favorites/{event_id}/toggle [post]
func (h *FavoritesHandler) Toggle(c *gin.Context) {
	st := middleware.StoreFrom(c)
	eventID := c.Param("event_id")

	if !sessionMatches(c, st.Auth()) {
		middleware.AbortWithError(c, utils.NewSessionMismatchError())
		return
	}

	res := h.sync.Toggle(c.Request.Context(), st, eventID)
	resp := ToggleFavoriteResponse{
		EventID:    eventID,
		Applied:    res.Applied,
		IsFavorite: res.Favorite,
		Reverted:   res.Reverted,
	}

	if res.Reverted {
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary The user's favorites
// @Description Ids of the signed-in user's favorites and the matching events from the device's lists.
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} FavoritesResponse
// @Failure 401 {object} models.APIError
// @Router /api/v1/favorites [get]
func (h *FavoritesHandler) List(c *gin.Context) {
	st := middleware.StoreFrom(c)
	events := st.Events()

	resp := FavoritesResponse{IDs: []string{}, Events: []models.Event{}}
	if userID, ok := ownerFor(c, st.Auth()); ok {
		resp.IDs = events.Favorites.Get(userID)
		resp.Events = events.FavoriteEvents(userID)
	}
	c.JSON(http.StatusOK, resp)
}

// Sync godoc
// @Summary Reload favorites from the remote record
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} FavoritesResponse
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 502 {object} models.APIError
// @Router /api/v1/favorites/sync [post]
func (h *FavoritesHandler) Sync(c *gin.Context) {
	h.withOwner(c, h.sync.Load)
}

// Save godoc
// @Summary Overwrite the remote record with the device's favorites
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} FavoritesResponse
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 502 {object} models.APIError
// @Router /api/v1/favorites [put]
func (h *FavoritesHandler) Save(c *gin.Context) {
	h.withOwner(c, h.sync.Save)
}

// Clear godoc
// @Summary Delete all of the user's favorites
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} FavoritesResponse
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 502 {object} models.APIError
// @Router /api/v1/favorites [delete]
func (h *FavoritesHandler) Clear(c *gin.Context) {
	h.withOwner(c, h.sync.Clear)
}

func (h *FavoritesHandler) withOwner(c *gin.Context, op func(context.Context, *store.Store, string) error) {
	st := middleware.StoreFrom(c)
	session := st.Auth()
	if !sessionMatches(c, session) {
		middleware.AbortWithError(c, utils.NewSessionMismatchError())
		return
	}
	userID, ok := session.FavoritesOwner()
	if !ok {
		middleware.AbortWithError(c, utils.NewGuestNotAllowedError())
		return
	}

	if err := op(c.Request.Context(), st, userID); err != nil {
		middleware.AbortWithError(c, utils.NewRemoteUnavailableError(err))
		return
	}

	h.List(c)
}

// sessionMatches reports whether the request's token belongs to the user
// signed in on the device's store.
func sessionMatches(c *gin.Context, session store.AuthState) bool {
	claims := middleware.ClaimsFrom(c)
	return claims != nil && session.User != nil && session.User.ID == claims.UserID
}

// ownerFor is FavoritesOwner restricted to requests authenticated as that
// owner.
func ownerFor(c *gin.Context, session store.AuthState) (string, bool) {
	if !sessionMatches(c, session) {
		return "", false
	}
	return session.FavoritesOwner()
}
