package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

type PreferencesHandler struct{}

// UpdatePreferencesRequest changes only the fields that are set.
type UpdatePreferencesRequest struct {
	Language *models.Language `json:"language,omitempty"`
	Theme    *models.Theme    `json:"theme,omitempty"`
}

// StateResponse is everything the app restores on launch.
type StateResponse struct {
	DeviceID    string                `json:"deviceId"`
	User        *models.User          `json:"user"`
	IsAuth      bool                  `json:"isAuthenticated"`
	Preferences models.AppPreferences `json:"preferences"`
	Locale      string                `json:"locale"`
	Events      EventListResponse     `json:"events"`
	Favorites   []string              `json:"favorites"`
}

func NewPreferencesHandler() *PreferencesHandler {
	return &PreferencesHandler{}
}

// Get godoc
// @Summary Device preferences
// @Tags preferences
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} models.AppPreferences
// @Router /api/v1/preferences [get]
func (h *PreferencesHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.StoreFrom(c).App().AppPreferences)
}

// Update godoc
// @Summary Change language or theme
// @Description Switching language also switches the layout direction.
// @Tags preferences
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} models.AppPreferences
// @Failure 400 {object} models.APIError
// @Router /api/v1/preferences [put]
func (h *PreferencesHandler) Update(c *gin.Context) {
	var req UpdatePreferencesRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Language != nil && !req.Language.Valid() {
		middleware.AbortWithError(c, utils.NewValidationError("Unsupported language",
			map[string]interface{}{"field": "language"}))
		return
	}
	if req.Theme != nil && !req.Theme.Valid() {
		middleware.AbortWithError(c, utils.NewValidationError("Unsupported theme",
			map[string]interface{}{"field": "theme"}))
		return
	}

	app := middleware.StoreFrom(c).DispatchApp(func(s store.AppState) store.AppState {
		if req.Language != nil {
			s = s.SetLanguage(*req.Language)
		}
		if req.Theme != nil {
			s = s.SetTheme(*req.Theme)
		}
		return s
	})

	utils.LogDebug(c.Request.Context(), "Preferences updated", utils.Fields{
		"language": app.Language,
		"theme":    app.Theme,
	})
	c.JSON(http.StatusOK, app.AppPreferences)
}

// SplashSeen godoc
// @Summary Mark the splash screen as seen
// @Tags preferences
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} models.AppPreferences
// @Router /api/v1/preferences/splash-seen [post]
func (h *PreferencesHandler) SplashSeen(c *gin.Context) {
	app := middleware.StoreFrom(c).DispatchApp(func(s store.AppState) store.AppState {
		return s.SetSplashSeen()
	})
	c.JSON(http.StatusOK, app.AppPreferences)
}

// State godoc
// @Summary Full device state
// @Description Preferences and visible list as restored for this device. The session and favorites are included only when the bearer token belongs to the signed-in user.
// @Tags preferences
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} StateResponse
// @Router /api/v1/state [get]
func (h *PreferencesHandler) State(c *gin.Context) {
	st := middleware.StoreFrom(c)
	state := st.State()

	// The session is only revealed to the token it belongs to.
	session := store.AuthState{}
	if sessionMatches(c, state.Auth) {
		session = state.Auth
	}

	favs := []string{}
	if userID, ok := session.FavoritesOwner(); ok {
		favs = state.Event.Favorites.Get(userID)
	}

	c.JSON(http.StatusOK, StateResponse{
		DeviceID:    st.DeviceID(),
		User:        session.User,
		IsAuth:      session.IsAuthenticated,
		Preferences: state.App.AppPreferences,
		Locale:      utils.LocaleFromLanguage(string(state.App.Language)),
		Events:      listResponse(state.Event, StatusApplied),
		Favorites:   favs,
	})
}
