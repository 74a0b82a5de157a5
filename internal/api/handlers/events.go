package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/services/search"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// Searcher drives search and pagination for a device store.
// *search.Coordinator implements it.
type Searcher interface {
	Search(ctx context.Context, st *store.Store, keyword string) error
	LoadMore(ctx context.Context, st *store.Store) (bool, error)
	LoadUpcoming(ctx context.Context, st *store.Store) error
	Suggestions(deviceID string) []models.Event
}

// DetailsSource returns the full record for an event, or nil.
type DetailsSource interface {
	GetEventDetails(ctx context.Context, id string) *models.Event
}

// Request outcomes reported in EventListResponse.Status.
const (
	StatusApplied    = "applied"
	StatusSuperseded = "superseded"
	StatusStale      = "stale"
	StatusNoMore     = "no_more"
)

type EventHandler struct {
	searcher Searcher
	details  DetailsSource
}

type SearchRequest struct {
	Keyword string `json:"keyword"`
}

// EventListResponse is the visible list after a request, plus what happened
// to the request itself.
type EventListResponse struct {
	Status       string         `json:"status"`
	Events       []models.Event `json:"events"`
	SearchQuery  string         `json:"searchQuery"`
	CurrentPage  int            `json:"currentPage"`
	HasMore      bool           `json:"hasMore"`
	TotalResults int            `json:"totalResults"`
	Loading      bool           `json:"loading"`
	LoadingMore  bool           `json:"loadingMore"`
}

type SuggestionsResponse struct {
	Suggestions []models.Event `json:"suggestions"`
}

// EventDetailsResponse adds display fields to the event record.
type EventDetailsResponse struct {
	models.Event
	PlainDescription string `json:"plainDescription,omitempty"`
	FormattedDate    string `json:"formattedDate"`
	PriceText        string `json:"priceText,omitempty"`
	IsFavorite       bool   `json:"isFavorite"`
}

func NewEventHandler(searcher Searcher, details DetailsSource) *EventHandler {
	return &EventHandler{searcher: searcher, details: details}
}

// Search godoc
// @Summary Search events by keyword
// @Description Debounced keyword search. Input replaced within the debounce window returns status "superseded"; a blank keyword restores the upcoming list.
// @Tags events
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body SearchRequest true "Keyword"
// @Success 200 {object} EventListResponse
// @Failure 400 {object} models.APIError
// @Router /api/v1/events/search [post]
func (h *EventHandler) Search(c *gin.Context) {
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}

	st := middleware.StoreFrom(c)
	err := h.searcher.Search(c.Request.Context(), st, req.Keyword)
	h.respondList(c, st, err)
}

// LoadMore godoc
// @Summary Load the next page
// @Description Appends the next page of the active search, or of the upcoming list when no keyword is active. Returns status "no_more" without fetching when the list is exhausted.
// @Tags events
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} EventListResponse
// @Router /api/v1/events/more [post]
func (h *EventHandler) LoadMore(c *gin.Context) {
	st := middleware.StoreFrom(c)
	fetched, err := h.searcher.LoadMore(c.Request.Context(), st)
	if err == nil && !fetched {
		writeList(c, st, StatusNoMore)
		return
	}
	h.respondList(c, st, err)
}

// Upcoming godoc
// @Summary Show upcoming events
// @Description Shows the upcoming list, fetching it only the first time.
// @Tags events
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} EventListResponse
// @Router /api/v1/events/upcoming [get]
func (h *EventHandler) Upcoming(c *gin.Context) {
	st := middleware.StoreFrom(c)
	err := h.searcher.LoadUpcoming(c.Request.Context(), st)
	h.respondList(c, st, err)
}

// List godoc
// @Summary Current visible list
// @Tags events
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} EventListResponse
// @Router /api/v1/events [get]
func (h *EventHandler) List(c *gin.Context) {
	writeList(c, middleware.StoreFrom(c), StatusApplied)
}

// Suggestions godoc
// @Summary Suggestions from the latest search
// @Tags events
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} SuggestionsResponse
// @Router /api/v1/events/suggestions [get]
func (h *EventHandler) Suggestions(c *gin.Context) {
	st := middleware.StoreFrom(c)
	c.JSON(http.StatusOK, SuggestionsResponse{Suggestions: h.searcher.Suggestions(st.DeviceID())})
}

// Details godoc
// @Summary Event details
// @Description Fetches the full record, falling back to the copy in the device's lists when the catalog is unavailable.
// @Tags events
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param event_id path string true "Event ID"
// @Success 200 {object} EventDetailsResponse
// @Failure 404 {object} models.APIError
// @Router /api/v1/events/{event_id} [get]
func (h *EventHandler) Details(c *gin.Context) {
	ctx := c.Request.Context()
	st := middleware.StoreFrom(c)
	eventID := c.Param("event_id")

	state := st.State()
	ev := h.details.GetEventDetails(ctx, eventID)
	if ev == nil {
		local, ok := state.Event.FindEvent(eventID)
		if !ok {
			middleware.AbortWithError(c, utils.NewEventNotFoundError(eventID))
			return
		}
		utils.LogDebug(ctx, "Serving event from device lists", utils.Fields{"event_id": eventID})
		ev = &local
	}

	resp := EventDetailsResponse{
		Event:            *ev,
		PlainDescription: utils.StripHTML(ev.Description),
		FormattedDate:    utils.FormatDateWithLocale(ev.Date, ev.Time, string(state.App.Language)),
	}
	if ev.PriceRange != nil {
		resp.PriceText = fmt.Sprintf("%s - %s",
			utils.FormatCurrency(ev.PriceRange.Min), utils.FormatCurrency(ev.PriceRange.Max))
	}
	if userID, ok := ownerFor(c, state.Auth); ok {
		resp.IsFavorite = state.Event.Favorites.Contains(userID, eventID)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) respondList(c *gin.Context, st *store.Store, err error) {
	switch {
	case err == nil:
		writeList(c, st, StatusApplied)
	case errors.Is(err, search.ErrSuperseded):
		writeList(c, st, StatusSuperseded)
	case errors.Is(err, search.ErrStale):
		writeList(c, st, StatusStale)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.LogDebug(c.Request.Context(), "Client went away before the list was ready")
		c.Abort()
	default:
		middleware.AbortWithError(c, err)
	}
}

func writeList(c *gin.Context, st *store.Store, status string) {
	c.JSON(http.StatusOK, listResponse(st.Events(), status))
}

func listResponse(ev store.EventState, status string) EventListResponse {
	return EventListResponse{
		Status:       status,
		Events:       ev.Events,
		SearchQuery:  ev.SearchQuery,
		CurrentPage:  ev.CurrentPage,
		HasMore:      ev.HasMore,
		TotalResults: ev.TotalResults,
		Loading:      ev.Loading,
		LoadingMore:  ev.LoadingMore,
	}
}
