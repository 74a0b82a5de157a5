package store

import "github.com/citypulse/server/internal/models"

// DefaultPageSize is the expected page length when no page size is
// configured. A shorter page marks the end of results.
const DefaultPageSize = 10

// EventState is the event slice of a device's state. All methods are pure:
// they return a new state and never modify the receiver's slices or maps.
type EventState struct {
	Events               []models.Event `json:"events"`
	UpcomingEvents       []models.Event `json:"upcomingEvents"`
	Favorites            FavoritesMap   `json:"favorites"`
	Loading              bool           `json:"loading"`
	LoadingMore          bool           `json:"loadingMore"`
	SearchQuery          string         `json:"searchQuery"`
	CurrentPage          int            `json:"currentPage"`
	HasMore              bool           `json:"hasMore"`
	TotalResults         int            `json:"totalResults"`
	UpcomingEventsLoaded bool           `json:"upcomingEventsLoaded"`
	// UpcomingPage is the last page index held by UpcomingEvents.
	UpcomingPage         int            `json:"upcomingPage"`
}

func NewEventState() EventState {
	return EventState{
		Events:         []models.Event{},
		UpcomingEvents: []models.Event{},
		Favorites:      FavoritesMap{},
		HasMore:        true,
	}
}

// SetList replaces the visible list and restarts pagination.
func (s EventState) SetList(events []models.Event, total int) EventState {
	s.Events = cloneEvents(events)
	s.TotalResults = total
	s.CurrentPage = 0
	s.HasMore = len(events) > 0
	return s
}

// AppendPage appends one fetched page to the visible list.
func (s EventState) AppendPage(events []models.Event, pageSize int) EventState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s.Events = concatEvents(s.Events, events)
	s.CurrentPage++
	s.HasMore = len(events) >= pageSize
	return s
}

func (s EventState) SetUpcomingBaseline(events []models.Event) EventState {
	s.UpcomingEvents = cloneEvents(events)
	s.UpcomingEventsLoaded = true
	s.UpcomingPage = 0
	return s
}

// AppendUpcomingBaseline adds the next baseline page. Events already in the
// baseline are skipped.
func (s EventState) AppendUpcomingBaseline(events []models.Event) EventState {
	seen := make(map[string]struct{}, len(s.UpcomingEvents))
	for _, ev := range s.UpcomingEvents {
		seen[ev.ID] = struct{}{}
	}
	fresh := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		fresh = append(fresh, ev)
	}
	s.UpcomingEvents = concatEvents(s.UpcomingEvents, fresh)
	s.UpcomingPage++
	return s
}

// RestoreUpcoming shows the baseline again. Pagination resumes after the
// last page the baseline holds.
func (s EventState) RestoreUpcoming() EventState {
	s = s.SetList(s.UpcomingEvents, 0)
	s.CurrentPage = s.UpcomingPage
	return s
}

func (s EventState) SetLoading(loading bool) EventState {
	s.Loading = loading
	return s
}

func (s EventState) SetLoadingMore(loading bool) EventState {
	s.LoadingMore = loading
	return s
}

// ResetPagination is applied before a fresh query is issued.
func (s EventState) ResetPagination() EventState {
	s.CurrentPage = 0
	s.HasMore = true
	return s
}

func (s EventState) SetSearchQuery(q string) EventState {
	s.SearchQuery = q
	return s
}

func (s EventState) ToggleFavorite(userID, eventID string) EventState {
	s.Favorites = s.Favorites.Toggle(userID, eventID)
	return s
}

// SetFavorite forces membership of eventID to favorite. Used to restore a
// pre-toggle value.
func (s EventState) SetFavorite(userID, eventID string, favorite bool) EventState {
	s.Favorites = s.Favorites.Set(userID, eventID, favorite)
	return s
}

func (s EventState) LoadFavorites(userID string, ids []string) EventState {
	s.Favorites = s.Favorites.Replace(userID, ids)
	return s
}

func (s EventState) ClearUserFavorites(userID string) EventState {
	s.Favorites = s.Favorites.Remove(userID)
	return s
}

// FindEvent looks id up in the visible list, then in the upcoming baseline.
func (s EventState) FindEvent(id string) (models.Event, bool) {
	for _, list := range [][]models.Event{s.Events, s.UpcomingEvents} {
		for _, ev := range list {
			if ev.ID == id {
				return ev, true
			}
		}
	}
	return models.Event{}, false
}

// FavoriteEvents joins the user's favorite ids against the de-duplicated
// union of both lists. Ids with no loaded event are skipped.
func (s EventState) FavoriteEvents(userID string) []models.Event {
	byID := make(map[string]models.Event, len(s.Events)+len(s.UpcomingEvents))
	for _, ev := range s.UpcomingEvents {
		byID[ev.ID] = ev
	}
	for _, ev := range s.Events {
		byID[ev.ID] = ev
	}

	ids := s.Favorites.Get(userID)
	out := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		if ev, ok := byID[id]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func cloneEvents(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	return out
}

func concatEvents(a, b []models.Event) []models.Event {
	out := make([]models.Event, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
