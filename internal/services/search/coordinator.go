package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// ErrStale is returned when a response arrived after a newer request was
// issued for the same device and was therefore discarded.
var ErrStale = errors.New("response discarded: a newer request was issued")

// Catalog is the remote event source. Both calls degrade to an empty page
// on failure.
type Catalog interface {
	SearchEvents(ctx context.Context, keyword string, page, size int) models.EventPage
	GetUpcomingEvents(ctx context.Context, page, size int) models.EventPage
}

// Coordinator drives keyword search and pagination against a device store.
// Per device it keeps only a debounce timer, a request sequence number and
// the latest suggestions.
type Coordinator struct {
	catalog Catalog
	cfg     config.CatalogConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	debouncer *Debouncer
	seq       atomic.Uint64

	mu          sync.Mutex
	suggestions []models.Event
	lastUsed    time.Time
}

func NewCoordinator(catalog Catalog, cfg config.CatalogConfig) *Coordinator {
	defaults := config.DefaultCatalogConfig()
	if cfg.InitialPageSize <= 0 {
		cfg.InitialPageSize = defaults.InitialPageSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = defaults.SuggestionLimit
	}
	if cfg.SearchDebounce < 0 {
		cfg.SearchDebounce = defaults.SearchDebounce
	}

	return &Coordinator{
		catalog:  catalog,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (c *Coordinator) session(deviceID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[deviceID]
	if !ok {
		s = &session{debouncer: NewDebouncer(c.cfg.SearchDebounce)}
		c.sessions[deviceID] = s
	}
	s.mu.Lock()
	s.lastUsed = c.now()
	s.mu.Unlock()
	return s
}

// next issues a new sequence number, making every earlier one stale.
func (s *session) next() uint64 {
	return s.seq.Add(1)
}

func (s *session) current(seq uint64) bool {
	return s.seq.Load() == seq
}

func (s *session) setSuggestions(events []models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = events
}

// Search runs a debounced keyword search. A blank keyword restores the
// upcoming baseline immediately without a network call. Calls replaced by
// newer input return ErrSuperseded.
func (c *Coordinator) Search(ctx context.Context, st *store.Store, keyword string) error {
	sess := c.session(st.DeviceID())
	keyword = strings.TrimSpace(keyword)

	if keyword == "" {
		sess.debouncer.Cancel()
		sess.next()
		sess.setSuggestions(nil)
		st.DispatchEvent(func(s store.EventState) store.EventState {
			return s.SetSearchQuery("").
				SetLoading(false).
				SetLoadingMore(false).
				RestoreUpcoming()
		})
		metrics.RecordSearch("baseline")
		return nil
	}

	if err := sess.debouncer.Wait(ctx); err != nil {
		if errors.Is(err, ErrSuperseded) {
			metrics.RecordSearch("superseded")
		}
		return err
	}

	seq := sess.next()
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.SetLoading(true).
			SetLoadingMore(false).
			ResetPagination().
			SetSearchQuery(keyword)
	})

	page := c.catalog.SearchEvents(ctx, keyword, 0, c.cfg.InitialPageSize)
	if err := ctx.Err(); err != nil {
		c.finishAbandoned(st, sess, seq)
		return err
	}

	applied := false
	st.DispatchEvent(func(s store.EventState) store.EventState {
		if !sess.current(seq) {
			return s
		}
		applied = true
		sess.setSuggestions(firstN(page.Events, c.cfg.SuggestionLimit))
		return s.SetList(page.Events, page.Total).SetLoading(false)
	})

	if !applied {
		metrics.RecordSearch("stale")
		utils.LogDebug(ctx, "Discarded stale search response", utils.Fields{"keyword": keyword})
		return ErrStale
	}

	metrics.RecordSearch("fetched")
	utils.LogDebug(ctx, "Search applied", utils.Fields{
		"keyword": keyword,
		"results": len(page.Events),
		"total":   page.Total,
	})
	return nil
}

// LoadMore fetches the next page for the active keyword, or for the
// upcoming baseline when no keyword is active. It reports false without
// fetching when the list has no more pages or a fresh list is still loading.
func (c *Coordinator) LoadMore(ctx context.Context, st *store.Store) (bool, error) {
	sess := c.session(st.DeviceID())

	current := st.Events()
	if !current.HasMore || current.Loading {
		return false, nil
	}

	seq := sess.next()
	keyword := current.SearchQuery
	nextPage := current.CurrentPage + 1
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.SetLoadingMore(true)
	})

	var page models.EventPage
	if keyword != "" {
		page = c.catalog.SearchEvents(ctx, keyword, nextPage, c.cfg.PageSize)
	} else {
		page = c.catalog.GetUpcomingEvents(ctx, nextPage, c.cfg.PageSize)
	}
	if err := ctx.Err(); err != nil {
		c.finishAbandoned(st, sess, seq)
		return false, err
	}

	applied := false
	st.DispatchEvent(func(s store.EventState) store.EventState {
		if !sess.current(seq) {
			return s
		}
		applied = true
		if keyword == "" {
			s = s.AppendUpcomingBaseline(page.Events)
		}
		return s.AppendPage(page.Events, c.cfg.PageSize).SetLoadingMore(false)
	})

	if !applied {
		utils.LogDebug(ctx, "Discarded stale page", utils.Fields{"keyword": keyword, "page": nextPage})
		return false, ErrStale
	}
	return true, nil
}

// LoadUpcoming shows the upcoming baseline, fetching its first page only if
// it has never been loaded.
func (c *Coordinator) LoadUpcoming(ctx context.Context, st *store.Store) error {
	sess := c.session(st.DeviceID())
	seq := sess.next()

	if st.Events().UpcomingEventsLoaded {
		st.DispatchEvent(func(s store.EventState) store.EventState {
			return s.SetSearchQuery("").SetLoadingMore(false).RestoreUpcoming()
		})
		return nil
	}

	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.SetLoading(true).SetLoadingMore(false).ResetPagination().SetSearchQuery("")
	})

	page := c.catalog.GetUpcomingEvents(ctx, 0, c.cfg.InitialPageSize)
	if err := ctx.Err(); err != nil {
		c.finishAbandoned(st, sess, seq)
		return err
	}

	applied := false
	st.DispatchEvent(func(s store.EventState) store.EventState {
		if !sess.current(seq) {
			return s
		}
		applied = true
		return s.SetUpcomingBaseline(page.Events).SetList(page.Events, 0).SetLoading(false)
	})

	if !applied {
		return ErrStale
	}
	return nil
}

// Suggestions returns the first results of the device's latest search.
func (c *Coordinator) Suggestions(deviceID string) []models.Event {
	sess := c.session(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.Event, len(sess.suggestions))
	copy(out, sess.suggestions)
	return out
}

// EvictIdle drops sessions unused for longer than ttl and returns how many
// were dropped.
func (c *Coordinator) EvictIdle(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, s := range c.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle && !s.debouncer.Pending() {
			delete(c.sessions, id)
			evicted++
		}
	}
	return evicted
}

// finishAbandoned clears the loading flags of a request whose caller went
// away, unless a newer request owns them.
func (c *Coordinator) finishAbandoned(st *store.Store, sess *session, seq uint64) {
	st.DispatchEvent(func(s store.EventState) store.EventState {
		if !sess.current(seq) {
			return s
		}
		return s.SetLoading(false).SetLoadingMore(false)
	})
}

func firstN(events []models.Event, n int) []models.Event {
	if len(events) < n {
		n = len(events)
	}
	out := make([]models.Event, n)
	copy(out, events[:n])
	return out
}
