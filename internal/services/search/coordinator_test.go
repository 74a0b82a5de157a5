package search

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/store"
)

type call struct {
	keyword string
	page    int
	size    int
}

type fakeCatalog struct {
	mu            sync.Mutex
	searchCalls   []call
	upcomingCalls []call

	searchFn   func(ctx context.Context, keyword string, page, size int) models.EventPage
	upcomingFn func(ctx context.Context, page, size int) models.EventPage
}

func (f *fakeCatalog) SearchEvents(ctx context.Context, keyword string, page, size int) models.EventPage {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, call{keyword: keyword, page: page, size: size})
	fn := f.searchFn
	f.mu.Unlock()
	if fn == nil {
		return models.EventPage{Events: []models.Event{}}
	}
	return fn(ctx, keyword, page, size)
}

func (f *fakeCatalog) GetUpcomingEvents(ctx context.Context, page, size int) models.EventPage {
	f.mu.Lock()
	f.upcomingCalls = append(f.upcomingCalls, call{page: page, size: size})
	fn := f.upcomingFn
	f.mu.Unlock()
	if fn == nil {
		return models.EventPage{Events: []models.Event{}}
	}
	return fn(ctx, page, size)
}

func (f *fakeCatalog) searches() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call{}, f.searchCalls...)
}

func (f *fakeCatalog) upcoming() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call{}, f.upcomingCalls...)
}

func pageOf(prefix string, n, total int) models.EventPage {
	events := make([]models.Event, n)
	for i := range events {
		events[i] = models.Event{ID: fmt.Sprintf("%s%d", prefix, i+1)}
	}
	return models.EventPage{Events: events, Total: total}
}

func testConfig(debounce time.Duration) config.CatalogConfig {
	cfg := config.DefaultCatalogConfig()
	cfg.SearchDebounce = debounce
	return cfg
}

func ids(events []models.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestSearch_FetchesFirstPage(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(_ context.Context, keyword string, page, size int) models.EventPage {
			return pageOf("s", 10, 42)
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")

	require.NoError(t, coord.Search(context.Background(), st, "  rock "))

	assert.Equal(t, []call{{keyword: "rock", page: 0, size: 10}}, catalog.searches())
	ev := st.Events()
	assert.Len(t, ev.Events, 10)
	assert.Equal(t, 42, ev.TotalResults)
	assert.Equal(t, 0, ev.CurrentPage)
	assert.True(t, ev.HasMore)
	assert.False(t, ev.Loading)
	assert.Equal(t, "rock", ev.SearchQuery)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, ids(coord.Suggestions("d1")))
}

func TestSearch_BlankRestoresBaselineWithoutNetwork(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(context.Context, string, int, int) models.EventPage { return pageOf("s", 3, 3) },
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	st.DispatchEvent(func(s store.EventState) store.EventState {
		baseline := pageOf("u", 4, 0).Events
		return s.SetUpcomingBaseline(baseline).SetList(baseline, 0)
	})

	require.NoError(t, coord.Search(context.Background(), st, "jazz"))
	require.Equal(t, []string{"s1", "s2", "s3"}, ids(st.Events().Events))
	searchesBefore := len(catalog.searches())

	require.NoError(t, coord.Search(context.Background(), st, "   "))

	assert.Len(t, catalog.searches(), searchesBefore)
	assert.Empty(t, catalog.upcoming())
	ev := st.Events()
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, ids(ev.Events))
	assert.Empty(t, ev.SearchQuery)
	assert.Empty(t, coord.Suggestions("d1"))
}

func TestSearch_DebounceRunsTrailingCallOnly(t *testing.T) {
	catalog := &fakeCatalog{}
	coord := NewCoordinator(catalog, testConfig(80*time.Millisecond))
	st := store.New("d1")

	keywords := []string{"r", "ro", "roc", "rock"}
	errs := make([]error, len(keywords))
	var wg sync.WaitGroup
	for i, kw := range keywords {
		wg.Add(1)
		go func(i int, kw string) {
			defer wg.Done()
			errs[i] = coord.Search(context.Background(), st, kw)
		}(i, kw)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	for i := 0; i < len(keywords)-1; i++ {
		assert.ErrorIs(t, errs[i], ErrSuperseded, keywords[i])
	}
	assert.NoError(t, errs[len(keywords)-1])
	assert.Equal(t, []call{{keyword: "rock", page: 0, size: 10}}, catalog.searches())
}

func TestSearch_BlankCancelsPendingSearch(t *testing.T) {
	catalog := &fakeCatalog{}
	coord := NewCoordinator(catalog, testConfig(100*time.Millisecond))
	st := store.New("d1")

	done := make(chan error, 1)
	go func() { done <- coord.Search(context.Background(), st, "rock") }()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, coord.Search(context.Background(), st, ""))
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, catalog.searches())
}

func TestSearch_StaleResponseDiscarded(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	catalog := &fakeCatalog{
		searchFn: func(_ context.Context, keyword string, _, _ int) models.EventPage {
			if keyword == "slow" {
				close(slowStarted)
				<-releaseSlow
				return pageOf("slow", 10, 100)
			}
			return pageOf("fast", 2, 2)
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")

	slowDone := make(chan error, 1)
	go func() { slowDone <- coord.Search(context.Background(), st, "slow") }()
	<-slowStarted

	require.NoError(t, coord.Search(context.Background(), st, "fast"))
	close(releaseSlow)

	assert.ErrorIs(t, <-slowDone, ErrStale)
	ev := st.Events()
	assert.Equal(t, []string{"fast1", "fast2"}, ids(ev.Events))
	assert.Equal(t, "fast", ev.SearchQuery)
	assert.Equal(t, 2, ev.TotalResults)
	assert.False(t, ev.Loading)
	assert.Equal(t, []string{"fast1", "fast2"}, ids(coord.Suggestions("d1")))
}

func TestSearch_CancelledRequestKeepsList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	catalog := &fakeCatalog{
		searchFn: func(context.Context, string, int, int) models.EventPage {
			cancel()
			return models.EventPage{Events: []models.Event{}}
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.SetList(pageOf("keep", 3, 3).Events, 3)
	})

	err := coord.Search(ctx, st, "rock")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"keep1", "keep2", "keep3"}, ids(st.Events().Events))
	assert.False(t, st.Events().Loading)
}

func TestLoadMore_GuardedByHasMore(t *testing.T) {
	catalog := &fakeCatalog{}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	st.DispatchEvent(func(s store.EventState) store.EventState {
		return s.SetSearchQuery("rock").SetList(nil, 0)
	})

	loaded, err := coord.LoadMore(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Empty(t, catalog.searches())
	assert.Empty(t, catalog.upcoming())
}

func TestLoadMore_KeywordPagination(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(_ context.Context, _ string, page, _ int) models.EventPage {
			switch page {
			case 0:
				return pageOf("p0-", 10, 21)
			case 1:
				return pageOf("p1-", 10, 21)
			default:
				return pageOf("p2-", 1, 21)
			}
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	ctx := context.Background()

	require.NoError(t, coord.Search(ctx, st, "rock"))

	loaded, err := coord.LoadMore(ctx, st)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.True(t, st.Events().HasMore)

	loaded, err = coord.LoadMore(ctx, st)
	require.NoError(t, err)
	assert.True(t, loaded)

	ev := st.Events()
	assert.Len(t, ev.Events, 21)
	assert.Equal(t, 2, ev.CurrentPage)
	assert.False(t, ev.HasMore)
	assert.False(t, ev.LoadingMore)

	loaded, err = coord.LoadMore(ctx, st)
	require.NoError(t, err)
	assert.False(t, loaded)

	assert.Equal(t, []call{
		{keyword: "rock", page: 0, size: 10},
		{keyword: "rock", page: 1, size: 10},
		{keyword: "rock", page: 2, size: 10},
	}, catalog.searches())
	assert.Empty(t, catalog.upcoming())
}

func TestLoadMore_UpcomingAppendsToBaseline(t *testing.T) {
	catalog := &fakeCatalog{
		upcomingFn: func(_ context.Context, page, _ int) models.EventPage {
			return pageOf(fmt.Sprintf("u%d-", page), 10, 0)
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	ctx := context.Background()

	require.NoError(t, coord.LoadUpcoming(ctx, st))
	loaded, err := coord.LoadMore(ctx, st)
	require.NoError(t, err)
	require.True(t, loaded)

	ev := st.Events()
	assert.Len(t, ev.Events, 20)
	assert.Len(t, ev.UpcomingEvents, 20)
	assert.Equal(t, 1, ev.CurrentPage)
	assert.Equal(t, []call{{page: 0, size: 10}, {page: 1, size: 10}}, catalog.upcoming())
	assert.Empty(t, catalog.searches())
}

func TestLoadMore_ResumesBaselineAfterBlankSearch(t *testing.T) {
	catalog := &fakeCatalog{
		upcomingFn: func(_ context.Context, page, _ int) models.EventPage {
			return pageOf(fmt.Sprintf("u%d-", page), 10, 0)
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	ctx := context.Background()

	require.NoError(t, coord.LoadUpcoming(ctx, st))
	_, err := coord.LoadMore(ctx, st)
	require.NoError(t, err)

	require.NoError(t, coord.Search(ctx, st, ""))
	assert.Equal(t, 1, st.Events().CurrentPage)

	loaded, err := coord.LoadMore(ctx, st)
	require.NoError(t, err)
	require.True(t, loaded)

	assert.Equal(t, []call{
		{page: 0, size: 10},
		{page: 1, size: 10},
		{page: 2, size: 10},
	}, catalog.upcoming())

	ev := st.Events()
	assert.Len(t, ev.UpcomingEvents, 30)
	assert.Len(t, ev.Events, 30)
	seen := map[string]bool{}
	for _, id := range ids(ev.UpcomingEvents) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestLoadMore_DiscardedAfterReset(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	catalog := &fakeCatalog{
		upcomingFn: func(_ context.Context, page, _ int) models.EventPage {
			if page == 0 {
				return pageOf("base", 10, 0)
			}
			close(started)
			<-release
			return pageOf("late", 10, 0)
		},
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	ctx := context.Background()
	require.NoError(t, coord.LoadUpcoming(ctx, st))

	type result struct {
		loaded bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		loaded, err := coord.LoadMore(ctx, st)
		done <- result{loaded, err}
	}()
	<-started

	require.NoError(t, coord.Search(ctx, st, ""))
	close(release)

	res := <-done
	assert.False(t, res.loaded)
	assert.ErrorIs(t, res.err, ErrStale)
	ev := st.Events()
	assert.Len(t, ev.Events, 10)
	assert.Len(t, ev.UpcomingEvents, 10)
	assert.Equal(t, 0, ev.CurrentPage)
	assert.False(t, ev.LoadingMore)
}

func TestLoadUpcoming_UsesCachedBaseline(t *testing.T) {
	catalog := &fakeCatalog{
		upcomingFn: func(context.Context, int, int) models.EventPage { return pageOf("u", 10, 99) },
		searchFn:   func(context.Context, string, int, int) models.EventPage { return pageOf("s", 1, 1) },
	}
	coord := NewCoordinator(catalog, testConfig(time.Millisecond))
	st := store.New("d1")
	ctx := context.Background()

	require.NoError(t, coord.LoadUpcoming(ctx, st))
	ev := st.Events()
	assert.True(t, ev.UpcomingEventsLoaded)
	assert.Len(t, ev.Events, 10)
	assert.Zero(t, ev.TotalResults)

	require.NoError(t, coord.Search(ctx, st, "x"))
	require.NoError(t, coord.LoadUpcoming(ctx, st))

	assert.Len(t, catalog.upcoming(), 1)
	ev = st.Events()
	assert.Len(t, ev.Events, 10)
	assert.Empty(t, ev.SearchQuery)
}

func TestCoordinator_SessionsArePerDevice(t *testing.T) {
	catalog := &fakeCatalog{
		searchFn: func(_ context.Context, keyword string, _, _ int) models.EventPage {
			return pageOf(keyword, 1, 1)
		},
	}
	coord := NewCoordinator(catalog, testConfig(40*time.Millisecond))
	a, b := store.New("a"), store.New("b")

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); errA = coord.Search(context.Background(), a, "alpha") }()
	go func() { defer wg.Done(); errB = coord.Search(context.Background(), b, "beta") }()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, []string{"alpha1"}, ids(a.Events().Events))
	assert.Equal(t, []string{"beta1"}, ids(b.Events().Events))
}

func TestCoordinator_EvictIdle(t *testing.T) {
	coord := NewCoordinator(&fakeCatalog{}, testConfig(time.Millisecond))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	coord.now = func() time.Time { return now }

	coord.Suggestions("old")
	now = now.Add(time.Hour)
	coord.Suggestions("new")

	assert.Equal(t, 1, coord.EvictIdle(30*time.Minute))
	coord.mu.Lock()
	_, hasOld := coord.sessions["old"]
	_, hasNew := coord.sessions["new"]
	coord.mu.Unlock()
	assert.False(t, hasOld)
	assert.True(t, hasNew)
}
