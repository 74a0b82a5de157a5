package ticketmaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/server/internal/models"
)

type memoryCache struct {
	mu     sync.Mutex
	events map[string]models.Event
}

func newMemoryCache() *memoryCache {
	return &memoryCache{events: make(map[string]models.Event)}
}

func (m *memoryCache) GetEvent(_ context.Context, id string) (*models.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, false, nil
	}
	return &ev, true, nil
}

func (m *memoryCache) SetEvent(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = *ev
	return nil
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(serverURL string, opts ...Option) *Client {
	opts = append([]Option{
		WithRateLimit(1000, 10),
		WithClock(func() time.Time { return fixedToday }),
	}, opts...)
	return NewClient(serverURL, "test-key", opts...)
}

func TestClient_SearchEvents_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "rock", q.Get("keyword"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("size"))
		assert.Equal(t, "test-key", q.Get("apikey"))

		writeJSON(t, w, map[string]interface{}{
			"_embedded": map[string]interface{}{
				"events": []map[string]interface{}{
					{"id": "e1", "name": "One"},
					{"id": "", "name": "Dropped"},
					{"id": "e2", "name": "Two"},
				},
			},
			"page": map[string]interface{}{"totalElements": 42},
		})
	}))
	defer server.Close()

	page := newTestClient(server.URL).SearchEvents(context.Background(), "rock", 2, 10)

	require.Len(t, page.Events, 2)
	assert.Equal(t, "e1", page.Events[0].ID)
	assert.Equal(t, "e2", page.Events[1].ID)
	assert.Equal(t, 42, page.Total)
}

func TestClient_SearchEvents_NoEmbedded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{"page": map[string]interface{}{"totalElements": 0}})
	}))
	defer server.Close()

	page := newTestClient(server.URL).SearchEvents(context.Background(), "nothing", 0, 10)
	assert.NotNil(t, page.Events)
	assert.Empty(t, page.Events)
	assert.Zero(t, page.Total)
}

func TestClient_SearchEvents_DegradesOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	page := newTestClient(server.URL).SearchEvents(context.Background(), "rock", 0, 10)
	assert.Empty(t, page.Events)
	assert.Zero(t, page.Total)
}

func TestClient_SearchEvents_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	page := newTestClient(server.URL).SearchEvents(context.Background(), "rock", 0, 10)
	assert.Empty(t, page.Events)
}

func TestClient_GetUpcomingEvents_Window(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "date,desc", q.Get("sort"))
		assert.Equal(t, "2024-03-09T00:00:00Z", q.Get("startDateTime"))
		assert.Equal(t, "2024-03-23T23:59:59Z", q.Get("endDateTime"))
		assert.Equal(t, "0", q.Get("page"))
		assert.Equal(t, "20", q.Get("size"))
		assert.Empty(t, q.Get("keyword"))

		writeJSON(t, w, map[string]interface{}{
			"_embedded": map[string]interface{}{
				"events": []map[string]interface{}{{"id": "u1", "name": "Upcoming"}},
			},
			"page": map[string]interface{}{"totalElements": 1},
		})
	}))
	defer server.Close()

	page := newTestClient(server.URL).GetUpcomingEvents(context.Background(), 0, 20)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "u1", page.Events[0].ID)
}

func TestClient_GetEventDetails_CachesResult(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/events/evt1.json", r.URL.Path)
		writeJSON(t, w, map[string]interface{}{"id": "evt1", "name": "Detail"})
	}))
	defer server.Close()

	cache := newMemoryCache()
	client := newTestClient(server.URL, WithCache(cache))

	ev := client.GetEventDetails(context.Background(), "evt1")
	require.NotNil(t, ev)
	assert.Equal(t, "Detail", ev.Name)

	ev = client.GetEventDetails(context.Background(), "evt1")
	require.NotNil(t, ev)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_GetEventDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	cache := newMemoryCache()
	client := newTestClient(server.URL, WithCache(cache))

	assert.Nil(t, client.GetEventDetails(context.Background(), "missing"))
	assert.Empty(t, cache.events)
	assert.Nil(t, client.GetEventDetails(context.Background(), ""))
}

func TestClient_GetEventDetails_SharedFetchOutlivesFirstCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		writeJSON(t, w, map[string]interface{}{"id": "evt1", "name": "Detail"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan *models.Event, 1)
	go func() { first <- client.GetEventDetails(firstCtx, "evt1") }()
	<-started

	second := make(chan *models.Event, 1)
	go func() { second <- client.GetEventDetails(context.Background(), "evt1") }()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case ev := <-first:
		assert.Nil(t, ev)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case ev := <-second:
		require.NotNil(t, ev)
		assert.Equal(t, "Detail", ev.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestClient_RespectsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", WithRateLimit(0.001, 1))
	// Drain the single token so the next call has to wait.
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := client.SearchEvents(ctx, "rock", 0, 10)
	assert.Empty(t, page.Events)
}
