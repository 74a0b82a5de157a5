package ticketmaster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/utils"
)

const (
	DefaultBaseURL = "https://app.ticketmaster.com/discovery/v2"
	DefaultTimeout = 15 * time.Second
	// DefaultRateLimit stays under the Discovery API's 5 requests/second quota.
	DefaultRateLimit = rate.Limit(5)

	DefaultUpcomingWindowDays = 14
	upcomingSort              = "date,desc"
)

// EventCache is the read-through cache used for event details.
type EventCache interface {
	GetEvent(ctx context.Context, id string) (*models.Event, bool, error)
	SetEvent(ctx context.Context, ev *models.Event) error
}

// Client talks to the Ticketmaster Discovery API. Every call degrades to an
// empty result on failure; errors are logged, never returned.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	limiter      *rate.Limiter
	cache        EventCache
	group        singleflight.Group
	now          func() time.Time
	upcomingDays int
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets the outbound request rate (requests per second).
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCache(cache EventCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithClock overrides the clock used for the upcoming window and for the
// mapper's missing-date default.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithUpcomingWindow(days int) Option {
	return func(c *Client) {
		if days > 0 {
			c.upcomingDays = days
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		baseURL:      baseURL,
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(DefaultRateLimit, 1),
		now:          time.Now,
		upcomingDays: DefaultUpcomingWindowDays,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// NewClientFromConfig builds a client from the service configuration.
func NewClientFromConfig(cfg config.TicketmasterConfig, upcomingDays int, cache EventCache) *Client {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithUpcomingWindow(upcomingDays),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cache != nil {
		opts = append(opts, WithCache(cache))
	}
	return NewClient(cfg.BaseURL, cfg.APIKey, opts...)
}

// SearchEvents returns one page of events matching keyword.
func (c *Client) SearchEvents(ctx context.Context, keyword string, page, size int) models.EventPage {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	return c.fetchPage(ctx, "search", params)
}

// GetUpcomingEvents returns one page of events starting between today and
// the end of the upcoming window, newest first.
func (c *Client) GetUpcomingEvents(ctx context.Context, page, size int) models.EventPage {
	today := c.now().UTC()
	end := today.AddDate(0, 0, c.upcomingDays)

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", upcomingSort)
	params.Set("startDateTime", today.Format("2006-01-02")+"T00:00:00Z")
	params.Set("endDateTime", end.Format("2006-01-02")+"T23:59:59Z")

	return c.fetchPage(ctx, "upcoming", params)
}

// GetEventDetails returns the full record for id, or nil when it cannot be
// fetched. Concurrent lookups of the same id share one request.
func (c *Client) GetEventDetails(ctx context.Context, id string) *models.Event {
	if id == "" {
		return nil
	}

	if c.cache != nil {
		ev, ok, err := c.cache.GetEvent(ctx, id)
		if err != nil {
			utils.LogWarn(ctx, "Event cache read failed", utils.Fields{"event_id": id, "error": err.Error()})
		} else if ok {
			metrics.RecordCacheHit()
			return ev
		}
		metrics.RecordCacheMiss()
	}

	// The request is shared by every concurrent caller, so it runs detached
	// from the context of whichever caller started it.
	ch := c.group.DoChan(id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
		defer cancel()
		return c.fetchDetails(fetchCtx, id), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*models.Event)
	case <-ctx.Done():
		return nil
	}
}

func (c *Client) fetchDetails(ctx context.Context, id string) *models.Event {
	var raw RawEvent
	if err := c.get(ctx, "details", "/events/"+url.PathEscape(id)+".json", nil, &raw); err != nil {
		utils.LogError(ctx, "Error fetching event details", err, utils.Fields{"event_id": id})
		return nil
	}
	if raw.ID == "" {
		return nil
	}

	ev := MapEvent(raw, c.now())
	if c.cache != nil {
		if err := c.cache.SetEvent(ctx, &ev); err != nil {
			utils.LogWarn(ctx, "Event cache write failed", utils.Fields{"event_id": id, "error": err.Error()})
		}
	}
	return &ev
}

func (c *Client) fetchPage(ctx context.Context, op string, params url.Values) models.EventPage {
	var resp searchResponse
	if err := c.get(ctx, op, "/events.json", params, &resp); err != nil {
		utils.LogError(ctx, "Error fetching events", err, utils.Fields{"operation": op})
		return models.EventPage{Events: []models.Event{}}
	}

	if resp.Embedded == nil || len(resp.Embedded.Events) == 0 {
		return models.EventPage{Events: []models.Event{}}
	}

	page := models.EventPage{Events: MapEvents(resp.Embedded.Events, c.now())}
	if resp.Page != nil {
		page.Total = resp.Page.TotalElements
	}
	return page
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, dest interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCatalogRequest(op, err, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
