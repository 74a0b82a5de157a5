package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/citypulse/server/internal/api/handlers"
	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/services/auth"
	"github.com/citypulse/server/internal/store"
)

type stores struct{}

func (stores) Get(_ context.Context, deviceID string) (*store.Store, error) {
	return store.New(deviceID), nil
}

func (stores) Persist(context.Context, *store.Store) error { return nil }

// signedIn hands out one store that is signed in as user-1.
type signedIn struct {
	st *store.Store
}

func newSignedIn() signedIn {
	st := store.New("d1")
	st.DispatchAuth(func(s store.AuthState) store.AuthState {
		return s.LoginSuccess(models.User{ID: "user-1", Email: "u@x.io"})
	})
	return signedIn{st: st}
}

func (s signedIn) Get(context.Context, string) (*store.Store, error) { return s.st, nil }

func (signedIn) Persist(context.Context, *store.Store) error { return nil }

type rejectAll struct{}

func (rejectAll) ValidateAccess(context.Context, string) (*auth.JWTClaims, error) {
	return nil, errors.New("invalid")
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return testRouterWith(t, stores{})
}

func testRouterWith(t *testing.T, provider middleware.StoreProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		API:    config.APIConfig{RateLimitRequests: 100, RateLimitWindow: time.Minute},
	}
	h := Handlers{
		Health:      handlers.NewHealthHandler("test", nil),
		Auth:        handlers.NewAuthHandlers(nil),
		Events:      handlers.NewEventHandler(nil, nil),
		Favorites:   handlers.NewFavoritesHandler(nil),
		Preferences: handlers.NewPreferencesHandler(),
	}
	return NewRouter(ctx, cfg, h, provider, rejectAll{}).Engine()
}

func TestRouter_Routes(t *testing.T) {
	r := testRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		device string
		auth   string
		status int
	}{
		{"liveness", http.MethodGet, "/live", "", "", http.StatusOK},
		{"health without dependencies", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"api requires device", http.MethodGet, "/api/v1/state", "", "", http.StatusBadRequest},
		{"state", http.MethodGet, "/api/v1/state", "d1", "", http.StatusOK},
		{"preferences", http.MethodGet, "/api/v1/preferences", "d1", "", http.StatusOK},
		{"me requires token", http.MethodGet, "/api/v1/auth/me", "d1", "", http.StatusUnauthorized},
		{"me rejects bad token", http.MethodGet, "/api/v1/auth/me", "d1", "Bearer x", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/v2/nothing", "d1", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.device != "" {
				req.Header.Set("X-Device-ID", tc.device)
			}
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRouter_DeviceIDIsNotACredential(t *testing.T) {
	provider := newSignedIn()
	r := testRouterWith(t, provider)

	cases := []struct {
		method string
		path   string
		auth   string
	}{
		{http.MethodGet, "/api/v1/favorites", ""},
		{http.MethodPost, "/api/v1/favorites/e1/toggle", ""},
		{http.MethodPost, "/api/v1/favorites/e1/toggle", "Bearer forged"},
		{http.MethodPut, "/api/v1/favorites", "Bearer forged"},
		{http.MethodDelete, "/api/v1/favorites", "Bearer forged"},
		{http.MethodPost, "/api/v1/favorites/sync", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("X-Device-ID", "d1")
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
	assert.Empty(t, provider.st.Events().Favorites.Get("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set("X-Device-ID", "d1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "u@x.io")
	assert.Contains(t, w.Body.String(), `"user":null`)
}
