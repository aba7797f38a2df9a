package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
	"github.com/lobbyscope-project/lobbyscope/internal/storage"
)

type stubSource struct {
	snap       *assemble.Snapshot
	refreshErr error
	refreshed  int
}

func (s *stubSource) Latest() *assemble.Snapshot { return s.snap }

func (s *stubSource) Refresh(ctx context.Context) (*assemble.Snapshot, error) {
	s.refreshed++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.snap, nil
}

func testSnapshot() *assemble.Snapshot {
	return &assemble.Snapshot{
		Sessions: []lobby.Session{
			{Key: "aa", Name: "First"},
			{Key: "bb", Name: "Second"},
		},
		Timestamp: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
		RouteUsed: "direct",
		Players:   map[string]lobby.CachedPlayer{"1": {Name: "P"}},
		Mods:      map[string]lobby.CachedMod{"0": {ID: "0", Name: "Stock"}},
	}
}

func newTestServer(t *testing.T, source SnapshotSource) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	bus := events.NewEventBus()
	t.Cleanup(bus.Stop)

	srv := NewServer(cfg, bus, source, "test")
	srv.router = srv.buildRouter()
	return srv
}

func doRequest(srv *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.router.ServeHTTP(w, req)
	return w
}

func TestSessionEndpoints(t *testing.T) {
	src := &stubSource{snap: testSnapshot()}
	srv := newTestServer(t, src)

	t.Run("ping", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/ping")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version":"test"`)
	})

	t.Run("list sessions", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/sessions")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Sessions []lobby.Session `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Sessions, 2)
		assert.Equal(t, "aa", resp.Sessions[0].Key)
	})

	t.Run("session by key", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/sessions/bb")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Second")

		w = doRequest(srv, http.MethodGet, "/api/sessions/zz")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("players and mods", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/players")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"P"`)

		w = doRequest(srv, http.MethodGet, "/api/mods")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Stock")
	})

	t.Run("status", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/status")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sessions":2`)
		assert.Contains(t, w.Body.String(), `"route_used":"direct"`)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/bogus")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSessionEndpointsBeforeFirstSnapshot(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	w := doRequest(srv, http.MethodGet, "/api/sessions")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_snapshot":false`)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		src := &stubSource{snap: testSnapshot()}
		srv := newTestServer(t, src)

		w := doRequest(srv, http.MethodPost, "/api/refresh")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, src.refreshed)
	})

	t.Run("upstream failure", func(t *testing.T) {
		src := &stubSource{refreshErr: errors.New("directory unreachable")}
		srv := newTestServer(t, src)

		w := doRequest(srv, http.MethodPost, "/api/refresh")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRoutesEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	memory := &fetch.RouteMemory{}
	routes := fetch.DefaultFallbackRoutes()
	memory.Remember(routes[0].Name)
	srv.SetRouteInfo(routes, memory)

	w := doRequest(srv, http.MethodGet, "/api/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Fallbacks []string `json:"fallback_routes"`
		Preferred string   `json:"preferred"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Fallbacks)
	assert.Equal(t, routes[0].Name, resp.Preferred)
}

func TestHistoryEndpoints(t *testing.T) {
	t.Run("disabled without a store", func(t *testing.T) {
		srv := newTestServer(t, &stubSource{})
		w := doRequest(srv, http.MethodGet, "/api/history")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("with a store", func(t *testing.T) {
		store, err := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })

		id, err := store.Record(testSnapshot())
		require.NoError(t, err)

		srv := newTestServer(t, &stubSource{})
		srv.SetStore(store)

		w := doRequest(srv, http.MethodGet, "/api/history")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sessions":2`)

		w = doRequest(srv, http.MethodGet, "/api/history/"+strconv.FormatInt(id, 10))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"aa"`)

		w = doRequest(srv, http.MethodGet, "/api/history/99999")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(srv, http.MethodGet, "/api/sightings")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"aa"`)
	})
}
