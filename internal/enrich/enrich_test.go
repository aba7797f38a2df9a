package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
)

func newMapDataServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		mapFile := r.URL.Query().Get("map")
		if mapFile == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"title":       "Map " + mapFile,
			"description": "desc",
			"teamNames":   []string{"Attackers", "Defenders"},
			"mods":        map[string]string{"555": "VSR"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMapDataLookup(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		srv := newMapDataServer(t, nil)
		c := NewMapDataClient(srv.URL, NewMapDataCache())

		info := c.Lookup(context.Background(), "chill", "0")
		require.NotNil(t, info)
		assert.Equal(t, "Map chill", info.Name)
		assert.Equal(t, []string{"Attackers", "Defenders"}, info.TeamNames)
		assert.Equal(t, "VSR", info.ModNames["555"])
	})

	t.Run("failures yield nil, never an error", func(t *testing.T) {
		srv := newMapDataServer(t, nil)
		c := NewMapDataClient(srv.URL, NewMapDataCache())
		assert.Nil(t, c.Lookup(context.Background(), "missing", "0"))

		down := NewMapDataClient("http://127.0.0.1:1", NewMapDataCache())
		assert.Nil(t, down.Lookup(context.Background(), "chill", "0"))
	})

	t.Run("lookups are memoized including failures", func(t *testing.T) {
		var hits atomic.Int32
		srv := newMapDataServer(t, &hits)
		cache := NewMapDataCache()
		c := NewMapDataClient(srv.URL, cache)

		for i := 0; i < 3; i++ {
			c.Lookup(context.Background(), "chill", "0")
			c.Lookup(context.Background(), "missing", "0")
		}
		assert.Equal(t, int32(2), hits.Load())
		assert.Equal(t, 2, cache.Len())

		// Distinct mod ids are distinct pairs.
		c.Lookup(context.Background(), "chill", "555")
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("empty map file skips the service", func(t *testing.T) {
		var hits atomic.Int32
		srv := newMapDataServer(t, &hits)
		c := NewMapDataClient(srv.URL, NewMapDataCache())
		assert.Nil(t, c.Lookup(context.Background(), "", "0"))
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestEnrichSessions(t *testing.T) {
	srv := newMapDataServer(t, nil)
	c := NewMapDataClient(srv.URL, NewMapDataCache())

	sessions := []lobby.Session{
		{Key: "a", MapFile: "chill", PrimaryMod: "0"},
		{Key: "b", MapFile: "missing", PrimaryMod: "0"},
	}

	enriched := EnrichSessions(context.Background(), c, sessions)
	require.Len(t, enriched, 2)
	require.NotNil(t, enriched[0].MapInfo)
	assert.Equal(t, "Map chill", enriched[0].MapInfo.Name)
	assert.Nil(t, enriched[1].MapInfo, "failed lookup leaves fields absent")

	// Input untouched.
	assert.Nil(t, sessions[0].MapInfo)
}

func TestResolvePhysicalTable(t *testing.T) {
	caller := map[string]PhysicalMapData{
		"chill":  {Pools: 99, Loose: 1, MaxSlots: 2},
		"custom": {Pools: 3, Loose: 4, MaxSlots: 5},
	}

	t.Run("nil caller data uses the built-in table", func(t *testing.T) {
		table, err := ResolvePhysicalTable(nil, MergeModeUnset)
		require.NoError(t, err)
		assert.Equal(t, builtinPhysical, table)
	})

	t.Run("caller data without a mode is a configuration error", func(t *testing.T) {
		_, err := ResolvePhysicalTable(caller, MergeModeUnset)
		assert.ErrorIs(t, err, ErrMergeModeRequired)
	})

	t.Run("replace ignores the built-in table", func(t *testing.T) {
		table, err := ResolvePhysicalTable(caller, MergeModeReplace)
		require.NoError(t, err)
		assert.Len(t, table, 2)
		_, ok := table["dunes"]
		assert.False(t, ok)
	})

	t.Run("merge overlays caller entries on the built-in base", func(t *testing.T) {
		table, err := ResolvePhysicalTable(caller, MergeModeMerge)
		require.NoError(t, err)
		assert.Equal(t, 99, table["chill"].Pools)
		assert.Equal(t, 3, table["custom"].Pools)
		assert.Equal(t, builtinPhysical["dunes"], table["dunes"])
	})
}

func TestApplyPhysicalData(t *testing.T) {
	sessions := []lobby.Session{
		{Key: "a", MapFile: "chill", MapInfo: &lobby.MapInfo{Name: "Chill"}},
		{Key: "b", MapFile: "nowhere"},
	}

	out := ApplyPhysicalData(sessions, builtinPhysical)
	require.NotNil(t, out[0].MapInfo)
	assert.Equal(t, "Chill", out[0].MapInfo.Name, "existing metadata is preserved")
	assert.Equal(t, 8, *out[0].MapInfo.Pools)
	assert.Equal(t, 6, *out[0].MapInfo.MaxSlots)
	assert.Nil(t, out[1].MapInfo)

	// Originals untouched.
	assert.Nil(t, sessions[0].MapInfo.Pools)
}

func TestParseMergeMode(t *testing.T) {
	assert.Equal(t, MergeModeReplace, ParseMergeMode("replace"))
	assert.Equal(t, MergeModeMerge, ParseMergeMode("merge"))
	assert.Equal(t, MergeModeUnset, ParseMergeMode(""))
	assert.Equal(t, MergeModeUnset, ParseMergeMode("bogus"))
	assert.Equal(t, "merge", MergeModeMerge.String())
}
