// Package enrich implements the optional enrichment collaborators: the
// map-metadata lookup service and the physical map data table. Every
// failure here is absorbed locally; enrichment can only ever leave
// fields absent, never fail a fetch.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

// DefaultMapDataURL is the map metadata service endpoint.
const DefaultMapDataURL = "https://gamelistassist.iondriver.com/bz98r/getdata.php"

// lookupsPerSecond bounds the enrichment fan-out; the metadata service
// is a shared community resource.
const lookupsPerSecond = 8

// MapDataCache memoizes metadata lookups by (map, mod) pair. Concurrent
// population is safe: a duplicate lookup overwrites with the same value,
// so the only cost of a race is one wasted request. The cache is
// injected so tests and long-running callers control its lifetime.
type MapDataCache struct {
	mu      sync.RWMutex
	entries map[string]*lobby.MapInfo
}

// NewMapDataCache creates an empty cache.
func NewMapDataCache() *MapDataCache {
	return &MapDataCache{entries: make(map[string]*lobby.MapInfo)}
}

func cacheKey(mapFile, modID string) string {
	return mapFile + "@" + modID
}

// Get returns the cached entry and whether one exists. A cached nil
// records a previously failed lookup.
func (c *MapDataCache) Get(mapFile, modID string) (*lobby.MapInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[cacheKey(mapFile, modID)]
	return v, ok
}

// Put stores an entry, overwriting any previous value.
func (c *MapDataCache) Put(mapFile, modID string, info *lobby.MapInfo) {
	c.mu.Lock()
	c.entries[cacheKey(mapFile, modID)] = info
	c.mu.Unlock()
}

// Len returns the number of cached pairs.
func (c *MapDataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// mapDataResponse is the metadata service's wire shape.
type mapDataResponse struct {
	Name        string            `json:"title"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	TeamNames   []string          `json:"teamNames"`
	ModNames    map[string]string `json:"mods"`
}

// MapDataClient queries the map metadata service.
type MapDataClient struct {
	client  *http.Client
	baseURL string
	cache   *MapDataCache
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewMapDataClient creates a client against baseURL ("" for the default
// service) using the given cache.
func NewMapDataClient(baseURL string, cache *MapDataCache) *MapDataClient {
	if baseURL == "" {
		baseURL = DefaultMapDataURL
	}
	if cache == nil {
		cache = NewMapDataCache()
	}
	return &MapDataClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(lookupsPerSecond), lookupsPerSecond),
		logger:  util.ComponentLogger("mapdata"),
	}
}

// Lookup returns metadata for a (map file, primary mod) pair, or nil on
// any failure. Results, including failures, are memoized.
func (c *MapDataClient) Lookup(ctx context.Context, mapFile, modID string) *lobby.MapInfo {
	if mapFile == "" {
		return nil
	}
	if cached, ok := c.cache.Get(mapFile, modID); ok {
		return cached
	}

	info := c.query(ctx, mapFile, modID)
	c.cache.Put(mapFile, modID, info)
	return info
}

func (c *MapDataClient) query(ctx context.Context, mapFile, modID string) *lobby.MapInfo {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	reqURL := fmt.Sprintf("%s?map=%s&mod=%s", c.baseURL, url.QueryEscape(mapFile), url.QueryEscape(modID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("map", mapFile).Msg("map metadata lookup failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status", resp.StatusCode).Str("map", mapFile).Msg("map metadata lookup rejected")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var md mapDataResponse
	if err := json.Unmarshal(body, &md); err != nil {
		c.logger.Debug().Err(err).Str("map", mapFile).Msg("map metadata response malformed")
		return nil
	}

	return &lobby.MapInfo{
		Name:        md.Name,
		Description: md.Description,
		Image:       md.Image,
		TeamNames:   md.TeamNames,
		ModNames:    md.ModNames,
	}
}

// EnrichSessions returns a new session list where every session carries
// whatever metadata its (map, primary mod) pair yielded. Lookups for
// distinct pairs run concurrently; sessions sharing a pair share one
// lookup through the cache. The input slice is never mutated.
func EnrichSessions(ctx context.Context, client *MapDataClient, sessions []lobby.Session) []lobby.Session {
	if client == nil || len(sessions) == 0 {
		return sessions
	}

	infos := make([]*lobby.MapInfo, len(sessions))
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			infos[i] = client.Lookup(ctx, sessions[i].MapFile, sessions[i].PrimaryMod)
		}(i)
	}
	wg.Wait()

	enriched := make([]lobby.Session, len(sessions))
	for i, s := range sessions {
		enriched[i] = s.WithMapInfo(infos[i])
	}
	return enriched
}
