// Package assemble maps fetched raw record lists into ordered, typed
// session snapshots and the de-duplicated player/mod indexes derived
// from them.
package assemble

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

// Config configures one fetch-and-assemble run.
type Config struct {
	// Fetch options are passed through to the Endpoint Fetcher.
	Fetch fetch.Options
	// EnrichMaps queries the map metadata service per (map, mod) pair.
	EnrichMaps bool
	// EnrichPhysicalMapData attaches pool/loose/slot counts by map file.
	EnrichPhysicalMapData bool
	// PhysicalMapData optionally replaces or extends the built-in
	// physical table; PhysicalMergeMode is then required.
	PhysicalMapData   map[string]enrich.PhysicalMapData
	PhysicalMergeMode enrich.MergeMode
}

// Snapshot is the result of one fetch-and-assemble run.
type Snapshot struct {
	Sessions    []lobby.Session `json:"sessions"`
	Timestamp   time.Time       `json:"timestamp"`
	RouteUsed   string          `json:"routeUsed"`
	RawResponse []byte          `json:"-"`

	Players map[string]lobby.CachedPlayer `json:"players"`
	Mods    map[string]lobby.CachedMod    `json:"mods"`

	MapsEnriched     bool `json:"mapsEnriched"`
	PhysicalEnriched bool `json:"physicalEnriched"`
}

// Assembler owns the full pipeline from raw fetch to typed snapshot.
type Assembler struct {
	fetcher *fetch.Fetcher
	mapData *enrich.MapDataClient
	logger  zerolog.Logger
}

// New creates an Assembler. mapData may be nil when map enrichment is
// never requested.
func New(fetcher *fetch.Fetcher, mapData *enrich.MapDataClient) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		mapData: mapData,
		logger:  util.ComponentLogger("assembler"),
	}
}

// AssembleSessions normalizes every raw record and imposes a
// deterministic order: a stable lexicographic sort on the session key,
// so repeated fetches of an unordered source list compare equal
// downstream.
func AssembleSessions(list *lobby.RawGameList) []lobby.Session {
	if list == nil {
		return nil
	}
	sessions := make([]lobby.Session, 0, len(list.Get))
	for _, raw := range list.Get {
		sessions = append(sessions, lobby.NormalizeSession(raw))
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Key < sessions[j].Key
	})
	return sessions
}

// AssembleDataCache builds the de-duplicated player and mod indexes in a
// single forward pass. The first occurrence of a key wins; later
// occurrences never overwrite it.
func AssembleDataCache(sessions []lobby.Session) lobby.DataCache {
	cache := lobby.DataCache{
		Players: make(map[string]lobby.CachedPlayer),
		Mods:    make(map[string]lobby.CachedMod),
	}

	for _, s := range sessions {
		for _, p := range s.Players {
			key := platformKey(p)
			if key == "" {
				continue
			}
			if _, seen := cache.Players[key]; seen {
				continue
			}
			cache.Players[key] = lobby.CachedPlayer{
				Name:     p.Name,
				Platform: p.Platform,
				Profile:  p.Profile,
			}
		}
		for _, m := range s.Mods {
			if _, seen := cache.Mods[m.ID]; seen {
				continue
			}
			cache.Mods[m.ID] = lobby.CachedMod{ID: m.ID, Name: m.Name, URL: m.URL}
		}
	}

	return cache
}

func platformKey(p lobby.Player) string {
	switch p.Platform {
	case lobby.PlatformSteam:
		return p.SteamID
	case lobby.PlatformGOG:
		return p.GOGID
	default:
		return ""
	}
}

// FetchAndAssemble runs the whole pipeline: validate configuration,
// fetch raw records through the route strategy, normalize, optionally
// enrich, and index. Configuration errors surface before any network
// activity; enrichment failures only leave fields absent.
func (a *Assembler) FetchAndAssemble(ctx context.Context, cfg Config) (*Snapshot, error) {
	var physTable map[string]enrich.PhysicalMapData
	if cfg.EnrichPhysicalMapData {
		var err error
		physTable, err = enrich.ResolvePhysicalTable(cfg.PhysicalMapData, cfg.PhysicalMergeMode)
		if err != nil {
			return nil, fmt.Errorf("invalid enrichment configuration: %w", err)
		}
	}

	res, err := a.fetcher.FetchRawRecords(ctx, cfg.Fetch)
	if err != nil {
		return nil, err
	}

	sessions := AssembleSessions(res.Records)

	snap := &Snapshot{
		Timestamp:   res.FetchedAt,
		RouteUsed:   res.RouteUsed,
		RawResponse: res.RawBody,
	}

	if cfg.EnrichMaps && a.mapData != nil {
		sessions = enrich.EnrichSessions(ctx, a.mapData, sessions)
		snap.MapsEnriched = true
	}
	if cfg.EnrichPhysicalMapData {
		sessions = enrich.ApplyPhysicalData(sessions, physTable)
		snap.PhysicalEnriched = true
	}

	cache := AssembleDataCache(sessions)
	snap.Sessions = sessions
	snap.Players = cache.Players
	snap.Mods = cache.Mods

	a.logger.Info().
		Int("sessions", len(sessions)).
		Int("players", len(cache.Players)).
		Int("mods", len(cache.Mods)).
		Str("route", snap.RouteUsed).
		Msg("snapshot assembled")

	return snap, nil
}
