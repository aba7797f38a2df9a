// Package scheduler drives the periodic refresh loop: it polls the
// directory on a fixed interval, detects session deltas between
// consecutive snapshots, records history, and emits the resulting
// events.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
	"github.com/lobbyscope-project/lobbyscope/internal/storage"
)

const pruneInterval = time.Hour

// Scheduler owns the refresh loop and the latest snapshot.
type Scheduler struct {
	cfg       *config.Config
	eventBus  *events.EventBus
	assembler *assemble.Assembler
	store     *storage.SnapshotStore

	mu     sync.RWMutex
	latest *assemble.Snapshot
}

// NewScheduler creates a scheduler. store may be nil when snapshot
// history is disabled.
func NewScheduler(cfg *config.Config, eventBus *events.EventBus, assembler *assemble.Assembler, store *storage.SnapshotStore) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		eventBus:  eventBus,
		assembler: assembler,
		store:     store,
	}
}

// Latest returns the most recent snapshot, or nil before the first
// successful refresh.
func (s *Scheduler) Latest() *assemble.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Start runs the refresh loop until ctx is cancelled. The first refresh
// happens immediately.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().
		Int("interval_sec", s.cfg.GetDirectory().RefreshIntervalSec).
		Msg("scheduler started")

	if _, err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial refresh failed")
	}

	interval := time.Duration(s.cfg.GetDirectory().RefreshIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled refresh failed")
			}
			// Pick up interval changes made through the config API.
			if next := time.Duration(s.cfg.GetDirectory().RefreshIntervalSec) * time.Second; next != interval && next > 0 {
				interval = next
				ticker.Reset(interval)
			}
		case <-prune.C:
			s.pruneHistory()
		}
	}
}

// Refresh performs one fetch-and-assemble run, updates the latest
// snapshot, persists it, and emits delta events against the previous
// snapshot.
func (s *Scheduler) Refresh(ctx context.Context) (*assemble.Snapshot, error) {
	cfg, err := s.buildAssembleConfig()
	if err != nil {
		s.emitFailure(ctx, err)
		return nil, err
	}

	snap, err := s.assembler.FetchAndAssemble(ctx, cfg)
	if err != nil {
		s.emitFailure(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	previous := s.latest
	s.latest = snap
	s.mu.Unlock()

	s.emitDeltas(ctx, previous, snap)

	s.eventBus.Emit(ctx, events.Event{
		Type:   events.EventRefreshCompleted,
		Source: "scheduler",
		Payload: events.RefreshPayload{
			Sessions:  len(snap.Sessions),
			Players:   len(snap.Players),
			Mods:      len(snap.Mods),
			RouteUsed: snap.RouteUsed,
			Timestamp: snap.Timestamp,
		},
	})

	if s.store != nil {
		if _, err := s.store.Record(snap); err != nil {
			log.Warn().Err(err).Msg("failed to record snapshot history")
		}
	}

	return snap, nil
}

// buildAssembleConfig maps the live configuration onto one run.
func (s *Scheduler) buildAssembleConfig() (assemble.Config, error) {
	dir := s.cfg.GetDirectory()
	enr := s.cfg.GetEnrichment()

	cfg := assemble.Config{
		Fetch: fetch.Options{
			TargetEndpoint:   dir.EndpointURL,
			DisableCacheBust: !dir.CacheBust,
			OnStatus:         s.onFetchStatus,
		},
		EnrichMaps:            enr.Maps,
		EnrichPhysicalMapData: enr.PhysicalMapData,
	}

	if enr.PhysicalMapData {
		table, err := s.cfg.LoadPhysicalTable()
		if err != nil {
			return assemble.Config{}, err
		}
		cfg.PhysicalMapData = table
		cfg.PhysicalMergeMode = enrich.ParseMergeMode(enr.PhysicalMergeMode)
	}

	return cfg, nil
}

func (s *Scheduler) onFetchStatus(status fetch.Status, route string) {
	s.eventBus.Emit(context.Background(), events.Event{
		Type:   events.EventFetchStatus,
		Source: "scheduler",
		Payload: events.FetchStatusPayload{
			Status: string(status),
			Route:  route,
		},
	})
}

// emitDeltas compares consecutive snapshots by session key and emits
// appeared/closed events for the difference.
func (s *Scheduler) emitDeltas(ctx context.Context, previous, current *assemble.Snapshot) {
	if previous == nil {
		return
	}

	prevKeys := make(map[string]lobby.Session, len(previous.Sessions))
	for _, sess := range previous.Sessions {
		prevKeys[sess.Key] = sess
	}
	currKeys := make(map[string]struct{}, len(current.Sessions))

	for _, sess := range current.Sessions {
		currKeys[sess.Key] = struct{}{}
		if _, seen := prevKeys[sess.Key]; !seen {
			s.eventBus.Emit(ctx, events.Event{
				Type:    events.EventSessionAppeared,
				Source:  "scheduler",
				Payload: deltaPayload(sess),
			})
		}
	}

	for key, sess := range prevKeys {
		if _, still := currKeys[key]; !still {
			s.eventBus.Emit(ctx, events.Event{
				Type:    events.EventSessionClosed,
				Source:  "scheduler",
				Payload: deltaPayload(sess),
			})
		}
	}
}

func deltaPayload(sess lobby.Session) events.SessionDeltaPayload {
	return events.SessionDeltaPayload{
		Key:      sess.Key,
		Name:     sess.Name,
		GameMode: sess.GameMode.String(),
		MapFile:  sess.MapFile,
		Players:  len(sess.Players),
	}
}

func (s *Scheduler) emitFailure(ctx context.Context, err error) {
	s.eventBus.Emit(ctx, events.Event{
		Type:   events.EventRefreshFailed,
		Source: "scheduler",
		Payload: events.RefreshPayload{
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		},
	})
}

func (s *Scheduler) pruneHistory() {
	if s.store == nil {
		return
	}
	retain := s.cfg.Storage.RetentionSnapshots
	if err := s.store.Prune(retain); err != nil {
		log.Warn().Err(err).Msg("history pruning failed")
	} else {
		log.Debug().Int("retain", retain).Msg("history pruned")
	}
}
