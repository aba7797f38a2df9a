package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
)

// SnapshotStore persists assembled snapshots and per-session sightings.
type SnapshotStore struct {
	db *Database
}

// SnapshotSummary is the lightweight per-snapshot row used by history
// listings; the full session payload is loaded separately.
type SnapshotSummary struct {
	ID       int64     `json:"id"`
	TakenAt  time.Time `json:"taken_at"`
	Route    string    `json:"route"`
	Sessions int       `json:"sessions"`
	Players  int       `json:"players"`
	Mods     int       `json:"mods"`
}

// SessionSighting records when a session key was first and last observed
// and what it looked like most recently.
type SessionSighting struct {
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	GameMode   string    `json:"game_mode"`
	MapFile    string    `json:"map_file"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	MaxPlayers int       `json:"max_players_seen"`
}

// NewSnapshotStore opens the store at dbPath and migrates the schema.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	s := &SnapshotStore{db: database}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot store: %w", err)
	}
	return s, nil
}

func (s *SnapshotStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at DATETIME NOT NULL,
			route TEXT NOT NULL DEFAULT '',
			session_count INTEGER NOT NULL,
			player_count INTEGER NOT NULL,
			mod_count INTEGER NOT NULL,
			payload TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_sightings (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			game_mode TEXT NOT NULL DEFAULT '',
			map_file TEXT NOT NULL DEFAULT '',
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL,
			max_players INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
		CREATE INDEX IF NOT EXISTS idx_sightings_last_seen ON session_sightings(last_seen);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	log.Debug().Msg("snapshot store schema migrated")
	return nil
}

// Record persists one snapshot and updates the session sighting table.
// Returns the new snapshot row id.
func (s *SnapshotStore) Record(snap *assemble.Snapshot) (int64, error) {
	payload, err := json.Marshal(snap.Sessions)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	var id int64
	err = s.db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO snapshots (taken_at, route, session_count, player_count, mod_count, payload)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snap.Timestamp.UTC(), snap.RouteUsed,
			len(snap.Sessions), len(snap.Players), len(snap.Mods), string(payload))
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		id, _ = res.LastInsertId()

		for _, sess := range snap.Sessions {
			_, err := tx.Exec(`
				INSERT INTO session_sightings (key, name, game_mode, map_file, first_seen, last_seen, max_players)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET
					name = excluded.name,
					game_mode = excluded.game_mode,
					map_file = excluded.map_file,
					last_seen = excluded.last_seen,
					max_players = MAX(max_players, excluded.max_players)`,
				sess.Key, sess.Name, sess.GameMode.String(), sess.MapFile,
				snap.Timestamp.UTC(), snap.Timestamp.UTC(), len(sess.Players))
			if err != nil {
				return fmt.Errorf("failed to upsert sighting %s: %w", sess.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debug().Int64("id", id).Int("sessions", len(snap.Sessions)).Msg("snapshot recorded")
	return id, nil
}

// History returns the most recent snapshot summaries, newest first.
func (s *SnapshotStore) History(limit int) ([]SnapshotSummary, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, taken_at, route, session_count, player_count, mod_count
		FROM snapshots ORDER BY taken_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		if err := rows.Scan(&sum.ID, &sum.TakenAt, &sum.Route,
			&sum.Sessions, &sum.Players, &sum.Mods); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SnapshotPayload loads the stored session list of one snapshot.
func (s *SnapshotStore) SnapshotPayload(id int64) (json.RawMessage, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM snapshots WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}

// Sightings returns session sightings last seen within the window,
// most recent first.
func (s *SnapshotStore) Sightings(since time.Time) ([]SessionSighting, error) {
	rows, err := s.db.Query(`
		SELECT key, name, game_mode, map_file, first_seen, last_seen, max_players
		FROM session_sightings WHERE last_seen >= ? ORDER BY last_seen DESC`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSighting
	for rows.Next() {
		var sg SessionSighting
		if err := rows.Scan(&sg.Key, &sg.Name, &sg.GameMode, &sg.MapFile,
			&sg.FirstSeen, &sg.LastSeen, &sg.MaxPlayers); err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// Prune deletes the oldest snapshots beyond the retention count and any
// sightings not refreshed in thirty days.
func (s *SnapshotStore) Prune(retainSnapshots int) error {
	if retainSnapshots < 1 {
		retainSnapshots = 1
	}
	_, err := s.db.Exec(`
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT ?
		)`, retainSnapshots)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	_, err = s.db.Exec(
		"DELETE FROM session_sightings WHERE last_seen < datetime('now', '-30 days')")
	if err != nil {
		return fmt.Errorf("failed to prune sightings: %w", err)
	}
	return nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n)
	return n, err
}

// Close closes the store.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
