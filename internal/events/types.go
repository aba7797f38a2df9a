// Package events defines event types and payloads for the Lobbyscope
// event system.
package events

import "time"

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Refresh lifecycle
	EventRefreshCompleted EventType = "refresh_completed"
	EventRefreshFailed    EventType = "refresh_failed"
	EventRefreshRequested EventType = "refresh_requested"

	// Directory fetch route lifecycle
	EventFetchStatus EventType = "fetch_status"

	// Snapshot deltas
	EventSessionAppeared EventType = "session_appeared"
	EventSessionClosed   EventType = "session_closed"

	// System events
	EventConfigChanged EventType = "config_changed"
	EventShutdown      EventType = "shutdown"
)

// Event is a single message flowing through the EventBus.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// FetchStatusPayload mirrors one Endpoint Fetcher lifecycle event.
type FetchStatusPayload struct {
	Status string `json:"status"`
	Route  string `json:"route,omitempty"`
}

// RefreshPayload summarizes one completed or failed refresh.
type RefreshPayload struct {
	Sessions  int       `json:"sessions"`
	Players   int       `json:"players"`
	Mods      int       `json:"mods"`
	RouteUsed string    `json:"route_used,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// SessionDeltaPayload describes a session that appeared in or vanished
// from the directory between two consecutive snapshots.
type SessionDeltaPayload struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	GameMode string `json:"game_mode"`
	MapFile  string `json:"map_file"`
	Players  int    `json:"players"`
}
