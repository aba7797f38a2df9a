// Package lobby turns the raw field-coded records published by the
// Battlezone 98 Redux lobby directory into fully-typed session and player
// models: custom text and identity decoding, bit-packed mode
// interpretation, team/commander resolution, and join-URL construction.
package lobby

// GamePhase is the coarse session lifecycle state.
type GamePhase int

const (
	PhaseUnknown GamePhase = iota
	PhasePreGame
	PhaseInGame
	PhasePostGame
)

var gamePhaseStrings = map[GamePhase]string{
	PhaseUnknown:  "unknown",
	PhasePreGame:  "pre-game",
	PhaseInGame:   "in-game",
	PhasePostGame: "post-game",
}

// String returns the string representation of GamePhase.
func (p GamePhase) String() string {
	if s, ok := gamePhaseStrings[p]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes GamePhase as a JSON string (e.g. "in-game").
func (p GamePhase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// PhaseDetail is the fine-grained lifecycle detail shown to users.
type PhaseDetail int

const (
	DetailUnknown PhaseDetail = iota
	DetailWaiting
	DetailFull
	DetailPlaying
	DetailExiting
)

var phaseDetailStrings = map[PhaseDetail]string{
	DetailUnknown: "Unknown",
	DetailWaiting: "Waiting",
	DetailFull:    "Full",
	DetailPlaying: "Playing",
	DetailExiting: "Exiting",
}

func (d PhaseDetail) String() string {
	if s, ok := phaseDetailStrings[d]; ok {
		return s
	}
	return "Unknown"
}

// MarshalJSON serializes PhaseDetail as a JSON string (e.g. "Playing").
func (d PhaseDetail) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// GameType is the directory's top-level session family.
type GameType int

const (
	GameTypeAll GameType = iota // unspecified, matches everything
	GameTypeDeathmatch
	GameTypeStrategy
	GameTypeUnknown
)

var gameTypeStrings = map[GameType]string{
	GameTypeAll:        "all",
	GameTypeDeathmatch: "deathmatch",
	GameTypeStrategy:   "strategy",
	GameTypeUnknown:    "unknown",
}

func (t GameType) String() string {
	if s, ok := gameTypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes GameType as a JSON string.
func (t GameType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// GameMode is the resolved game mode, a closed enumeration. New packed
// sub-type values must be mapped here explicitly.
type GameMode int

const (
	ModeUnknown GameMode = iota
	ModeDM
	ModeTeamDM
	ModeKOTH
	ModeTeamKOTH
	ModeCTF
	ModeTeamCTF
	ModeLoot
	ModeTeamLoot
	ModeRace
	ModeTeamRace
	ModeStrategyFFA
	ModeStrategyTeam
	ModeMPI // cooperative: one human team vs computer opponents
)

var gameModeStrings = map[GameMode]string{
	ModeUnknown:      "unknown",
	ModeDM:           "deathmatch",
	ModeTeamDM:       "team-deathmatch",
	ModeKOTH:         "king-of-hill",
	ModeTeamKOTH:     "team-king-of-hill",
	ModeCTF:          "capture-flag",
	ModeTeamCTF:      "team-capture-flag",
	ModeLoot:         "loot",
	ModeTeamLoot:     "team-loot",
	ModeRace:         "race",
	ModeTeamRace:     "team-race",
	ModeStrategyFFA:  "free-for-all-strategy",
	ModeStrategyTeam: "team-strategy",
	ModeMPI:          "multiplayer-instant-action",
}

func (m GameMode) String() string {
	if s, ok := gameModeStrings[m]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes GameMode as a JSON string.
func (m GameMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// RespawnPolicy describes what a destroyed player may respawn as.
type RespawnPolicy int

const (
	RespawnSingleLife RespawnPolicy = iota
	RespawnSameType
	RespawnAnyType
)

var respawnPolicyStrings = map[RespawnPolicy]string{
	RespawnSingleLife: "single-life",
	RespawnSameType:   "same-type",
	RespawnAnyType:    "any-type",
}

func (r RespawnPolicy) String() string {
	if s, ok := respawnPolicyStrings[r]; ok {
		return s
	}
	return "single-life"
}

// MarshalJSON serializes RespawnPolicy as a JSON string.
func (r RespawnPolicy) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// Platform identifies the storefront a player id belongs to.
type Platform int

const (
	PlatformNone Platform = iota
	PlatformSteam
	PlatformGOG
)

var platformStrings = map[Platform]string{
	PlatformNone:  "",
	PlatformSteam: "Steam",
	PlatformGOG:   "GOG",
}

func (p Platform) String() string {
	return platformStrings[p]
}

// MarshalJSON serializes Platform as a JSON string ("" when absent).
func (p Platform) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Classification is the decoded game-type/sub-type of a session.
type Classification struct {
	Type        GameType      `json:"type"`
	Mode        GameMode      `json:"mode"`
	IsTeamGame  bool          `json:"teamGame"`
	Respawn     RespawnPolicy `json:"respawn"`
	VehicleOnly bool          `json:"vehicleOnly"`
}

// NATInfo is the interpreted NAT capability of a session host.
type NATInfo struct {
	Code             int    `json:"code"`
	Name             string `json:"name"`
	CanDirectConnect bool   `json:"canDirectConnect"`
	IsSymmetric      bool   `json:"isSymmetric"`
}

// PhaseInfo is the interpreted lifecycle state of a session.
type PhaseInfo struct {
	Phase        GamePhase   `json:"phase"`
	Detail       PhaseDetail `json:"detail"`
	RawCode      int         `json:"rawCode"`
	HasOpenSlots bool        `json:"openSlots"`
}

// GameTime is the sentinel-aware elapsed or limit time of a session.
// Minutes is nil when the counter is saturated.
type GameTime struct {
	Minutes   *int `json:"minutes,omitempty"`
	Saturated bool `json:"saturated,omitempty"`
}

// ModInfo is one referenced mod. Name is populated for the stock
// sentinel immediately and for other mods only after enrichment.
type ModInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// MapInfo carries the optional map metadata attached by enrichment.
type MapInfo struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Image       string            `json:"image,omitempty"`
	TeamNames   []string          `json:"teamNames,omitempty"`
	ModNames    map[string]string `json:"modNames,omitempty"`

	// Physical metadata, merged from the built-in or caller-supplied table.
	Pools    *int `json:"pools,omitempty"`
	Loose    *int `json:"loose,omitempty"`
	MaxSlots *int `json:"maxSlots,omitempty"`
}

// Player is one normalized roster entry. Owned by its Session, never
// shared, immutable after construction.
type Player struct {
	Name     string   `json:"name"`
	RawID    string   `json:"rawId,omitempty"`
	Platform Platform `json:"platform,omitempty"`
	// At most one of SteamID/GOGID is populated.
	SteamID  string `json:"steamId,omitempty"`
	GOGID    string `json:"gogId,omitempty"`
	RawGOGID string `json:"rawGogId,omitempty"` // pre-mask value, diagnostics only
	Profile  string `json:"profileUrl,omitempty"`

	Kills  *int `json:"kills,omitempty"`
	Deaths *int `json:"deaths,omitempty"`
	Score  *int `json:"score,omitempty"`

	Slot       *int `json:"slot,omitempty"`
	Team       *int `json:"team,omitempty"`
	TeamIndex  *int `json:"teamIndex,omitempty"`
	TeamLeader bool `json:"teamLeader,omitempty"`
	Commander  bool `json:"commander,omitempty"`
	Hidden     bool `json:"hidden,omitempty"`
	Host       bool `json:"host,omitempty"`
}

// Session is one fully-typed lobby session, immutable after construction.
type Session struct {
	Key     string `json:"key"`
	ID      string `json:"id,omitempty"` // 16-char lowercase hex
	Name    string `json:"name"`
	MOTD    string `json:"motd,omitempty"`
	Version string `json:"version,omitempty"`

	GameType    GameType      `json:"gameType"`
	GameMode    GameMode      `json:"gameMode"`
	IsTeamGame  bool          `json:"teamGame"`
	Respawn     RespawnPolicy `json:"respawn"`
	VehicleOnly bool          `json:"vehicleOnly"`

	MapFile string   `json:"mapFile"`
	MapURL  string   `json:"mapUrl,omitempty"`
	MapInfo *MapInfo `json:"mapInfo,omitempty"`

	Players       []Player `json:"players"`
	PlayerCount   int      `json:"playerCount"`
	MaxPlayers    int      `json:"maxPlayers"`
	Commanders    []string `json:"commanders"`
	HiddenPlayers []string `json:"hiddenPlayers"`

	Mods       []ModInfo `json:"mods"`
	PrimaryMod string    `json:"primaryMod"`
	ModHash    string    `json:"modHash,omitempty"`
	IsStock    bool      `json:"stock"`

	Phase        GamePhase   `json:"phase"`
	PhaseDetail  PhaseDetail `json:"phaseDetail"`
	RawPhaseCode int         `json:"rawPhaseCode"`
	HasOpenSlots bool        `json:"openSlots"`
	Locked       bool        `json:"locked"`
	Password     bool        `json:"password"`

	NAT       NATInfo `json:"nat"`
	JoinURL   string  `json:"joinUrl,omitempty"`
	TickRate  int     `json:"tickRate"`
	MaxPing   int     `json:"maxPing"`
	WorstPing int     `json:"worstPing"`

	Elapsed   GameTime `json:"elapsed"`
	TimeLimit *int     `json:"timeLimit,omitempty"`
	KillLimit *int     `json:"killLimit,omitempty"`
}

// CachedPlayer is the display-relevant subset of a player kept in the
// de-duplicated cross-session index.
type CachedPlayer struct {
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
	Profile  string   `json:"profileUrl,omitempty"`
}

// CachedMod is the display-relevant subset of a mod kept in the
// de-duplicated cross-session index.
type CachedMod struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// DataCache is the de-duplicated index of players and mods referenced
// across a snapshot. Rebuilt from scratch on every fetch.
type DataCache struct {
	Players map[string]CachedPlayer `json:"players"`
	Mods    map[string]CachedMod    `json:"mods"`
}
