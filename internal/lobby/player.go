package lobby

import (
	"github.com/lobbyscope-project/lobbyscope/internal/codec"
)

// Platform prefixes on the raw player identity string.
const (
	steamIDPrefix = 'S'
	gogIDPrefix   = 'G'
)

// Team slot boundaries. Slots 1-5 are team 1, slots 6-10 are team 2; the
// slot at each boundary start is the team leader.
const (
	team1FirstSlot = 1
	team1LastSlot  = 5
	team2FirstSlot = 6
	team2LastSlot  = 10
)

// NormalizePlayer builds one typed player from a raw roster entry plus
// session-level context: its 0-based roster position, whether the session
// is a team game, whether it is the cooperative strategy mode, and the
// session's resolved game mode.
func NormalizePlayer(raw RawPlayer, pos int, isTeamGame, isCoop bool, mode GameMode) Player {
	p := Player{
		Name:   decodeName(raw.NameB64),
		RawID:  raw.ID,
		Kills:  copyInt(raw.Kills),
		Deaths: copyInt(raw.Deaths),
		Score:  copyInt(raw.Score),
		Slot:   copyInt(raw.Slot),
		Host:   pos == 0,
	}

	resolveIdentity(&p, raw.ID)

	p.Hidden = raw.Slot == nil || *raw.Slot == NoSlotSentinel
	if !p.Hidden {
		resolveTeam(&p, *raw.Slot, isTeamGame, isCoop)
	}

	// Only the strategy-oriented modes have commanders; in deathmatch a
	// team leader is just the first slot.
	if p.TeamLeader && (mode == ModeStrategyTeam || mode == ModeMPI) {
		p.Commander = true
	}

	return p
}

// resolveIdentity splits the platform prefix off the raw identity. A GOG
// Galaxy id carries routing flags in its top byte and must be masked
// before it can address a profile; the raw value is kept for diagnostics.
func resolveIdentity(p *Player, rawID string) {
	if len(rawID) < 2 {
		return
	}
	rest := rawID[1:]
	switch rawID[0] {
	case steamIDPrefix:
		p.Platform = PlatformSteam
		p.SteamID = rest
		p.Profile = SteamProfileURL(rest)
	case gogIDPrefix:
		p.Platform = PlatformGOG
		p.RawGOGID = rest
		p.GOGID = codec.MaskHighBits(rest)
		p.Profile = GOGProfileURL(p.GOGID)
	}
}

// resolveTeam assigns team and intra-team index from the raw slot.
// Unknown slot values leave the team unresolved rather than guessing.
// In the cooperative mode every visible human is on team 1.
func resolveTeam(p *Player, slot int, isTeamGame, isCoop bool) {
	if !isTeamGame {
		return
	}

	switch {
	case isCoop:
		team := 1
		idx := slot - team1FirstSlot
		p.Team = &team
		p.TeamIndex = &idx
		p.TeamLeader = slot == team1FirstSlot
	case slot >= team1FirstSlot && slot <= team1LastSlot:
		team := 1
		idx := slot - team1FirstSlot
		p.Team = &team
		p.TeamIndex = &idx
		p.TeamLeader = slot == team1FirstSlot
	case slot >= team2FirstSlot && slot <= team2LastSlot:
		team := 2
		idx := slot - team2FirstSlot
		p.Team = &team
		p.TeamIndex = &idx
		p.TeamLeader = slot == team2FirstSlot
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
