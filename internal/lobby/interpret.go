package lobby

import (
	"fmt"
	"strings"
)

// Sentinel values used by the directory.
const (
	// NoSlotSentinel marks a roster entry that occupies no visible slot.
	NoSlotSentinel = 255
	// TimeSaturatedSentinel marks an elapsed/limit counter that maxed out.
	TimeSaturatedSentinel = 255
	// StockModID is the "no modification loaded" mod id.
	StockModID = "0"
)

// Raw phase codes as sent in the "si" field.
const (
	phaseCodeWaiting = 1
	phaseCodeFull    = 2
	phaseCodePlaying = 3
	phaseCodeExiting = 4
)

// dmModeBase is the modulo that splits the packed sub-type into a base
// mode slot and the detail word.
const dmModeBase = 14

// InterpretPhase maps a raw phase code to the coarse phase and detail.
// The directory is known to lag behind actual game state: a session still
// reported as waiting whose roster already carries kills, deaths, or
// score is corrected to playing.
func InterpretPhase(code int, players []Player) PhaseInfo {
	info := PhaseInfo{RawCode: code, HasOpenSlots: code == phaseCodeWaiting}

	switch code {
	case phaseCodeWaiting:
		info.Phase, info.Detail = PhasePreGame, DetailWaiting
	case phaseCodeFull:
		info.Phase, info.Detail = PhasePreGame, DetailFull
	case phaseCodePlaying:
		info.Phase, info.Detail = PhaseInGame, DetailPlaying
	case phaseCodeExiting:
		info.Phase, info.Detail = PhasePostGame, DetailExiting
	default:
		info.Phase, info.Detail = PhaseUnknown, DetailUnknown
	}

	if info.Phase == PhasePreGame && anyStatsNonzero(players) {
		info.Phase, info.Detail = PhaseInGame, DetailPlaying
	}

	return info
}

func anyStatsNonzero(players []Player) bool {
	for _, p := range players {
		if nonzero(p.Kills) || nonzero(p.Deaths) || nonzero(p.Score) {
			return true
		}
	}
	return false
}

func nonzero(v *int) bool {
	return v != nil && *v != 0
}

var natNames = map[int]string{
	0: "None",
	1: "Full Cone",
	2: "Address Restricted",
	3: "Port Restricted",
	4: "Symmetric",
	5: "Unknown",
	6: "Detecting",
	7: "UPnP",
}

// InterpretNAT classifies a raw NAT capability code. Direct connects are
// possible only with no NAT or UPnP; only a symmetric NAT defeats
// hole-punching entirely.
func InterpretNAT(code int) NATInfo {
	name, ok := natNames[code]
	if !ok {
		name = fmt.Sprintf("Unknown (%d)", code)
	}
	return NATInfo{
		Code:             code,
		Name:             name,
		CanDirectConnect: code == 0 || code == 7,
		IsSymmetric:      code == 4,
	}
}

// dmSubModes maps the low byte of the detail word to a deathmatch-family
// mode. Values 6 and 7 additionally flag vehicle-only play.
var dmSubModes = map[int]struct {
	ffa, team   GameMode
	vehicleOnly bool
}{
	0: {ModeDM, ModeTeamDM, false},
	1: {ModeKOTH, ModeTeamKOTH, false},
	2: {ModeCTF, ModeTeamCTF, false},
	3: {ModeLoot, ModeTeamLoot, false},
	5: {ModeRace, ModeTeamRace, false},
	6: {ModeRace, ModeTeamRace, true},
	7: {ModeDM, ModeTeamDM, true},
}

// InterpretGameTypeAndMode decodes the game-type integer and the packed
// sub-type into a full classification.
//
// Deathmatch family: packed = detail*14 + modeBase. Even modeBase values
// 2..10 are the team variants. The detail word carries the respawn policy
// in bits 8/9 and the sub-mode in its low byte.
//
// Strategy family: modeBase 11 is free-for-all, 12 is team strategy, 13
// is the cooperative instant-action mode (one human team vs computer
// opponents, treated as a team game).
func InterpretGameTypeAndMode(gameType, packed int) Classification {
	switch gameType {
	case 1:
		modeBase := packed % dmModeBase
		detail := packed / dmModeBase

		cls := Classification{
			Type:       GameTypeDeathmatch,
			IsTeamGame: modeBase%2 == 0 && modeBase >= 2 && modeBase <= 10,
		}

		switch {
		case detail&0x100 != 0:
			cls.Respawn = RespawnSameType
		case detail&0x200 != 0:
			cls.Respawn = RespawnAnyType
		default:
			cls.Respawn = RespawnSingleLife
		}

		sub, ok := dmSubModes[detail&0xFF]
		if !ok {
			sub = dmSubModes[0]
		}
		cls.VehicleOnly = sub.vehicleOnly
		if cls.IsTeamGame {
			cls.Mode = sub.team
		} else {
			cls.Mode = sub.ffa
		}
		return cls

	case 2:
		cls := Classification{Type: GameTypeStrategy}
		switch packed % dmModeBase {
		case 11:
			cls.Mode, cls.IsTeamGame = ModeStrategyFFA, false
		case 12:
			cls.Mode, cls.IsTeamGame = ModeStrategyTeam, true
		case 13:
			cls.Mode, cls.IsTeamGame = ModeMPI, true
		default:
			cls.Mode, cls.IsTeamGame = ModeStrategyTeam, true
		}
		return cls

	case 0:
		return Classification{Type: GameTypeAll, Mode: ModeUnknown}

	default:
		return Classification{Type: GameTypeUnknown, Mode: ModeUnknown}
	}
}

// InterpretModIDs splits the ";"-delimited mod id field. Order and
// duplicates are preserved; empty tokens are dropped.
func InterpretModIDs(delimited string) []string {
	ids := make([]string, 0, 2)
	for _, tok := range strings.Split(delimited, ";") {
		if tok != "" {
			ids = append(ids, tok)
		}
	}
	return ids
}

// InterpretTimeLimit decodes a sentinel-aware minute counter: 255 means
// the counter is saturated (or the limit is unlimited) and no minute
// value is available.
func InterpretTimeLimit(code int) GameTime {
	if code == TimeSaturatedSentinel {
		return GameTime{Saturated: true}
	}
	minutes := code
	return GameTime{Minutes: &minutes}
}

// IsStockModList reports whether a decoded mod id list means "no
// modification loaded": empty, or exactly the stock sentinel.
func IsStockModList(ids []string) bool {
	return len(ids) == 0 || (len(ids) == 1 && ids[0] == StockModID)
}
