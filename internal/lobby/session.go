package lobby

import (
	"fmt"

	"github.com/lobbyscope-project/lobbyscope/internal/codec"
)

// NormalizeSession builds one typed session from a raw directory record.
// It is stateless and re-derives every fact from scratch, so refreshing a
// session is just normalizing its fresh raw record.
func NormalizeSession(raw RawSession) Session {
	cls := InterpretGameTypeAndMode(raw.GameType, raw.GameSubType)
	isCoop := cls.Mode == ModeMPI

	players := make([]Player, 0, len(raw.Players))
	for i, rp := range raw.Players {
		players = append(players, NormalizePlayer(rp, i, cls.IsTeamGame, isCoop, cls.Mode))
	}

	phase := InterpretPhase(raw.State, players)

	modIDs := InterpretModIDs(raw.Mods)
	mods := make([]ModInfo, 0, len(modIDs))
	for _, id := range modIDs {
		m := ModInfo{ID: id, URL: WorkshopURL(id)}
		if id == StockModID {
			m.Name = "Stock"
		}
		mods = append(mods, m)
	}
	primaryMod := StockModID
	if len(modIDs) > 0 {
		primaryMod = modIDs[0]
	}

	name := decodeName(raw.NameB64)
	locked := raw.Locked != 0
	password := raw.Password != 0

	s := Session{
		Key:     raw.Key,
		Name:    name,
		MOTD:    decodeName(raw.MOTD),
		Version: raw.Version,

		GameType:    cls.Type,
		GameMode:    cls.Mode,
		IsTeamGame:  cls.IsTeamGame,
		Respawn:     cls.Respawn,
		VehicleOnly: cls.VehicleOnly,

		MapFile: raw.MapFile,
		MapURL:  raw.MapURL,

		Players:       players,
		PlayerCount:   len(players),
		MaxPlayers:    raw.MaxPlayers,
		Commanders:    commanderNames(players),
		HiddenPlayers: hiddenNames(players),

		Mods:       mods,
		PrimaryMod: primaryMod,
		ModHash:    raw.ModHash,
		IsStock:    IsStockModList(modIDs),

		Phase:        phase.Phase,
		PhaseDetail:  phase.Detail,
		RawPhaseCode: phase.RawCode,
		HasOpenSlots: phase.HasOpenSlots,
		Locked:       locked,
		Password:     password,

		NAT:     InterpretNAT(raw.NATType),
		JoinURL: BuildJoinURL(name, raw.Mods, raw.Key, locked, password),

		TickRate:  raw.TickRate,
		MaxPing:   raw.MaxPing,
		WorstPing: raw.WorstPing,

		Elapsed:   InterpretTimeLimit(raw.GameTimeMinutes),
		TimeLimit: copyInt(raw.TimeLimit),
		KillLimit: copyInt(raw.KillLimit),
	}

	if id, ok := codec.DecodeFixedWidthID(raw.Key); ok {
		s.ID = fmt.Sprintf("%016x", id)
	}

	return s
}

func commanderNames(players []Player) []string {
	names := make([]string, 0, 2)
	for _, p := range players {
		if p.Commander {
			names = append(names, p.Name)
		}
	}
	return names
}

func hiddenNames(players []Player) []string {
	names := make([]string, 0, 2)
	for _, p := range players {
		if p.Hidden {
			names = append(names, p.Name)
		}
	}
	return names
}

// WithMapInfo returns a copy of the session carrying the given map
// metadata and, where the metadata names mods, enriched mod display
// names. The receiver is never mutated.
func (s Session) WithMapInfo(info *MapInfo) Session {
	if info == nil {
		return s
	}

	enriched := s
	enriched.MapInfo = info

	if len(info.ModNames) > 0 {
		mods := make([]ModInfo, len(s.Mods))
		copy(mods, s.Mods)
		for i := range mods {
			if mods[i].Name == "" {
				if name, ok := info.ModNames[mods[i].ID]; ok {
					mods[i].Name = name
				}
			}
		}
		enriched.Mods = mods
	}

	return enriched
}
