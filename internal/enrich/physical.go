package enrich

import (
	"errors"

	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
)

// PhysicalMapData is the static physical metadata of a map: scrap pools,
// loose scrap, and the slot count the terrain actually supports.
type PhysicalMapData struct {
	Pools    int `json:"pools"`
	Loose    int `json:"loose"`
	MaxSlots int `json:"maxSlots"`
}

// MergeMode selects how a caller-supplied physical table combines with
// the built-in one.
type MergeMode int

const (
	// MergeModeUnset is invalid when caller data is supplied.
	MergeModeUnset MergeMode = iota
	// MergeModeReplace ignores the built-in table entirely.
	MergeModeReplace
	// MergeModeMerge uses the built-in table as base; caller entries
	// override by map-file key.
	MergeModeMerge
)

var mergeModeStrings = map[MergeMode]string{
	MergeModeUnset:   "unset",
	MergeModeReplace: "replace",
	MergeModeMerge:   "merge",
}

func (m MergeMode) String() string {
	if s, ok := mergeModeStrings[m]; ok {
		return s
	}
	return "unset"
}

// ParseMergeMode maps a config string to a MergeMode.
func ParseMergeMode(s string) MergeMode {
	switch s {
	case "replace":
		return MergeModeReplace
	case "merge":
		return MergeModeMerge
	default:
		return MergeModeUnset
	}
}

// ErrMergeModeRequired is the configuration error raised when caller
// physical data arrives without a merge mode. It is surfaced before any
// network activity begins.
var ErrMergeModeRequired = errors.New("physical map data supplied without a merge mode (want replace or merge)")

// builtinPhysical covers the stock multiplayer maps. Caller tables
// extend or replace it per MergeMode.
var builtinPhysical = map[string]PhysicalMapData{
	"chill":    {Pools: 8, Loose: 20, MaxSlots: 6},
	"dunes":    {Pools: 10, Loose: 24, MaxSlots: 8},
	"ground5":  {Pools: 6, Loose: 14, MaxSlots: 4},
	"lava1":    {Pools: 7, Loose: 18, MaxSlots: 6},
	"moon4":    {Pools: 9, Loose: 22, MaxSlots: 8},
	"saltflat": {Pools: 12, Loose: 30, MaxSlots: 10},
	"volcano":  {Pools: 8, Loose: 16, MaxSlots: 6},
}

// ResolvePhysicalTable combines the built-in physical table with
// caller-supplied data according to mode. A caller table without an
// explicit mode is a configuration error.
func ResolvePhysicalTable(caller map[string]PhysicalMapData, mode MergeMode) (map[string]PhysicalMapData, error) {
	if caller == nil {
		return builtinPhysical, nil
	}

	switch mode {
	case MergeModeReplace:
		return caller, nil
	case MergeModeMerge:
		merged := make(map[string]PhysicalMapData, len(builtinPhysical)+len(caller))
		for k, v := range builtinPhysical {
			merged[k] = v
		}
		for k, v := range caller {
			merged[k] = v
		}
		return merged, nil
	default:
		return nil, ErrMergeModeRequired
	}
}

// ApplyPhysicalData returns a new session list where sessions whose map
// file appears in the table carry its physical metadata. The input is
// never mutated; missing maps are left untouched.
func ApplyPhysicalData(sessions []lobby.Session, table map[string]PhysicalMapData) []lobby.Session {
	if len(table) == 0 {
		return sessions
	}

	out := make([]lobby.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s
		phys, ok := table[s.MapFile]
		if !ok {
			continue
		}

		var info lobby.MapInfo
		if s.MapInfo != nil {
			info = *s.MapInfo
		}
		pools, loose, slots := phys.Pools, phys.Loose, phys.MaxSlots
		info.Pools = &pools
		info.Loose = &loose
		info.MaxSlots = &slots
		out[i].MapInfo = &info
	}
	return out
}
