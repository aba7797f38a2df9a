package lobby

import (
	"encoding/base64"

	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/codec"
)

// RawGameList is the directory's single list-returning response: one key
// holding the raw session array.
type RawGameList struct {
	Get []RawSession `json:"GET"`
}

// RawSession is one session record exactly as the directory ships it.
// Every field is a short alphabetic key holding an encoded scalar.
// Treated as immutable input, never mutated.
type RawSession struct {
	Version         string      `json:"v,omitempty"`
	Key             string      `json:"g"`  // 65-symbol alphabet-encoded identity
	NameB64         string      `json:"n"`  // base64 of legacy-encoded bytes
	MapFile         string      `json:"m"`
	MapURL          string      `json:"mu,omitempty"`
	GameType        int         `json:"gt"`
	GameSubType     int         `json:"gtd"` // packed mode + detail flags
	GameTimeMinutes int         `json:"gtm"` // 255 = saturated
	MaxPlayers      int         `json:"pm"`
	Mods            string      `json:"mm"` // ";"-delimited mod ids
	ModHash         string      `json:"mh,omitempty"`
	NATType         int         `json:"nt"`
	Locked          int         `json:"l"`
	Password        int         `json:"pw"`
	MOTD            string      `json:"mo,omitempty"`
	State           int         `json:"si"`
	TickRate        int         `json:"ti"`
	WorstPing       int         `json:"pg"`
	MaxPing         int         `json:"pgm"`
	TimeLimit       *int        `json:"tl,omitempty"`
	KillLimit       *int        `json:"kl,omitempty"`
	Players         []RawPlayer `json:"pl"`
}

// RawPlayer is one roster entry as the directory ships it.
type RawPlayer struct {
	ID      string `json:"i,omitempty"` // 1-char platform prefix + numeric id
	NameB64 string `json:"n"`
	Slot    *int   `json:"t,omitempty"` // 1-10, or 255 for hidden
	Kills   *int   `json:"k,omitempty"`
	Deaths  *int   `json:"d,omitempty"`
	Score   *int   `json:"s,omitempty"`
}

// decodeName decodes a base64-wrapped legacy-encoded name field. A field
// that is not valid base64 is passed through undecoded; the directory is
// third-party data and a garbled name must never drop the record.
func decodeName(b64 string) string {
	if b64 == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		log.Warn().Str("field", b64).Msg("name field is not valid base64, passing through")
		return b64
	}
	return codec.DecodeLegacyText(raw)
}
