package lobby

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestNormalizePlayerIdentity(t *testing.T) {
	t.Run("steam prefix", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{ID: "S76561198000000001", NameB64: b64("Alpha")}, 0, false, false, ModeDM)
		assert.Equal(t, PlatformSteam, p.Platform)
		assert.Equal(t, "76561198000000001", p.SteamID)
		assert.Empty(t, p.GOGID)
		assert.Equal(t, "https://steamcommunity.com/profiles/76561198000000001", p.Profile)
	})

	t.Run("gog prefix masks the raw galaxy id", func(t *testing.T) {
		// 0xFF00000000000005 -> 5 after masking.
		p := NormalizePlayer(RawPlayer{ID: "G18374686479671623685"}, 1, false, false, ModeDM)
		assert.Equal(t, PlatformGOG, p.Platform)
		assert.Equal(t, "5", p.GOGID)
		assert.Equal(t, "18374686479671623685", p.RawGOGID)
		assert.Empty(t, p.SteamID)
		assert.Equal(t, "https://www.gog.com/u/5", p.Profile)
	})

	t.Run("unknown prefix or absent id", func(t *testing.T) {
		for _, id := range []string{"", "X123", "S"} {
			p := NormalizePlayer(RawPlayer{ID: id}, 0, false, false, ModeDM)
			assert.Equal(t, PlatformNone, p.Platform, "id %q", id)
			assert.Empty(t, p.Profile, "id %q", id)
		}
	})
}

func TestNormalizePlayerTeams(t *testing.T) {
	t.Run("ten player team game", func(t *testing.T) {
		for slot := 1; slot <= 10; slot++ {
			p := NormalizePlayer(RawPlayer{Slot: intp(slot)}, slot-1, true, false, ModeTeamDM)
			assert.False(t, p.Hidden)
			if slot <= 5 {
				assert.Equal(t, 1, *p.Team, "slot %d", slot)
				assert.Equal(t, slot-1, *p.TeamIndex, "slot %d", slot)
				assert.Equal(t, slot == 1, p.TeamLeader, "slot %d", slot)
			} else {
				assert.Equal(t, 2, *p.Team, "slot %d", slot)
				assert.Equal(t, slot-6, *p.TeamIndex, "slot %d", slot)
				assert.Equal(t, slot == 6, p.TeamLeader, "slot %d", slot)
			}
		}
	})

	t.Run("slot 255 is hidden regardless of team flags", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{Slot: intp(NoSlotSentinel)}, 2, true, false, ModeTeamDM)
		assert.True(t, p.Hidden)
		assert.Nil(t, p.Team)
		assert.Nil(t, p.TeamIndex)
		assert.False(t, p.TeamLeader)
	})

	t.Run("absent slot is hidden", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{}, 0, true, false, ModeTeamDM)
		assert.True(t, p.Hidden)
	})

	t.Run("out of range slot leaves team unresolved", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{Slot: intp(42)}, 0, true, false, ModeTeamDM)
		assert.False(t, p.Hidden)
		assert.Nil(t, p.Team)
		assert.Nil(t, p.TeamIndex)
	})

	t.Run("no team assignment outside team games", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{Slot: intp(1)}, 0, false, false, ModeDM)
		assert.Nil(t, p.Team)
		assert.False(t, p.TeamLeader)
	})

	t.Run("coop puts every visible human on team 1", func(t *testing.T) {
		lead := NormalizePlayer(RawPlayer{Slot: intp(1)}, 0, true, true, ModeMPI)
		assert.Equal(t, 1, *lead.Team)
		assert.True(t, lead.TeamLeader)
		assert.True(t, lead.Commander)

		wing := NormalizePlayer(RawPlayer{Slot: intp(7)}, 1, true, true, ModeMPI)
		assert.Equal(t, 1, *wing.Team)
		assert.Equal(t, 6, *wing.TeamIndex)
		assert.False(t, wing.TeamLeader)
		assert.False(t, wing.Commander)
	})
}

func TestNormalizePlayerCommander(t *testing.T) {
	t.Run("strategy team leader is a commander", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{Slot: intp(6)}, 3, true, false, ModeStrategyTeam)
		assert.True(t, p.TeamLeader)
		assert.True(t, p.Commander)
	})

	t.Run("deathmatch team leader is not", func(t *testing.T) {
		p := NormalizePlayer(RawPlayer{Slot: intp(1)}, 0, true, false, ModeTeamDM)
		assert.True(t, p.TeamLeader)
		assert.False(t, p.Commander)
	})
}

func TestNormalizePlayerStatsAndHost(t *testing.T) {
	p := NormalizePlayer(RawPlayer{Kills: intp(5), Score: intp(0)}, 0, false, false, ModeDM)
	assert.Equal(t, 5, *p.Kills)
	assert.Nil(t, p.Deaths) // absent stays absent, not zero
	assert.Equal(t, 0, *p.Score)
	assert.True(t, p.Host)

	p2 := NormalizePlayer(RawPlayer{}, 3, false, false, ModeDM)
	assert.False(t, p2.Host)
}
