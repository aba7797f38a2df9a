package lobby

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSessionEndToEnd(t *testing.T) {
	raw := RawSession{
		Key:         "AB",
		NameB64:     b64("Test"),
		GameType:    1,
		GameSubType: 0,
		State:       3,
		Players: []RawPlayer{
			{ID: "S123", Slot: intp(1), Kills: intp(5)},
		},
	}

	s := NormalizeSession(raw)

	assert.Equal(t, "Test", s.Name)
	assert.Equal(t, GameTypeDeathmatch, s.GameType)
	assert.Equal(t, ModeDM, s.GameMode)
	assert.Equal(t, PhaseInGame, s.Phase)
	assert.Equal(t, DetailPlaying, s.PhaseDetail)

	require.Len(t, s.Players, 1)
	p := s.Players[0]
	assert.Equal(t, "123", p.SteamID)
	assert.Equal(t, PlatformSteam, p.Platform)
	assert.Equal(t, 5, *p.Kills)
	assert.True(t, p.Host)
}

func TestNormalizeSessionIdentity(t *testing.T) {
	t.Run("decoded id renders as padded hex", func(t *testing.T) {
		// "A" decodes to 11.
		s := NormalizeSession(RawSession{Key: "A"})
		assert.Equal(t, "000000000000000b", s.ID)
		assert.Equal(t, "A", s.Key)
	})

	t.Run("absent key leaves id absent", func(t *testing.T) {
		s := NormalizeSession(RawSession{})
		assert.Empty(t, s.ID)
	})
}

func TestNormalizeSessionJoinURL(t *testing.T) {
	base := RawSession{Key: "AB", NameB64: b64("Host"), Mods: "1234"}

	t.Run("joinable session gets a hex-armored url", func(t *testing.T) {
		s := NormalizeSession(base)
		require.NotEmpty(t, s.JoinURL)
		assert.True(t, strings.HasPrefix(s.JoinURL, "steam://rungameid/301650//"))

		decoded, err := hex.DecodeString(strings.TrimPrefix(s.JoinURL, "steam://rungameid/301650//"))
		require.NoError(t, err)
		assert.Equal(t, "N,4,Host,4,1234,AB,0,", string(decoded))
	})

	t.Run("locked or password protected is never joinable", func(t *testing.T) {
		locked := base
		locked.Locked = 1
		assert.Empty(t, NormalizeSession(locked).JoinURL)

		pw := base
		pw.Password = 1
		assert.Empty(t, NormalizeSession(pw).JoinURL)
	})

	t.Run("no mod list means no join url", func(t *testing.T) {
		bare := base
		bare.Mods = ""
		assert.Empty(t, NormalizeSession(bare).JoinURL)
	})
}

func TestNormalizeSessionMods(t *testing.T) {
	t.Run("stock detection", func(t *testing.T) {
		assert.True(t, NormalizeSession(RawSession{}).IsStock)
		assert.True(t, NormalizeSession(RawSession{Mods: "0"}).IsStock)
		assert.False(t, NormalizeSession(RawSession{Mods: "1234"}).IsStock)
		assert.False(t, NormalizeSession(RawSession{Mods: "0;1234"}).IsStock)
	})

	t.Run("primary mod falls back to stock sentinel", func(t *testing.T) {
		assert.Equal(t, "0", NormalizeSession(RawSession{}).PrimaryMod)
		assert.Equal(t, "777", NormalizeSession(RawSession{Mods: "777;888"}).PrimaryMod)
	})

	t.Run("stock gets a name, workshop mods get a url", func(t *testing.T) {
		s := NormalizeSession(RawSession{Mods: "0;555"})
		require.Len(t, s.Mods, 2)
		assert.Equal(t, "Stock", s.Mods[0].Name)
		assert.Empty(t, s.Mods[0].URL)
		assert.Empty(t, s.Mods[1].Name) // pending enrichment
		assert.Equal(t, "https://steamcommunity.com/sharedfiles/filedetails/?id=555", s.Mods[1].URL)
	})
}

func TestNormalizeSessionRosterAggregates(t *testing.T) {
	raw := RawSession{
		GameType:    2,
		GameSubType: 12, // team strategy
		State:       1,
		Players: []RawPlayer{
			{ID: "S1", NameB64: b64("Cmdr One"), Slot: intp(1)},
			{ID: "S2", NameB64: b64("Wing"), Slot: intp(2)},
			{ID: "S3", NameB64: b64("Cmdr Two"), Slot: intp(6)},
			{ID: "S4", NameB64: b64("Ghost"), Slot: intp(255)},
		},
	}

	s := NormalizeSession(raw)
	assert.Equal(t, []string{"Cmdr One", "Cmdr Two"}, s.Commanders)
	assert.Equal(t, []string{"Ghost"}, s.HiddenPlayers)
	assert.Equal(t, 4, s.PlayerCount)
	assert.True(t, s.IsTeamGame)
}

func TestNormalizeSessionTiming(t *testing.T) {
	s := NormalizeSession(RawSession{GameTimeMinutes: 255, TimeLimit: intp(30), KillLimit: intp(40)})
	assert.True(t, s.Elapsed.Saturated)
	assert.Nil(t, s.Elapsed.Minutes)
	assert.Equal(t, 30, *s.TimeLimit)
	assert.Equal(t, 40, *s.KillLimit)

	s2 := NormalizeSession(RawSession{GameTimeMinutes: 12})
	assert.Equal(t, 12, *s2.Elapsed.Minutes)
	assert.Nil(t, s2.TimeLimit)
	assert.Nil(t, s2.KillLimit)
}

func TestWithMapInfo(t *testing.T) {
	s := NormalizeSession(RawSession{Mods: "555;0", MapFile: "bismuth"})

	info := &MapInfo{
		Name:     "Bismuth Rift",
		ModNames: map[string]string{"555": "VSR Balance"},
	}
	enriched := s.WithMapInfo(info)

	assert.Equal(t, "Bismuth Rift", enriched.MapInfo.Name)
	assert.Equal(t, "VSR Balance", enriched.Mods[0].Name)
	assert.Equal(t, "Stock", enriched.Mods[1].Name)

	// The receiver stays untouched.
	assert.Nil(t, s.MapInfo)
	assert.Empty(t, s.Mods[0].Name)

	// nil metadata is a no-op copy.
	same := s.WithMapInfo(nil)
	assert.Nil(t, same.MapInfo)
}
