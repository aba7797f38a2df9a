package lobby

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestInterpretPhase(t *testing.T) {
	t.Run("code table", func(t *testing.T) {
		cases := []struct {
			code      int
			phase     GamePhase
			detail    PhaseDetail
			openSlots bool
		}{
			{0, PhaseUnknown, DetailUnknown, false},
			{1, PhasePreGame, DetailWaiting, true},
			{2, PhasePreGame, DetailFull, false},
			{3, PhaseInGame, DetailPlaying, false},
			{4, PhasePostGame, DetailExiting, false},
			{5, PhaseUnknown, DetailUnknown, false},
			{99, PhaseUnknown, DetailUnknown, false},
		}
		for _, tc := range cases {
			info := InterpretPhase(tc.code, nil)
			assert.Equal(t, tc.phase, info.Phase, "code %d", tc.code)
			assert.Equal(t, tc.detail, info.Detail, "code %d", tc.code)
			assert.Equal(t, tc.openSlots, info.HasOpenSlots, "code %d", tc.code)
			assert.Equal(t, tc.code, info.RawCode)
		}
	})

	t.Run("stat override fires for any nonzero stat", func(t *testing.T) {
		for name, p := range map[string]Player{
			"kills":  {Kills: intp(1)},
			"deaths": {Deaths: intp(3)},
			"score":  {Score: intp(-2)},
		} {
			info := InterpretPhase(phaseCodeWaiting, []Player{{}, p})
			assert.Equal(t, PhaseInGame, info.Phase, name)
			assert.Equal(t, DetailPlaying, info.Detail, name)
		}
	})

	t.Run("override applies to full lobbies too", func(t *testing.T) {
		info := InterpretPhase(phaseCodeFull, []Player{{Kills: intp(7)}})
		assert.Equal(t, PhaseInGame, info.Phase)
	})

	t.Run("zero stats do not trigger the override", func(t *testing.T) {
		info := InterpretPhase(phaseCodeWaiting, []Player{{Kills: intp(0), Score: intp(0)}})
		assert.Equal(t, PhasePreGame, info.Phase)
		assert.Equal(t, DetailWaiting, info.Detail)
	})
}

func TestInterpretNAT(t *testing.T) {
	cases := []struct {
		code      int
		name      string
		direct    bool
		symmetric bool
	}{
		{0, "None", true, false},
		{1, "Full Cone", false, false},
		{2, "Address Restricted", false, false},
		{3, "Port Restricted", false, false},
		{4, "Symmetric", false, true},
		{5, "Unknown", false, false},
		{6, "Detecting", false, false},
		{7, "UPnP", true, false},
		{42, "Unknown (42)", false, false},
	}
	for _, tc := range cases {
		info := InterpretNAT(tc.code)
		assert.Equal(t, tc.name, info.Name)
		assert.Equal(t, tc.direct, info.CanDirectConnect, "code %d", tc.code)
		assert.Equal(t, tc.symmetric, info.IsSymmetric, "code %d", tc.code)
	}
}

func TestInterpretGameTypeAndMode(t *testing.T) {
	t.Run("packed 7267 regression", func(t *testing.T) {
		// 7267 = 519*14 + 3: odd base so not a team game, detail low
		// byte 7 is vehicle-only deathmatch, bit 9 set means any-type
		// respawn.
		cls := InterpretGameTypeAndMode(1, 7267)
		assert.Equal(t, GameTypeDeathmatch, cls.Type)
		assert.False(t, cls.IsTeamGame)
		assert.Equal(t, ModeDM, cls.Mode)
		assert.True(t, cls.VehicleOnly)
		assert.Equal(t, RespawnAnyType, cls.Respawn)
	})

	t.Run("team flag from base mode parity and range", func(t *testing.T) {
		for base, team := range map[int]bool{
			0: false, 1: false, 2: true, 3: false, 4: true, 5: false,
			6: true, 7: false, 8: true, 9: false, 10: true, 11: false,
			12: false, 13: false,
		} {
			cls := InterpretGameTypeAndMode(1, base)
			assert.Equal(t, team, cls.IsTeamGame, "base %d", base)
		}
	})

	t.Run("sub modes and team variants", func(t *testing.T) {
		cases := []struct {
			sub  int
			ffa  GameMode
			team GameMode
		}{
			{0, ModeDM, ModeTeamDM},
			{1, ModeKOTH, ModeTeamKOTH},
			{2, ModeCTF, ModeTeamCTF},
			{3, ModeLoot, ModeTeamLoot},
			{5, ModeRace, ModeTeamRace},
			{6, ModeRace, ModeTeamRace},
			{7, ModeDM, ModeTeamDM},
			{4, ModeDM, ModeTeamDM},  // unmapped value falls back to DM
			{99, ModeDM, ModeTeamDM}, // ditto
		}
		for _, tc := range cases {
			ffa := InterpretGameTypeAndMode(1, tc.sub*dmModeBase+1)
			assert.Equal(t, tc.ffa, ffa.Mode, "sub %d ffa", tc.sub)
			team := InterpretGameTypeAndMode(1, tc.sub*dmModeBase+2)
			assert.Equal(t, tc.team, team.Mode, "sub %d team", tc.sub)
		}
	})

	t.Run("respawn bits", func(t *testing.T) {
		assert.Equal(t, RespawnSingleLife, InterpretGameTypeAndMode(1, 0).Respawn)
		assert.Equal(t, RespawnSameType, InterpretGameTypeAndMode(1, 0x100*dmModeBase).Respawn)
		assert.Equal(t, RespawnAnyType, InterpretGameTypeAndMode(1, 0x200*dmModeBase).Respawn)
		// Bit 8 wins when both are set.
		assert.Equal(t, RespawnSameType, InterpretGameTypeAndMode(1, 0x300*dmModeBase).Respawn)
	})

	t.Run("strategy family", func(t *testing.T) {
		ffa := InterpretGameTypeAndMode(2, 11)
		assert.Equal(t, ModeStrategyFFA, ffa.Mode)
		assert.False(t, ffa.IsTeamGame)

		team := InterpretGameTypeAndMode(2, 12)
		assert.Equal(t, ModeStrategyTeam, team.Mode)
		assert.True(t, team.IsTeamGame)

		coop := InterpretGameTypeAndMode(2, 13)
		assert.Equal(t, ModeMPI, coop.Mode)
		assert.True(t, coop.IsTeamGame)

		fallback := InterpretGameTypeAndMode(2, 5)
		assert.Equal(t, ModeStrategyTeam, fallback.Mode)
		assert.True(t, fallback.IsTeamGame)
	})

	t.Run("unspecified and unknown types", func(t *testing.T) {
		all := InterpretGameTypeAndMode(0, 1234)
		assert.Equal(t, GameTypeAll, all.Type)
		assert.Equal(t, ModeUnknown, all.Mode)

		unk := InterpretGameTypeAndMode(9, 0)
		assert.Equal(t, GameTypeUnknown, unk.Type)
	})
}

func TestInterpretModIDs(t *testing.T) {
	assert.Empty(t, InterpretModIDs(""))
	assert.Equal(t, []string{"0"}, InterpretModIDs("0"))
	assert.Equal(t, []string{"123", "456"}, InterpretModIDs("123;456"))
	assert.Equal(t, []string{"123", "456"}, InterpretModIDs(";123;;456;"))
	// Duplicates and order are preserved.
	assert.Equal(t, []string{"7", "7", "3"}, InterpretModIDs("7;7;3"))
}

func TestIsStockModList(t *testing.T) {
	assert.True(t, IsStockModList(nil))
	assert.True(t, IsStockModList([]string{"0"}))
	assert.False(t, IsStockModList([]string{"123"}))
	assert.False(t, IsStockModList([]string{"0", "123"}))
}

func TestInterpretTimeLimit(t *testing.T) {
	gt := InterpretTimeLimit(90)
	assert.False(t, gt.Saturated)
	assert.Equal(t, 90, *gt.Minutes)

	sat := InterpretTimeLimit(255)
	assert.True(t, sat.Saturated)
	assert.Nil(t, sat.Minutes)

	zero := InterpretTimeLimit(0)
	assert.Equal(t, 0, *zero.Minutes)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "in-game", PhaseInGame.String())
	assert.Equal(t, "multiplayer-instant-action", ModeMPI.String())
	assert.Equal(t, "unknown", GameMode(999).String())

	b, err := ModeTeamDM.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"team-deathmatch"`, string(b))

	b, err = PhasePostGame.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"post-game"`, string(b))
}

func TestNATUnknownNameFormat(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("Unknown (%d)", -1), InterpretNAT(-1).Name)
}
