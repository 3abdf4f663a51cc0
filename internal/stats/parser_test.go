// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package stats

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/navarchus/internal/gamedata"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
)

// Avatar ids are arbitrary; ship ids are real GameParams ids present in
// the embedded gamedata snapshot.
const (
	testArenaID = int64(7598531900001234)

	ownAvatar   = int64(611001)
	allyAvatar  = int64(611002)
	enemyAvatar = int64(611003)

	gearingID   = int64(4253005024) // Destroyer
	fletcherID  = int64(4269468816) // Destroyer
	yamatoID    = int64(4253922944) // Battleship
	desMoinesID = int64(4232463664) // Cruiser

	commanderID = int64(778899)
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	tables, err := gamedata.NewTables()
	if err != nil {
		t.Fatalf("gamedata.NewTables() error: %v", err)
	}
	return NewParser(tables)
}

// statsRow builds a 430-slot row with every cell zeroed, then applies
// the identity slots and the caller's overrides.
func statsRow(id int64, name string, fill map[int]interface{}) []interface{} {
	row := make([]interface{}, 430)
	for i := range row {
		row[i] = int64(0)
	}
	row[0] = id
	row[1] = name
	for slot, v := range fill {
		row[slot] = v
	}
	return row
}

func privateData(rawXP int64) []interface{} {
	block := make([]interface{}, 8)
	for i := range block {
		block[i] = int64(0)
	}
	block[7] = []interface{}{rawXP}
	return block
}

// testDecoded builds a complete three-player clan battle from the
// uploader's perspective: the uploader and one ally on team 0, one
// enemy on team 1, team 0 winning.
func testDecoded(t *testing.T) *replay.DecodedReplay {
	t.Helper()

	ownRow := statsRow(ownAvatar, "_meteor0090", map[int]interface{}{
		2:   int64(1019283746),
		3:   "OZEKI",
		4:   int64(500155),
		9:   "eu",
		22:  int64(1142),
		23:  95.25,
		32:  int64(3),
		66:  int64(18),
		68:  int64(141),
		69:  int64(2),
		71:  int64(9),
		75:  int64(1),
		76:  int64(5),
		86:  int64(4),
		157: int64(12000),
		159: int64(98000),
		162: int64(1500),
		166: int64(24000),
		167: int64(8000),
		178: int64(334),
		179: int64(6200),
		180: int64(1300),
		204: int64(40100),
		406: int64(2140),
		415: int64(22500),
		419: 1523001.5,
		429: int64(151334),
	})
	allyRow := statsRow(allyAvatar, "ally_one", map[int]interface{}{
		429: int64(88000),
	})
	enemyRow := statsRow(enemyAvatar, "enemy_one", map[int]interface{}{
		3:   "FOE",
		429: int64(64000),
	})

	return &replay.DecodedReplay{
		ClientVersion: "14.11.0",
		OwnAvatarID:   ownAvatar,
		Metadata: replay.Metadata{
			MatchGroup: "clan",
			Vehicles: []replay.Vehicle{
				{ShipID: gearingID, Relation: 0, ID: ownAvatar, Name: "_meteor0090"},
				{ShipID: fletcherID, Relation: 1, ID: allyAvatar, Name: "ally_one"},
				{ShipID: yamatoID, Relation: 2, ID: enemyAvatar, Name: "enemy_one"},
			},
		},
		BattleStats: &replay.BattleStats{
			ArenaUniqueID: testArenaID,
			PlayersPublicInfo: map[int64][]interface{}{
				ownAvatar:   ownRow,
				allyAvatar:  allyRow,
				enemyAvatar: enemyRow,
			},
			PrivateDataList: privateData(300000),
		},
		Hidden: replay.HiddenState{
			BattleResult: &replay.BattleResult{WinnerTeamID: 0, FinishReason: 2},
			Players: map[int64]*replay.PlayerState{
				ownAvatar: {
					ID:           ownAvatar,
					AvatarID:     ownAvatar,
					Name:         "_meteor0090",
					TeamID:       0,
					ShipParamsID: gearingID,
					CrewParams:   []int64{commanderID},
					ShipComponents: map[string]string{
						"hull":      "AGD013_Gearing_1945",
						"artillery": "AGD013_Gearing_ART",
					},
					ShipConfigDump: configDump(uint32(gearingID),
						[]uint32{11, 12},
						[]uint32{4250319536, 4271714464, 99},
						[]uint32{4273911792}),
				},
				allyAvatar: {
					ID:           allyAvatar,
					AvatarID:     allyAvatar,
					Name:         "ally_one",
					TeamID:       0,
					ShipParamsID: fletcherID,
					// No crew broadcast matches this commander.
					CrewParams: []int64{555555},
				},
				enemyAvatar: {
					ID:           enemyAvatar,
					AvatarID:     enemyAvatar,
					Name:         "enemy_one",
					TeamID:       1,
					ShipParamsID: yamatoID,
				},
			},
			Crew: map[int64]*replay.CrewState{
				1: {
					CrewID: commanderID,
					LearnedSkills: map[string][]string{
						gamedata.ClassDestroyer: {"GmReloadAaDamageConstant", "ConsumablesDuration"},
						gamedata.ClassCruiser:   {"ApDamageCa", "ArmamentReloadAaDamage"},
					},
				},
			},
		},
	}
}

func TestParseCompleteReplay(t *testing.T) {
	res, err := newTestParser(t).Parse(testDecoded(t))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	t.Run("result", func(t *testing.T) {
		if res.ArenaUniqueID != testArenaID {
			t.Errorf("ArenaUniqueID = %d, want %d", res.ArenaUniqueID, testArenaID)
		}
		if res.ClientVersion != "14.11.0" {
			t.Errorf("ClientVersion = %q, want 14.11.0", res.ClientVersion)
		}
		if res.WinLoss != models.WinLossWin {
			t.Errorf("WinLoss = %q, want %q", res.WinLoss, models.WinLossWin)
		}
		if res.Experience != 30000 {
			t.Errorf("Experience = %d, want 30000", res.Experience)
		}
		if res.OwnPlayerID != ownAvatar {
			t.Errorf("OwnPlayerID = %d, want %d", res.OwnPlayerID, ownAvatar)
		}
		if res.OwnTeamID != 0 {
			t.Errorf("OwnTeamID = %d, want 0", res.OwnTeamID)
		}
		if len(res.Players) != 3 {
			t.Fatalf("len(Players) = %d, want 3", len(res.Players))
		}
		for i := 1; i < len(res.Players); i++ {
			if res.Players[i-1].PlayerID >= res.Players[i].PlayerID {
				t.Errorf("players not ordered by id: %d before %d",
					res.Players[i-1].PlayerID, res.Players[i].PlayerID)
			}
		}
	})

	t.Run("own player", func(t *testing.T) {
		own := res.Players[0]
		if !own.IsOwn {
			t.Error("IsOwn = false for the uploader")
		}
		if own.Team != models.TeamAlly {
			t.Errorf("Team = %q, want %q", own.Team, models.TeamAlly)
		}
		if own.PlayerID != ownAvatar {
			t.Errorf("PlayerID = %d, want %d", own.PlayerID, ownAvatar)
		}
		if own.PlayerName != "_meteor0090" {
			t.Errorf("PlayerName = %q, want _meteor0090", own.PlayerName)
		}
		if own.AccountDBID != 1019283746 {
			t.Errorf("AccountDBID = %d, want 1019283746", own.AccountDBID)
		}
		if own.ClanTag != "OZEKI" {
			t.Errorf("ClanTag = %q, want OZEKI", own.ClanTag)
		}
		if own.ClanID != 500155 {
			t.Errorf("ClanID = %d, want 500155", own.ClanID)
		}
		if own.Realm != "eu" {
			t.Errorf("Realm = %q, want eu", own.Realm)
		}
		if own.ShipID != gearingID {
			t.Errorf("ShipID = %d, want %d", own.ShipID, gearingID)
		}
		if own.ShipName != "Gearing" {
			t.Errorf("ShipName = %q, want Gearing", own.ShipName)
		}
		if own.ShipClass != gamedata.ClassDestroyer {
			t.Errorf("ShipClass = %q, want %q", own.ShipClass, gamedata.ClassDestroyer)
		}
		if own.SurvivalPercent != 95.25 {
			t.Errorf("SurvivalPercent = %v, want 95.25", own.SurvivalPercent)
		}

		nums := []struct {
			name string
			got  int
			want int
		}{
			{"SurvivalTime", own.SurvivalTime, 1142},
			{"Kills", own.Kills, 3},
			{"Citadels", own.Citadels, 2},
			{"Crits", own.Crits, 5},
			{"Fires", own.Fires, 4},
			{"Floods", own.Floods, 1},
			{"HitsAP", own.HitsAP, 18},
			{"HitsHE", own.HitsHE, 141},
			{"HitsSecondaries", own.HitsSecondaries, 9},
			{"Damage", own.Damage, 151334},
			{"DamageAP", own.DamageAP, 12000},
			{"DamageHE", own.DamageHE, 98000},
			{"DamageHESecondaries", own.DamageHESecondaries, 1500},
			{"DamageTorps", own.DamageTorps, 24000},
			{"DamageDeepWater", own.DamageDeepWater, 8000},
			{"DamageFire", own.DamageFire, 6200},
			{"DamageFlooding", own.DamageFlooding, 1300},
			{"DamageOther", own.DamageOther, 334},
			{"ReceivedDamage", own.ReceivedDamage, 40100},
			{"SpottingDamage", own.SpottingDamage, 22500},
			{"PotentialDamage", own.PotentialDamage, 1523001},
			{"BaseXP", own.BaseXP, 2140},
		}
		for _, n := range nums {
			if n.got != n.want {
				t.Errorf("%s = %d, want %d", n.name, n.got, n.want)
			}
		}

		wantSkills := []string{"Gun Feeder", "Consumable Enhancements"}
		if !reflect.DeepEqual(own.CaptainSkills, wantSkills) {
			t.Errorf("CaptainSkills = %v, want %v", own.CaptainSkills, wantSkills)
		}
		// 4250319536 has a curated name, 4271714464 falls back to its
		// PCM code, 99 is unknown and dropped.
		wantUpgrades := []string{"Torpedo Tubes Mod 1", "PCM103"}
		if !reflect.DeepEqual(own.Upgrades, wantUpgrades) {
			t.Errorf("Upgrades = %v, want %v", own.Upgrades, wantUpgrades)
		}
		// Component values ordered by module key: artillery, hull.
		wantComponents := []string{"AGD013_Gearing_ART", "AGD013_Gearing_1945"}
		if !reflect.DeepEqual(own.ShipComponents, wantComponents) {
			t.Errorf("ShipComponents = %v, want %v", own.ShipComponents, wantComponents)
		}
	})

	t.Run("ally player", func(t *testing.T) {
		ally := res.Players[1]
		if ally.IsOwn {
			t.Error("IsOwn = true for an ally")
		}
		if ally.Team != models.TeamAlly {
			t.Errorf("Team = %q, want %q", ally.Team, models.TeamAlly)
		}
		if ally.ShipName != "Fletcher" {
			t.Errorf("ShipName = %q, want Fletcher", ally.ShipName)
		}
		if ally.Damage != 88000 {
			t.Errorf("Damage = %d, want 88000", ally.Damage)
		}
		if ally.CaptainSkills != nil {
			t.Errorf("CaptainSkills = %v, want none without a crew broadcast", ally.CaptainSkills)
		}
		if ally.Upgrades != nil {
			t.Errorf("Upgrades = %v, want none without a config dump", ally.Upgrades)
		}
	})

	t.Run("enemy player", func(t *testing.T) {
		enemy := res.Players[2]
		if enemy.Team != models.TeamEnemy {
			t.Errorf("Team = %q, want %q", enemy.Team, models.TeamEnemy)
		}
		if enemy.ClanTag != "FOE" {
			t.Errorf("ClanTag = %q, want FOE", enemy.ClanTag)
		}
		if enemy.ShipName != "Yamato" {
			t.Errorf("ShipName = %q, want Yamato", enemy.ShipName)
		}
		if enemy.ShipClass != gamedata.ClassBattleship {
			t.Errorf("ShipClass = %q, want %q", enemy.ShipClass, gamedata.ClassBattleship)
		}
	})
}

func TestParseSkillsFollowShipClass(t *testing.T) {
	t.Run("cruiser hull selects the cruiser sub-list", func(t *testing.T) {
		d := testDecoded(t)
		d.Hidden.Players[ownAvatar].ShipParamsID = desMoinesID

		res, err := newTestParser(t).Parse(d)
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		own := res.Players[0]
		if own.ShipClass != gamedata.ClassCruiser {
			t.Fatalf("ShipClass = %q, want %q", own.ShipClass, gamedata.ClassCruiser)
		}
		want := []string{"Heavy AP Shells", "Adrenaline Rush"}
		if !reflect.DeepEqual(own.CaptainSkills, want) {
			t.Errorf("CaptainSkills = %v, want %v", own.CaptainSkills, want)
		}
	})

	t.Run("unknown ship yields no skills", func(t *testing.T) {
		d := testDecoded(t)
		d.Hidden.Players[ownAvatar].ShipParamsID = 12345

		res, err := newTestParser(t).Parse(d)
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		own := res.Players[0]
		if own.ShipClass != "" {
			t.Errorf("ShipClass = %q, want empty for a ship outside the snapshot", own.ShipClass)
		}
		if own.CaptainSkills != nil {
			t.Errorf("CaptainSkills = %v, want none when the class is unknown", own.CaptainSkills)
		}
	})

	t.Run("uncurated skill keeps its internal name", func(t *testing.T) {
		d := testDecoded(t)
		d.Hidden.Crew[1].LearnedSkills[gamedata.ClassDestroyer] = []string{"FutureSkillPlaceholder"}

		res, err := newTestParser(t).Parse(d)
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		want := []string{"FutureSkillPlaceholder"}
		if got := res.Players[0].CaptainSkills; !reflect.DeepEqual(got, want) {
			t.Errorf("CaptainSkills = %v, want %v", got, want)
		}
	})
}

func TestParseCitadelCountersPerVersion(t *testing.T) {
	d := testDecoded(t)
	d.ClientVersion = "14.10.0"

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	own := res.Players[0]
	if own.Citadels != 0 || own.Crits != 0 {
		t.Errorf("Citadels, Crits = %d, %d; want 0, 0 on a release without the counters",
			own.Citadels, own.Crits)
	}
	if own.Damage != 151334 {
		t.Errorf("Damage = %d, want 151334", own.Damage)
	}
}

func TestParseWinLoss(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *replay.DecodedReplay)
		want   string
	}{
		{
			"winner matches own team",
			func(d *replay.DecodedReplay) {},
			models.WinLossWin,
		},
		{
			"winner differs from own team",
			func(d *replay.DecodedReplay) { d.Hidden.BattleResult.WinnerTeamID = 1 },
			models.WinLossLoss,
		},
		{
			"negative winner is a draw",
			func(d *replay.DecodedReplay) { d.Hidden.BattleResult.WinnerTeamID = -1 },
			models.WinLossDraw,
		},
		{
			"own team unknown",
			func(d *replay.DecodedReplay) { delete(d.Hidden.Players, ownAvatar) },
			models.WinLossUnknown,
		},
		{
			"no broadcast, clan victory xp",
			func(d *replay.DecodedReplay) { d.Hidden.BattleResult = nil },
			models.WinLossWin,
		},
		{
			"no broadcast, clan defeat xp",
			func(d *replay.DecodedReplay) {
				d.Hidden.BattleResult = nil
				d.BattleStats.PrivateDataList = privateData(150000)
			},
			models.WinLossLoss,
		},
		{
			"no broadcast, unrecognized xp",
			func(d *replay.DecodedReplay) {
				d.Hidden.BattleResult = nil
				d.BattleStats.PrivateDataList = privateData(42)
			},
			models.WinLossUnknown,
		},
		{
			"no broadcast, not a clan battle",
			func(d *replay.DecodedReplay) {
				d.Hidden.BattleResult = nil
				d.Metadata.MatchGroup = "pvp"
			},
			models.WinLossUnknown,
		},
		{
			"no broadcast, private block missing",
			func(d *replay.DecodedReplay) {
				d.Hidden.BattleResult = nil
				d.BattleStats.PrivateDataList = nil
			},
			models.WinLossUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDecoded(t)
			tt.mutate(d)
			res, err := newTestParser(t).Parse(d)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if res.WinLoss != tt.want {
				t.Errorf("WinLoss = %q, want %q", res.WinLoss, tt.want)
			}
		})
	}
}

func TestParseExperience(t *testing.T) {
	tests := []struct {
		name    string
		private []interface{}
		want    int
	}{
		{"integer block", privateData(300000), 30000},
		{"float block", []interface{}{nil, nil, nil, nil, nil, nil, nil, []interface{}{250000.0}}, 25000},
		{"block too short", []interface{}{int64(1)}, 0},
		{"entry not a sequence", []interface{}{nil, nil, nil, nil, nil, nil, nil, int64(300000)}, 0},
		{"empty sequence", []interface{}{nil, nil, nil, nil, nil, nil, nil, []interface{}{}}, 0},
		{"missing entirely", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDecoded(t)
			d.BattleStats.PrivateDataList = tt.private
			res, err := newTestParser(t).Parse(d)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if res.Experience != tt.want {
				t.Errorf("Experience = %d, want %d", res.Experience, tt.want)
			}
		})
	}
}

func TestParseSkipsShortRows(t *testing.T) {
	d := testDecoded(t)
	d.BattleStats.PlayersPublicInfo[allyAvatar] = d.BattleStats.PlayersPublicInfo[allyAvatar][:429]

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2 after dropping the short row", len(res.Players))
	}
	for _, p := range res.Players {
		if p.PlayerID == allyAvatar {
			t.Errorf("player %d kept despite a short stats row", allyAvatar)
		}
	}
}

func TestParseIncompleteReplay(t *testing.T) {
	d := testDecoded(t)
	d.BattleStats = nil

	if _, err := newTestParser(t).Parse(d); !errors.Is(err, replay.ErrNoBattleStats) {
		t.Fatalf("Parse() error = %v, want ErrNoBattleStats", err)
	}
}

func TestParseVersionWithoutTable(t *testing.T) {
	d := testDecoded(t)
	d.ClientVersion = "9.4.0"

	if _, err := newTestParser(t).Parse(d); !errors.Is(err, ErrIndexMissing) {
		t.Fatalf("Parse() error = %v, want ErrIndexMissing", err)
	}
}

func TestParsePlayerIDFallsBackToKey(t *testing.T) {
	d := testDecoded(t)
	d.BattleStats.PlayersPublicInfo[ownAvatar][0] = int64(0)

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := res.Players[0].PlayerID; got != ownAvatar {
		t.Errorf("PlayerID = %d, want the table key %d", got, ownAvatar)
	}
}

func TestParseOwnPlayerFromMetadata(t *testing.T) {
	d := testDecoded(t)
	d.OwnAvatarID = 0

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.OwnPlayerID != ownAvatar {
		t.Errorf("OwnPlayerID = %d, want %d from the metadata roster", res.OwnPlayerID, ownAvatar)
	}
	if !res.Players[0].IsOwn {
		t.Error("IsOwn = false for the uploader resolved via metadata")
	}
}

func TestParseTeamsFromRelations(t *testing.T) {
	d := testDecoded(t)
	d.Hidden.Players = nil

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.OwnTeamID != -1 {
		t.Errorf("OwnTeamID = %d, want -1 without arena state", res.OwnTeamID)
	}
	wantTeams := []string{models.TeamAlly, models.TeamAlly, models.TeamEnemy}
	for i, want := range wantTeams {
		if got := res.Players[i].Team; got != want {
			t.Errorf("Players[%d].Team = %q, want %q", i, got, want)
		}
	}
	if res.Players[0].ShipName != "" {
		t.Errorf("ShipName = %q, want empty without arena state", res.Players[0].ShipName)
	}
}

func TestParseStrangerDefaultsToEnemy(t *testing.T) {
	d := testDecoded(t)
	stranger := int64(611099)
	d.BattleStats.PlayersPublicInfo[stranger] = statsRow(stranger, "late_join", nil)

	res, err := newTestParser(t).Parse(d)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Players) != 4 {
		t.Fatalf("len(Players) = %d, want 4", len(res.Players))
	}
	last := res.Players[3]
	if last.PlayerID != stranger {
		t.Fatalf("Players[3].PlayerID = %d, want %d", last.PlayerID, stranger)
	}
	if last.Team != models.TeamEnemy {
		t.Errorf("Team = %q, want %q for a player absent from both rosters", last.Team, models.TeamEnemy)
	}
}
