// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package assemble

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/stats"
	"github.com/tomtom215/navarchus/internal/wows"
)

// ErrNoArenaID means neither the battle-stats payload nor the map
// packet carried an arena id, leaving nothing to key the match on.
var ErrNoArenaID = errors.New("assemble: replay carries no arena id")

// Upload describes the stored blob an assembly run is for. PlayerID
// and player name are not part of it; those come from the replay
// itself, the upload only says who submitted the file and where it
// now lives.
type Upload struct {
	ReplayKey  string
	FileName   string
	FileSize   int64
	UploadedBy string
	UploadedAt time.Time
}

// Bundle is the persistence-ready product of one assembly. Stats is
// nil for incomplete replays; Match and Upload are always set.
type Bundle struct {
	Match  *models.MatchRecord
	Stats  *models.StatsRecord
	Upload *models.UploadRecord
}

// Assembler shapes decoded replays into persistence records.
type Assembler struct {
	resolver *wows.Resolver
}

// NewAssembler builds an Assembler enriching rosters through the given
// resolver.
func NewAssembler(resolver *wows.Resolver) *Assembler {
	return &Assembler{resolver: resolver}
}

// Assemble turns one decoded replay into the records the store writes.
// parsed may be nil for incomplete replays: the match and upload
// records still form, with the outcome unknown and no stats record.
//
// The MATCH record is shaped as the first upload would create it, with
// the uploader as sole entry in Uploaders; when the match already
// exists the store merges instead of overwriting, so the pinned
// perspective fields here only take effect on create.
func (a *Assembler) Assemble(ctx context.Context, d *replay.DecodedReplay, parsed *stats.Result, up Upload) (*Bundle, error) {
	arenaID := d.Map.ArenaID
	if parsed != nil && parsed.ArenaUniqueID != 0 {
		arenaID = parsed.ArenaUniqueID
	}
	if arenaID == 0 {
		return nil, ErrNoArenaID
	}

	meta := &d.Metadata
	gameType := NormalizeGameType(meta.GameTypeRaw())

	tags := clanTagsByPlayer(parsed)
	own, hasOwn := meta.OwnVehicle()

	allies := make([]models.RosterEntry, 0, len(meta.Vehicles))
	if hasOwn {
		allies = append(allies, a.rosterEntry(ctx, own, tags))
	}
	for _, v := range meta.Allies() {
		allies = append(allies, a.rosterEntry(ctx, v, tags))
	}
	enemies := make([]models.RosterEntry, 0, len(meta.Vehicles)/2)
	for _, v := range meta.Enemies() {
		enemies = append(enemies, a.rosterEntry(ctx, v, tags))
	}

	ownID := meta.PlayerID
	if ownID == 0 && hasOwn {
		ownID = own.ID
	}
	if ownID == 0 {
		ownID = d.OwnAvatarID
	}
	ownName := meta.PlayerName
	if ownName == "" && hasOwn {
		ownName = own.Name
	}

	winLoss := models.WinLossUnknown
	clientVersion := d.ClientVersion
	if parsed != nil {
		winLoss = parsed.WinLoss
		if clientVersion == "" {
			clientVersion = parsed.ClientVersion
		}
	}

	uploadedAt := up.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	dateTime := meta.DateTime
	team := ownTeam(d, parsed)
	uploader := models.Uploader{
		PlayerID:   ownID,
		PlayerName: ownName,
		Team:       team,
	}

	match := &models.MatchRecord{
		ArenaUniqueID:           arenaID,
		GameType:                gameType,
		ListingKey:              models.ListingKeyActive,
		UnixTime:                UnixTime(dateTime),
		DateTime:                dateTime,
		DateTimeSortable:        SortableDateTime(dateTime),
		MatchKey:                MatchKey(dateTime, meta.MapName, gameType, rosterNames(allies, enemies)),
		MapID:                   meta.MapName,
		MapDisplayName:          meta.MapDisplayName,
		ClientVersion:           clientVersion,
		AllyPerspectivePlayerID: ownID,
		WinLoss:                 winLoss,
		AllyMainClanTag:         MajorityClanTag(allies),
		EnemyMainClanTag:        MajorityClanTag(enemies),
		Allies:                  allies,
		Enemies:                 enemies,
		Uploaders:               []models.Uploader{uploader},
		CreatedAt:               uploadedAt,
		UpdatedAt:               uploadedAt,
	}

	var statsRec *models.StatsRecord
	var ownStats *models.PlayerBattleStats
	if parsed != nil {
		statsRec = &models.StatsRecord{
			ArenaUniqueID:   arenaID,
			GameType:        gameType,
			ClientVersion:   parsed.ClientVersion,
			AllPlayersStats: parsed.Players,
			CreatedAt:       uploadedAt,
		}
		ownStats = ownStatsOf(parsed)
	}

	uploadRec := &models.UploadRecord{
		ArenaUniqueID: arenaID,
		GameType:      gameType,
		PlayerID:      ownID,
		PlayerName:    ownName,
		Team:          team,
		UploadedBy:    up.UploadedBy,
		ReplayKey:     up.ReplayKey,
		FileName:      up.FileName,
		FileSize:      up.FileSize,
		ClientVersion: clientVersion,
		UploadedAt:    uploadedAt,
		OwnStats:      ownStats,
	}

	return &Bundle{Match: match, Stats: statsRec, Upload: uploadRec}, nil
}

// rosterEntry lifts one metadata vehicle into a roster entry. Clan
// tags prefer the arena state captured in parsed stats; players absent
// from it (or the whole replay, when incomplete) fall back to the
// encyclopedia. An empty tag in the arena state is authoritative and
// does not trigger the fallback.
func (a *Assembler) rosterEntry(ctx context.Context, v replay.Vehicle, tags map[int64]string) models.RosterEntry {
	tag, ok := tags[v.ID]
	if !ok {
		tag = a.resolver.ClanTag(ctx, v.Name)
	}
	return models.RosterEntry{
		PlayerID: v.ID,
		Name:     v.Name,
		ClanTag:  tag,
		ShipID:   v.ShipID,
		ShipName: a.resolver.ShipName(ctx, v.ShipID),
	}
}

// MajorityClanTag returns the modal clan tag of a roster, breaking
// ties to the lexicographically smallest tag. Empty unless at least
// two players share the tag.
func MajorityClanTag(roster []models.RosterEntry) string {
	counts := make(map[string]int)
	for _, e := range roster {
		if e.ClanTag != "" {
			counts[e.ClanTag]++
		}
	}

	best, bestN := "", 0
	for tag, n := range counts {
		if n > bestN || (n == bestN && tag < best) {
			best, bestN = tag, n
		}
	}
	if bestN < 2 {
		return ""
	}
	return best
}

func clanTagsByPlayer(parsed *stats.Result) map[int64]string {
	if parsed == nil {
		return nil
	}
	tags := make(map[int64]string, len(parsed.Players))
	for _, p := range parsed.Players {
		tags[p.PlayerID] = p.ClanTag
	}
	return tags
}

// ownTeam pins the uploader's raw team id: the parsed arena state when
// present, the hidden player table otherwise, zero when the stream
// never carried it.
func ownTeam(d *replay.DecodedReplay, parsed *stats.Result) int {
	if parsed != nil && parsed.OwnTeamID >= 0 {
		return parsed.OwnTeamID
	}
	ownID := d.OwnAvatarID
	if ownID == 0 {
		if v, ok := d.Metadata.OwnVehicle(); ok {
			ownID = v.ID
		}
	}
	if st, ok := d.Hidden.Players[ownID]; ok {
		return st.TeamID
	}
	return 0
}

func ownStatsOf(parsed *stats.Result) *models.PlayerBattleStats {
	for i := range parsed.Players {
		if parsed.Players[i].PlayerID == parsed.OwnPlayerID {
			row := parsed.Players[i]
			return &row
		}
	}
	return nil
}

func rosterNames(allies, enemies []models.RosterEntry) []string {
	names := make([]string, 0, len(allies)+len(enemies))
	for _, e := range allies {
		names = append(names, e.Name)
	}
	for _, e := range enemies {
		names = append(names, e.Name)
	}
	return names
}
