// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package assemble

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/navarchus/internal/models"
)

// MatchKey derives the grouping key that identifies one server-side
// match across uploads. Arena ids differ per uploading player, so the
// key hashes what every participant's replay agrees on: the battle
// start floored to five minutes (absorbing clock skew between
// clients), the map, the normalized game type, and the full player
// roster. Names are deduplicated and sorted, making the key
// insensitive to upload order and perspective.
//
// The key is SHA-1 hex over
// "flooredDateTime|mapId|gameType|name1|name2|...".
func MatchKey(dateTime, mapID, gameType string, playerNames []string) string {
	seen := make(map[string]bool, len(playerNames))
	names := make([]string, 0, len(playerNames))
	for _, n := range playerNames {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, 3+len(names))
	parts = append(parts, floorTo5Min(dateTime), mapID, gameType)
	parts = append(parts, names...)

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// MatchKeyFor recomputes the grouping key from a persisted record's
// own fields. Backfill uses it to repair records written before the
// key existed, and duplicate flagging uses it to spot the same match
// stored under diverging arena ids.
func MatchKeyFor(m *models.MatchRecord) string {
	names := make([]string, 0, len(m.Allies)+len(m.Enemies))
	for _, e := range m.Allies {
		names = append(names, e.Name)
	}
	for _, e := range m.Enemies {
		names = append(names, e.Name)
	}
	return MatchKey(m.DateTime, m.MapID, m.GameType, names)
}

// TempUploadKey keys a replay blob at upload acceptance, before decode
// has produced an arena id. The inputs come straight from the metadata
// block, which is readable without decryption, so the key is stable if
// the same file is submitted twice.
func TempUploadKey(dateTime string, playerID int64, mapName string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", dateTime, playerID, mapName)))
	return hex.EncodeToString(sum[:])[:16]
}
