// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package assemble

import (
	"strings"

	"github.com/tomtom215/navarchus/internal/models"
)

// gameTypeBuckets folds the raw game types the client writes into the
// four logical tables. Keys are lowercase; anything unlisted lands in
// the other bucket.
var gameTypeBuckets = map[string]string{
	"clan":        models.GameTypeClan,
	"ranked":      models.GameTypeRanked,
	"pvp":         models.GameTypeRandom,
	"pve":         models.GameTypeOther,
	"cooperative": models.GameTypeOther,
	"event":       models.GameTypeOther,
}

// NormalizeGameType maps a raw replay game type onto one of the
// models.GameType constants. The result decides which logical table a
// match is written to, so it must be stable across releases even as
// the client invents new raw values.
func NormalizeGameType(raw string) string {
	if bucket, ok := gameTypeBuckets[strings.ToLower(raw)]; ok {
		return bucket
	}
	return models.GameTypeOther
}
