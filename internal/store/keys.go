// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"fmt"
)

// Key layout. One store, logical tables by prefix:
//
//	battle:{gameType}:{arenaID}:MATCH
//	battle:{gameType}:{arenaID}:STATS
//	battle:{gameType}:{arenaID}:UPLOAD#{playerID}
//	listing:{gameType}:{revUnixTime}:{arenaID}
//	maplist:{gameType}:{mapId}:{revUnixTime}:{arenaID}
//	idx:ship:{SHIPNAME}:{gameType}#{unixTime}#{arenaID}
//	idx:player:{name}:{gameType}#{unixTime}#{arenaID}
//	idx:clan:{tag}:{gameType}#{unixTime}#{arenaID}
//	marker:decodefail:{uploadKey}
//
// Listing and map rows embed the inverted unix time so Badger's
// ascending key order yields newest-first pages without a reverse
// iterator. Reverse-index rows keep the plain gameType#unixTime#arenaID
// sort key and are scanned in reverse.
const (
	battlePrefix    = "battle:"
	listingPrefix   = "listing:"
	mapListPrefix   = "maplist:"
	shipIdxPrefix   = "idx:ship:"
	playerIdxPrefix = "idx:player:"
	clanIdxPrefix   = "idx:clan:"
	markerPrefix    = "marker:decodefail:"

	matchSuffix  = ":MATCH"
	statsSuffix  = ":STATS"
	uploadSuffix = ":UPLOAD#"
)

// revTimeBase bounds the inverted timestamp. 2^40 seconds runs out in
// the year 36812; until then revUnixTime is a fixed 13 digits wide.
const revTimeBase = int64(1) << 40

// revUnixTime inverts a unix time into a fixed-width decimal so that
// lexicographically ascending keys run newest first. Out-of-range
// inputs clamp instead of corrupting the key order.
func revUnixTime(unixTime int64) string {
	if unixTime < 0 {
		unixTime = 0
	}
	if unixTime > revTimeBase {
		unixTime = revTimeBase
	}
	return fmt.Sprintf("%013d", revTimeBase-unixTime)
}

func keyMatch(gameType string, arenaID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d%s", battlePrefix, gameType, arenaID, matchSuffix))
}

func keyStats(gameType string, arenaID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d%s", battlePrefix, gameType, arenaID, statsSuffix))
}

func keyUpload(gameType string, arenaID, playerID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d%s%d", battlePrefix, gameType, arenaID, uploadSuffix, playerID))
}

// keyUploadPrefix scans all upload rows of one match.
func keyUploadPrefix(gameType string, arenaID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d%s", battlePrefix, gameType, arenaID, uploadSuffix))
}

func keyListing(gameType string, unixTime, arenaID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%d", listingPrefix, gameType, revUnixTime(unixTime), arenaID))
}

// keyListingPrefix scans one game type's listing, newest first.
func keyListingPrefix(gameType string) []byte {
	return []byte(listingPrefix + gameType + ":")
}

func keyMapList(gameType, mapID string, unixTime, arenaID int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s:%d", mapListPrefix, gameType, mapID, revUnixTime(unixTime), arenaID))
}

func keyMapListPrefix(gameType, mapID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", mapListPrefix, gameType, mapID))
}

// indexSortKey is the shared tail of every reverse-index key.
func indexSortKey(gameType string, unixTime, arenaID int64) string {
	return fmt.Sprintf("%s#%d#%d", gameType, unixTime, arenaID)
}

func keyShipIdx(shipName, gameType string, unixTime, arenaID int64) []byte {
	return []byte(shipIdxPrefix + shipName + ":" + indexSortKey(gameType, unixTime, arenaID))
}

func keyPlayerIdx(playerName, gameType string, unixTime, arenaID int64) []byte {
	return []byte(playerIdxPrefix + playerName + ":" + indexSortKey(gameType, unixTime, arenaID))
}

func keyClanIdx(clanTag, gameType string, unixTime, arenaID int64) []byte {
	return []byte(clanIdxPrefix + clanTag + ":" + indexSortKey(gameType, unixTime, arenaID))
}

// Index prefix builders narrow a dimension-value scan to one game
// type when gameType is non-empty.
func keyShipIdxPrefix(shipName, gameType string) []byte {
	return indexPrefix(shipIdxPrefix, shipName, gameType)
}

func keyPlayerIdxPrefix(playerName, gameType string) []byte {
	return indexPrefix(playerIdxPrefix, playerName, gameType)
}

func keyClanIdxPrefix(clanTag, gameType string) []byte {
	return indexPrefix(clanIdxPrefix, clanTag, gameType)
}

func indexPrefix(table, value, gameType string) []byte {
	p := table + value + ":"
	if gameType != "" {
		p += gameType + "#"
	}
	return []byte(p)
}

func keyMarker(uploadKey string) []byte {
	return []byte(markerPrefix + uploadKey)
}
