// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package stats

import (
	"errors"
	"fmt"
)

// ErrIndexMissing reports a client version the replay decoder accepts
// but the stats registry has no slot table for. Handled like an
// unsupported version: the replay cannot be parsed until a reviewed
// table is added.
var ErrIndexMissing = errors.New("stats: no slot table for client version")

// undeclared marks a field a release does not export. Reads from an
// undeclared slot yield the zero value.
const undeclared = -1

// The slot types pair a position in a playersPublicInfo row with the
// decoder applied to the raw cell; the type is the decoder. intSlot
// coerces numeric cells to integers (floats truncate), floatSlot keeps
// the fraction, strSlot reads strings with "" for null or non-string
// cells.
type (
	intSlot   int
	floatSlot int
	strSlot   int
)

func (s intSlot) from(row []interface{}) int { return int(s.from64(row)) }

// from64 reads at full width for account and clan ids.
func (s intSlot) from64(row []interface{}) int64 {
	if s < 0 || int(s) >= len(row) {
		return 0
	}
	switch v := row[s].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func (s floatSlot) from(row []interface{}) float64 {
	if s < 0 || int(s) >= len(row) {
		return 0
	}
	switch v := row[s].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (s strSlot) from(row []interface{}) string {
	if s < 0 || int(s) >= len(row) {
		return ""
	}
	str, _ := row[s].(string)
	return str
}

// slotTable is the reviewed index configuration for one client
// release. Every named field reads from a fixed position in the
// per-player array; positions are validated against a known-good
// export of that release before the table is registered. There is no
// total-hits field: slot 68 doubled as a legacy "hits" alias in old
// exports but only counts main battery HE, so the breakdown slots are
// the canonical ones.
type slotTable struct {
	// minLen is the shortest per-player array the release produces.
	// Shorter rows are malformed and the player is skipped.
	minLen int

	playerID    intSlot
	playerName  strSlot
	accountDBID intSlot
	clanTag     strSlot
	clanID      intSlot
	realm       strSlot

	survivalTime    intSlot
	survivalPercent floatSlot

	kills    intSlot
	citadels intSlot
	crits    intSlot
	fires    intSlot
	floods   intSlot

	hitsAP          intSlot
	hitsHE          intSlot
	hitsSecondaries intSlot

	damage              intSlot
	damageAP            intSlot
	damageHE            intSlot
	damageHESecondaries intSlot
	damageTorps         intSlot
	damageDeepWater     intSlot
	damageFire          intSlot
	damageFlooding      intSlot
	damageOther         intSlot

	receivedDamage  intSlot
	spottingDamage  intSlot
	potentialDamage intSlot

	baseXP intSlot
}

// v1411Table is validated against 14.11.0 exports.
var v1411Table = slotTable{
	minLen: 430,

	playerID:    0,
	playerName:  1,
	accountDBID: 2,
	clanTag:     3,
	clanID:      4,
	realm:       9,

	survivalTime:    22,
	survivalPercent: 23,

	kills:    32,
	citadels: 69,
	crits:    76,
	fires:    86,
	floods:   75,

	hitsAP:          66,
	hitsHE:          68, // main battery HE only
	hitsSecondaries: 71,

	damage:              429, // authoritative server total, not the breakdown sum
	damageAP:            157,
	damageHE:            159,
	damageHESecondaries: 162,
	damageTorps:         166,
	damageDeepWater:     167,
	damageFire:          179,
	damageFlooding:      180,
	damageOther:         178, // residual sources without a slot of their own

	receivedDamage:  204,
	spottingDamage:  415,
	potentialDamage: 419, // float in the payload, truncated

	baseXP: 406,
}

// v1410Table matches 14.11.0 except for the citadel and crit counters,
// which the 14.10 client did not export.
var v1410Table slotTable

func init() {
	v1410Table = v1411Table
	v1410Table.citadels = undeclared
	v1410Table.crits = undeclared
}

// statsTables keys slot tables by normalized client version. The set
// must stay in step with the decoder's version registry: a version the
// decoder accepts but this map misses fails with ErrIndexMissing.
var statsTables = map[string]*slotTable{
	"14.10.0": &v1410Table,
	"14.11.0": &v1411Table,
}

// tableFor returns the slot table for a normalized client version as
// produced by the replay decoder, for example "14.11.0".
func tableFor(version string) (*slotTable, error) {
	t, ok := statsTables[version]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrIndexMissing, version)
	}
	return t, nil
}
