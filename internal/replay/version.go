// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseClientVersion normalizes a metadata version string into registry
// form. The client writes "14,11,0,9643345" (sometimes with spaces);
// the registry keys on the first three fields joined with dots.
func ParseClientVersion(raw string) (string, error) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	parts := strings.Split(cleaned, ",")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: unparseable version %q", ErrUnsupportedVersion, raw)
	}
	for _, p := range parts[:3] {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("%w: unparseable version %q", ErrUnsupportedVersion, raw)
		}
	}
	return parts[0] + "." + parts[1] + "." + parts[2], nil
}

// packetIDs is the packet-type catalogue for one client version. Only a
// subset is consumed today; the rest are catalogued so the accumulator
// can skip them by name instead of by magic number.
type packetIDs struct {
	BasePlayerCreate uint32
	CellPlayerCreate uint32
	EntityControl    uint32
	EntityEnter      uint32
	EntityLeave      uint32
	EntityCreate     uint32
	EntityProperty   uint32
	EntityMethod     uint32
	Position         uint32
	NestedProperty   uint32
	Camera           uint32
	Map              uint32
	PlayerPosition   uint32
	CruiseState      uint32

	// BattleStats is the client-appended terminal packet carrying the
	// pickled server results.
	BattleStats uint32
}

// methodIDs holds the Avatar entity-method ordinals the decoder
// dispatches on. Ordinals follow the client's entity definition order
// and must be re-derived for every supported release.
type methodIDs struct {
	OnArenaStateReceived uint32
	OnBattleEnd          uint32
	OnCrewsInfoReceived  uint32
	ReceiveDamageStat    uint32
}

// versionSpec binds one supported client version to its wire catalogue.
type versionSpec struct {
	version     string
	packets     packetIDs
	methods     methodIDs
	playerProps []string
}

// The 14.10 and 14.11 clients shipped identical wire catalogues; they
// share tables until a release changes them.
var (
	v14Packets = packetIDs{
		BasePlayerCreate: 0x00,
		CellPlayerCreate: 0x01,
		EntityControl:    0x02,
		EntityEnter:      0x03,
		EntityLeave:      0x04,
		EntityCreate:     0x05,
		EntityProperty:   0x07,
		EntityMethod:     0x08,
		Position:         0x0A,
		NestedProperty:   0x22,
		Camera:           0x23,
		Map:              0x27,
		PlayerPosition:   0x2B,
		CruiseState:      0x31,
		BattleStats:      0xFF,
	}

	v14Methods = methodIDs{
		OnArenaStateReceived: 26,
		OnBattleEnd:          41,
		OnCrewsInfoReceived:  58,
		ReceiveDamageStat:    153,
	}
)

// v14PlayerProps is the player-state property table for the 14.x
// clients: playersStates entries are (ordinal, value) pairs and this
// table names each ordinal. Order matters; do not sort.
var v14PlayerProps = []string{
	"accountDBID",
	"antiAbuseEnabled",
	"avatarId",
	"camouflageInfo",
	"clanColor",
	"clanID",
	"clanTag",
	"crewParams",
	"dogTag",
	"fragsCount",
	"friendlyFireEnabled",
	"id",
	"invitationsEnabled",
	"isAbuser",
	"isAlive",
	"isBot",
	"isClientLoaded",
	"isConnected",
	"isHidden",
	"isLeaver",
	"isPreBattleOwner",
	"isTShooter",
	"killedBuildingsCount",
	"maxHealth",
	"name",
	"playerMode",
	"preBattleIdOnStart",
	"preBattleSign",
	"prebattleId",
	"realm",
	"shipComponents",
	"shipConfigDump",
	"shipId",
	"shipParamsId",
	"skinId",
	"teamId",
	"ttkStatus",
}

// registry is the closed set of supported client versions. Adding a
// release means adding an entry here plus a slot table in the stats
// package.
var registry = map[string]*versionSpec{
	"14.10.0": {
		version:     "14.10.0",
		packets:     v14Packets,
		methods:     v14Methods,
		playerProps: v14PlayerProps,
	},
	"14.11.0": {
		version:     "14.11.0",
		packets:     v14Packets,
		methods:     v14Methods,
		playerProps: v14PlayerProps,
	},
}

// lookupVersion resolves a normalized version against the registry.
func lookupVersion(version string) (*versionSpec, error) {
	spec, ok := registry[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedVersion, version, strings.Join(SupportedVersions(), ", "))
	}
	return spec, nil
}

// SupportedVersions lists the registry's client versions in ascending
// order.
func SupportedVersions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
