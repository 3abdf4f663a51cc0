// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"bytes"
	"testing"
)

func TestRevUnixTimeWidthAndOrder(t *testing.T) {
	tests := []struct {
		name     string
		unixTime int64
		want     string
	}{
		{"zero clamps to base", 0, "1099511627776"},
		{"negative clamps like zero", -5, "1099511627776"},
		{"typical battle time", 1767563815, "1097744063961"},
		{"beyond base clamps to zero", revTimeBase + 1, "0000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := revUnixTime(tt.unixTime)
			if got != tt.want {
				t.Errorf("revUnixTime(%d) = %q, want %q", tt.unixTime, got, tt.want)
			}
			if len(got) != 13 {
				t.Errorf("revUnixTime(%d) width = %d, want 13", tt.unixTime, len(got))
			}
		})
	}

	// Later battles must sort before earlier ones.
	older, newer := int64(1767560000), int64(1767563815)
	if !(revUnixTime(newer) < revUnixTime(older)) {
		t.Errorf("revUnixTime(%d) = %q does not sort before revUnixTime(%d) = %q",
			newer, revUnixTime(newer), older, revUnixTime(older))
	}
}

func TestKeyLayouts(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"match", keyMatch("clan", 7598531900001234), "battle:clan:7598531900001234:MATCH"},
		{"stats", keyStats("clan", 7598531900001234), "battle:clan:7598531900001234:STATS"},
		{"upload", keyUpload("clan", 7598531900001234, 611001), "battle:clan:7598531900001234:UPLOAD#611001"},
		{"upload prefix", keyUploadPrefix("clan", 7598531900001234), "battle:clan:7598531900001234:UPLOAD#"},
		{"listing", keyListing("clan", 1767563815, 7598531900001234), "listing:clan:1097744063961:7598531900001234"},
		{"map list", keyMapList("clan", "18_NE_ice_islands", 1767563815, 42), "maplist:clan:18_NE_ice_islands:1097744063961:42"},
		{"ship index", keyShipIdx("GEARING", "clan", 1767563815, 42), "idx:ship:GEARING:clan#1767563815#42"},
		{"player index", keyPlayerIdx("OZEKI_Flag", "clan", 1767563815, 42), "idx:player:OZEKI_Flag:clan#1767563815#42"},
		{"clan index", keyClanIdx("OZEKI", "clan", 1767563815, 42), "idx:clan:OZEKI:clan#1767563815#42"},
		{"ship index prefix narrowed", keyShipIdxPrefix("GEARING", "clan"), "idx:ship:GEARING:clan#"},
		{"ship index prefix open", keyShipIdxPrefix("GEARING", ""), "idx:ship:GEARING:"},
		{"marker", keyMarker("replays/a/b.wowsreplay"), "marker:decodefail:replays/a/b.wowsreplay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.got) != tt.want {
				t.Errorf("key = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestIndexSeekBounds(t *testing.T) {
	prefix := keyShipIdxPrefix("GEARING", "clan")

	open := indexSeek(prefix, 0)
	if !bytes.HasPrefix(open, prefix) || open[len(open)-1] != 0xFF {
		t.Errorf("open seek = %q, want prefix plus 0xFF", open)
	}

	bounded := indexSeek(prefix, 1767563815)
	if string(bounded) != "idx:ship:GEARING:clan#1767563815" {
		t.Errorf("bounded seek = %q, want the timestamp appended", bounded)
	}

	// A row at the bound timestamp sorts after the seek target, so a
	// reverse scan starting there excludes it.
	atBound := keyShipIdx("GEARING", "clan", 1767563815, 42)
	if !(string(bounded) < string(atBound)) {
		t.Errorf("seek %q does not sort before row %q", bounded, atBound)
	}
	below := keyShipIdx("GEARING", "clan", 1767563814, 42)
	if !(string(below) < string(bounded)) {
		t.Errorf("row %q does not sort before seek %q", below, bounded)
	}
}
