// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package assemble

import (
	"time"

	"github.com/tomtom215/navarchus/internal/models"
)

// clientTimeLayout is the wall-clock format the game client writes
// into replay metadata. The value is client-local with no zone marker;
// it is parsed as UTC everywhere so derived times stay comparable
// across records.
const clientTimeLayout = "02.01.2006 15:04:05"

// ParseClientTime parses a metadata dateTime string.
func ParseClientTime(dateTime string) (time.Time, error) {
	return time.Parse(clientTimeLayout, dateTime)
}

// SortableDateTime converts a metadata dateTime to the YYYYMMDDHHMMSS
// string used as a sort attribute. Empty or malformed input yields
// models.SortableZero so the record still sorts, at the bottom.
func SortableDateTime(dateTime string) string {
	t, err := ParseClientTime(dateTime)
	if err != nil {
		return models.SortableZero
	}
	return t.Format("20060102150405")
}

// UnixTime converts a metadata dateTime to epoch seconds. Empty or
// malformed input yields zero.
func UnixTime(dateTime string) int64 {
	t, err := ParseClientTime(dateTime)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// floorTo5Min floors a metadata dateTime to its five-minute boundary,
// keeping the client layout. Times already on a boundary are returned
// with only the seconds zeroed. Unparseable input passes through
// unchanged so the grouping key stays deterministic for it too.
func floorTo5Min(dateTime string) string {
	t, err := ParseClientTime(dateTime)
	if err != nil {
		return dateTime
	}
	return t.Truncate(5 * time.Minute).Format(clientTimeLayout)
}
