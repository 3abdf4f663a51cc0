// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package query

import (
	"strings"
	"time"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/models"
)

// SearchRequest is the POST /api/search body. Every field is optional;
// an empty request pages the full listing newest first.
type SearchRequest struct {
	GameType     string `json:"gameType,omitempty" validate:"omitempty,max=32"`
	MapID        string `json:"mapId,omitempty" validate:"omitempty,max=64"`
	AllyClanTag  string `json:"allyClanTag,omitempty" validate:"omitempty,max=8"`
	EnemyClanTag string `json:"enemyClanTag,omitempty" validate:"omitempty,max=8"`

	ShipName string `json:"shipName,omitempty" validate:"omitempty,max=64"`
	// ShipTeam narrows a ship search to one side of the uploader's
	// perspective. Empty matches either side.
	ShipTeam string `json:"shipTeam,omitempty" validate:"omitempty,oneof=ally enemy"`
	// ShipMinCount requires at least this many of the ship in the
	// match (on the side ShipTeam selects). Zero means one.
	ShipMinCount int `json:"shipMinCount,omitempty" validate:"omitempty,min=1,max=12"`

	PlayerName string `json:"playerName,omitempty" validate:"omitempty,max=32"`
	WinLoss    string `json:"winLoss,omitempty" validate:"omitempty,oneof=win loss draw unknown"`

	// DateFrom and DateTo bound the match time, inclusive on both
	// ends, in the YYYYMMDDHHMMSS form the listing keys sort by.
	DateFrom string `json:"dateFrom,omitempty" validate:"omitempty,sortable14"`
	DateTo   string `json:"dateTo,omitempty" validate:"omitempty,sortable14"`

	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	// CursorUnixTime resumes a previous page: only matches strictly
	// older than this timestamp are returned.
	CursorUnixTime int64 `json:"cursorUnixTime,omitempty" validate:"omitempty,min=0"`
}

// Search plans, named by the index that serves the scan.
const (
	planShip    = "ship"
	planPlayer  = "player"
	planClan    = "clan"
	planListing = "listing"
)

// normalize folds the free-form fields into their stored forms so the
// exact-match index lookups can hit.
func (r *SearchRequest) normalize() {
	if r.GameType != "" {
		r.GameType = assemble.NormalizeGameType(r.GameType)
	}
	r.MapID = strings.TrimSpace(r.MapID)
	r.AllyClanTag = strings.TrimSpace(r.AllyClanTag)
	r.EnemyClanTag = strings.TrimSpace(r.EnemyClanTag)
	r.ShipName = NormalizeShipName(r.ShipName)
	r.PlayerName = strings.TrimSpace(r.PlayerName)
}

// plan picks the most selective index for the filters present. Ship
// beats player beats clan; anything else walks the listing.
func (r *SearchRequest) plan() string {
	switch {
	case r.ShipName != "":
		return planShip
	case r.PlayerName != "":
		return planPlayer
	case r.AllyClanTag != "" || r.EnemyClanTag != "":
		return planClan
	default:
		return planListing
	}
}

// sortableLayout parses the DateFrom/DateTo filter form.
const sortableLayout = "20060102150405"

// beforeUnix is the exclusive upper scan bound: the cursor, tightened
// by DateTo when that is earlier. Zero means scan from the newest row.
func (r *SearchRequest) beforeUnix() int64 {
	bound := r.CursorUnixTime
	if r.DateTo != "" {
		if t, err := time.Parse(sortableLayout, r.DateTo); err == nil {
			// DateTo is inclusive; the scan bound is exclusive.
			to := t.Unix() + 1
			if bound == 0 || to < bound {
				bound = to
			}
		}
	}
	return bound
}

// fromUnix is the inclusive lower bound, zero when DateFrom is unset.
// Scans run newest first, so the first row below this value ends the
// walk.
func (r *SearchRequest) fromUnix() int64 {
	if r.DateFrom == "" {
		return 0
	}
	t, err := time.Parse(sortableLayout, r.DateFrom)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// shipRowMatches applies the team and count filters to a ship index
// row, before the match record is ever loaded.
func (r *SearchRequest) shipRowMatches(row models.ShipIndexRow) bool {
	min := r.ShipMinCount
	if min < 1 {
		min = 1
	}
	switch r.ShipTeam {
	case "ally":
		return row.AllyCount >= min
	case "enemy":
		return row.EnemyCount >= min
	default:
		return row.TotalCount >= min
	}
}

// matchPredicates applies every filter the chosen index did not
// already satisfy. plan tells which dimension the scan resolved, so
// its filter is skipped here.
func (r *SearchRequest) matchPredicates(plan string, m *models.MatchRecord) bool {
	if r.MapID != "" && m.MapID != r.MapID {
		return false
	}
	if r.WinLoss != "" && m.WinLoss != r.WinLoss {
		return false
	}
	if r.AllyClanTag != "" && m.AllyMainClanTag != r.AllyClanTag {
		return false
	}
	if r.EnemyClanTag != "" && m.EnemyMainClanTag != r.EnemyClanTag {
		return false
	}
	if r.PlayerName != "" && plan != planPlayer && !rosterHasPlayer(m, r.PlayerName) {
		return false
	}
	return true
}

func rosterHasPlayer(m *models.MatchRecord, name string) bool {
	for _, e := range m.Allies {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	for _, e := range m.Enemies {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}
