// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package render

import (
	"fmt"
	"sort"

	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
)

// Track is one ship's minimap path, tied back to the player sailing it.
// Team is relative to the recording player, matching the roster records.
type Track struct {
	PlayerID int64
	Name     string
	ClanTag  string
	Team     string
	IsOwn    bool
	Points   []replay.TrackPoint
}

// ExtractTracks maps the decoder's entity-keyed position samples onto
// players. A player's samples can arrive under both the vehicle entity
// and the avatar id, so they merge into one track per player. Samples
// keyed by an id no player owns are dropped; ships without any samples
// (never spotted) are omitted. Tracks come back in draw order: enemies
// first, own ship last so it paints on top.
func ExtractTracks(d *replay.DecodedReplay) ([]Track, error) {
	owners := trackOwners(d)

	byPlayer := make(map[int64]*Track)
	for entityID, points := range d.Tracks {
		owner, ok := owners[entityID]
		if !ok || len(points) == 0 {
			continue
		}
		t, ok := byPlayer[owner.PlayerID]
		if !ok {
			merged := owner
			byPlayer[owner.PlayerID] = &merged
			t = &merged
		}
		t.Points = append(t.Points, points...)
	}

	tracks := make([]Track, 0, len(byPlayer))
	for _, t := range byPlayer {
		sort.SliceStable(t.Points, func(i, j int) bool { return t.Points[i].Clock < t.Points[j].Clock })
		tracks = append(tracks, *t)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: replay carries no position tracks", ErrRenderFailure)
	}

	rank := func(t Track) int {
		switch {
		case t.IsOwn:
			return 2
		case t.Team == models.TeamAlly:
			return 1
		default:
			return 0
		}
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		if rank(tracks[i]) != rank(tracks[j]) {
			return rank(tracks[i]) < rank(tracks[j])
		}
		return tracks[i].PlayerID < tracks[j].PlayerID
	})
	return tracks, nil
}

// trackOwners indexes roster identities by every entity id their samples
// can arrive under: the vehicle entity and the avatar. The hidden player
// table is authoritative; the metadata roster fills in when a replay
// ended before the arena state broadcast.
func trackOwners(d *replay.DecodedReplay) map[int64]Track {
	owners := make(map[int64]Track)

	ownTeam := -1
	for _, ps := range d.Hidden.Players {
		if ps.AvatarID == d.OwnAvatarID {
			ownTeam = ps.TeamID
			break
		}
	}

	for _, ps := range d.Hidden.Players {
		team := models.TeamEnemy
		if ps.TeamID == ownTeam {
			team = models.TeamAlly
		}
		t := Track{
			PlayerID: ps.ID,
			Name:     ps.Name,
			ClanTag:  ps.ClanTag,
			Team:     team,
			IsOwn:    ps.AvatarID == d.OwnAvatarID,
		}
		if ps.ShipEntityID != 0 {
			owners[ps.ShipEntityID] = t
		}
		if ps.AvatarID != 0 {
			owners[ps.AvatarID] = t
		}
	}
	if len(owners) > 0 {
		return owners
	}

	for _, v := range d.Metadata.Vehicles {
		team := models.TeamEnemy
		if v.Relation <= replay.RelationAlly {
			team = models.TeamAlly
		}
		owners[v.ID] = Track{
			PlayerID: v.ID,
			Name:     v.Name,
			Team:     team,
			IsOwn:    v.Relation == replay.RelationSelf,
		}
	}
	return owners
}

// projection maps centered world coordinates onto a square pane. World
// origin is the map center and +z points north, so the z axis flips to
// screen y.
type projection struct {
	halfExtent float64
	size       float64
	margin     float64
}

// paneMargin keeps dots at the map edge from clipping the pane border.
const paneMargin = 6.0

func newProjection(tracks []Track, sizePx int) projection {
	maxAbs := 0.0
	for _, t := range tracks {
		for _, p := range t.Points {
			if v := abs64(float64(p.X)); v > maxAbs {
				maxAbs = v
			}
			if v := abs64(float64(p.Z)); v > maxAbs {
				maxAbs = v
			}
		}
	}
	if maxAbs < 1 {
		maxAbs = 1
	}
	// Small headroom so edge positions stay inside the drawable area.
	return projection{halfExtent: maxAbs * 1.02, size: float64(sizePx), margin: paneMargin}
}

func (p projection) toScreen(x, z float32) (float64, float64) {
	drawable := p.size - 2*p.margin
	sx := (float64(x)/p.halfExtent + 1) / 2 * drawable
	sy := (1 - float64(z)/p.halfExtent) / 2 * drawable
	return sx + p.margin, sy + p.margin
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
