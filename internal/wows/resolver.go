// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package wows

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/navarchus/internal/gamedata"
	"github.com/tomtom215/navarchus/internal/logging"
)

// Resolver answers ship and clan questions for the pipeline, layering
// the embedded gamedata snapshot over the optional encyclopedia API.
//
// Resolution order for ship names: gamedata snapshot first (offline,
// covers common ships), then the API when configured, then the
// "Unknown Ship (ID: x)" placeholder. Ship classes come only from the
// snapshot: the class drives captain skill selection and an API
// round-trip must never decide it. Clan tags come only from the API;
// without one the tag stays empty.
type Resolver struct {
	tables *gamedata.Tables
	enc    Encyclopedia
}

// NewResolver builds a resolver. enc may be nil when the encyclopedia
// API is disabled; lookups then use only the embedded snapshot.
func NewResolver(tables *gamedata.Tables, enc Encyclopedia) *Resolver {
	return &Resolver{tables: tables, enc: enc}
}

// ShipName resolves a ship id to a display name. Never fails: unknown
// ids produce a placeholder that preserves the id.
func (r *Resolver) ShipName(ctx context.Context, shipID int64) string {
	if ship, ok := r.tables.ShipByID(shipID); ok {
		return ship.Name
	}

	if r.enc != nil {
		name, err := r.enc.ShipName(ctx, shipID)
		if err == nil {
			return name
		}
		if !errors.Is(err, ErrNotFound) {
			logging.Warn().Err(err).Int64("ship_id", shipID).Msg("Encyclopedia ship lookup failed")
		}
	}

	return fmt.Sprintf("Unknown Ship (ID: %d)", shipID)
}

// ShipClass resolves a ship id to its class name from the embedded
// snapshot. The empty string means unknown; callers must treat the
// class as undetermined rather than assume one.
func (r *Resolver) ShipClass(shipID int64) string {
	return r.tables.ShipClass(shipID)
}

// ClanTag resolves a player nickname to their clan tag, or "" when the
// player has no clan, the API is disabled, or the lookup fails.
func (r *Resolver) ClanTag(ctx context.Context, nickname string) string {
	if r.enc == nil || nickname == "" {
		return ""
	}

	tag, err := r.enc.ClanTag(ctx, nickname)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Warn().Err(err).Str("player", nickname).Msg("Encyclopedia clan lookup failed")
		}
		return ""
	}
	return tag
}
