// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package stats maps the positional battle-statistics arrays of a
// decoded replay into named per-player records.
//
// The terminal packet of a completed replay carries playersPublicInfo,
// a table of roughly five hundred anonymous slots per player. Which
// slot holds which field is fixed per game client release, so the
// package keeps one reviewed slot table per supported version and
// reads every field through it. There is no reflection and no slot
// arithmetic outside the tables; adding a release means validating a
// new table against a known-good export and registering it.
//
// Beyond the raw slots the parser derives the fields the arrays do not
// carry: team sides relative to the uploader, ship names and classes
// from the gamedata snapshot, commander skills resolved by the class
// of the ship actually sailed, mounted upgrades from the ship
// configuration dump, and the uploader's win/loss outcome.
package stats
