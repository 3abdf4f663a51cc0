// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package gamedata provides lookup tables for World of Warships game
// entities referenced by replays: captain skills, ship upgrades
// (modernizations), and the ship encyclopedia.
//
// Tables are immutable once constructed and safe for concurrent use.
// Skill and upgrade display names are curated English translations
// keyed by the stable internal identifiers the game client writes into
// replays. The id-keyed modernization and ship tables are snapshots of
// the game's GameParams dump, refreshed when a new client version
// ships. Ids absent from a snapshot degrade to documented fallbacks
// instead of failing the pipeline.
package gamedata

import (
	"embed"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

//go:embed data/skills.json data/upgrades.json data/modernizations.json data/ships.json
var dataFS embed.FS

// Ship class names as they appear in GameParams species fields and as
// keys of crew learned_skills records.
const (
	ClassAirCarrier = "AirCarrier"
	ClassBattleship = "Battleship"
	ClassCruiser    = "Cruiser"
	ClassDestroyer  = "Destroyer"
	ClassAuxiliary  = "Auxiliary"
	ClassSubmarine  = "Submarine"
)

// shipClassByID maps the numeric class ids used in crew records to
// class names.
var shipClassByID = map[int]string{
	0: ClassAirCarrier,
	1: ClassBattleship,
	2: ClassCruiser,
	3: ClassDestroyer,
	4: ClassAuxiliary,
	5: ClassSubmarine,
}

// Modernization is one ship upgrade entry from the GameParams snapshot.
// Index is the stable PCM code (for example "PCM027") that display
// names and slot assignments key on.
type Modernization struct {
	ID    uint32 `json:"-"`
	Index string `json:"index"`
	Name  string `json:"name"`
}

// Ship is one encyclopedia entry from the GameParams snapshot. Species
// is the ship class name, one of the Class constants.
type Ship struct {
	ID      uint32 `json:"-"`
	Index   string `json:"index"`
	Name    string `json:"name"`
	Species string `json:"species"`
	Level   int    `json:"level"`
	Nation  string `json:"nation"`
}

// Tables holds every gamedata lookup table. Construct once with
// NewTables at process start and share the value.
type Tables struct {
	skills         map[string]string
	upgradeNames   map[string]string
	upgradeSlots   map[string]int
	modernizations map[uint32]Modernization
	ships          map[uint32]Ship
}

type skillsFile struct {
	Skills map[string]string `json:"skills"`
}

type upgradesFile struct {
	Names map[string]string `json:"names"`
	Slots map[string]int    `json:"slots"`
}

type modernizationsFile struct {
	Modernizations map[string]Modernization `json:"modernizations"`
}

type shipsFile struct {
	Ships map[string]Ship `json:"ships"`
}

// NewTables parses the embedded snapshots into lookup tables.
func NewTables() (*Tables, error) {
	var sf skillsFile
	if err := loadJSON("data/skills.json", &sf); err != nil {
		return nil, err
	}

	var uf upgradesFile
	if err := loadJSON("data/upgrades.json", &uf); err != nil {
		return nil, err
	}

	var mf modernizationsFile
	if err := loadJSON("data/modernizations.json", &mf); err != nil {
		return nil, err
	}

	var shf shipsFile
	if err := loadJSON("data/ships.json", &shf); err != nil {
		return nil, err
	}

	t := &Tables{
		skills:         sf.Skills,
		upgradeNames:   uf.Names,
		upgradeSlots:   uf.Slots,
		modernizations: make(map[uint32]Modernization, len(mf.Modernizations)),
		ships:          make(map[uint32]Ship, len(shf.Ships)),
	}

	for key, m := range mf.Modernizations {
		id, err := parseID(key)
		if err != nil {
			return nil, fmt.Errorf("gamedata: modernizations.json: %w", err)
		}
		m.ID = id
		t.modernizations[id] = m
	}

	for key, s := range shf.Ships {
		id, err := parseID(key)
		if err != nil {
			return nil, fmt.Errorf("gamedata: ships.json: %w", err)
		}
		s.ID = id
		t.ships[id] = s
	}

	return t, nil
}

func loadJSON(name string, v any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("gamedata: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("gamedata: parse %s: %w", name, err)
	}
	return nil
}

// parseID converts a JSON object key to a GameParams id. Snapshot keys
// are decimal because JSON object keys must be strings.
func parseID(key string) (uint32, error) {
	id, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad id key %q: %w", key, err)
	}
	return uint32(id), nil
}

// SkillDisplayName translates an internal captain skill name to its
// English display name. Unknown skills fall back to the internal name
// so skills added in newer client versions surface unmangled instead
// of disappearing.
func (t *Tables) SkillDisplayName(internal string) string {
	if display, ok := t.skills[internal]; ok {
		return display
	}
	return internal
}

// UpgradePCM resolves a modernization id from a ship configuration
// dump to its PCM index code.
func (t *Tables) UpgradePCM(id uint32) (string, bool) {
	m, ok := t.modernizations[id]
	if !ok {
		return "", false
	}
	return m.Index, true
}

// UpgradeName resolves a modernization id to its English display name.
// Ids missing from the snapshot report ok=false. Known ids without a
// curated translation fall back to their PCM index code so the upgrade
// still shows up in stats.
func (t *Tables) UpgradeName(id uint32) (string, bool) {
	m, ok := t.modernizations[id]
	if !ok {
		return "", false
	}
	if name, ok := t.upgradeNames[m.Index]; ok {
		return name, true
	}
	return m.Index, true
}

// UpgradeSlot reports which of the six upgrade slots a PCM index
// belongs to.
func (t *Tables) UpgradeSlot(pcm string) (int, bool) {
	slot, ok := t.upgradeSlots[pcm]
	return slot, ok
}

// ShipByID looks up a ship by its GameParams id.
func (t *Tables) ShipByID(id int64) (Ship, bool) {
	if id < 0 || id > int64(^uint32(0)) {
		return Ship{}, false
	}
	s, ok := t.ships[uint32(id)]
	return s, ok
}

// ShipName resolves a ship id to its display name, falling back to a
// placeholder that preserves the id for manual lookup.
func (t *Tables) ShipName(id int64) string {
	if s, ok := t.ShipByID(id); ok {
		return s.Name
	}
	return fmt.Sprintf("Unknown Ship (ID: %d)", id)
}

// ShipClass resolves a ship id to its class name. The empty string
// means the ship is not in the snapshot and the class is unknown;
// callers must not guess.
func (t *Tables) ShipClass(id int64) string {
	if s, ok := t.ShipByID(id); ok {
		return s.Species
	}
	return ""
}

// ShipClassName maps the numeric class id used in crew records to its
// class name.
func ShipClassName(id int) (string, bool) {
	name, ok := shipClassByID[id]
	return name, ok
}

// ShipCount reports the number of ships in the snapshot.
func (t *Tables) ShipCount() int { return len(t.ships) }

// ModernizationCount reports the number of modernizations in the
// snapshot.
func (t *Tables) ModernizationCount() int { return len(t.modernizations) }
