// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"fmt"

	"github.com/tomtom215/navarchus/internal/logging"
)

// accumulator folds the packet stream into the decoder outputs. It is
// single-use and not safe for concurrent use; each Decode call builds
// its own.
type accumulator struct {
	spec   *versionSpec
	strict bool

	mapInfo     MapInfo
	ownAvatarID int64
	arenaID     int64
	battleStats *BattleStats
	hidden      HiddenState
	tracks      map[int64][]TrackPoint
	damage      []DamageStat
}

func newAccumulator(spec *versionSpec, strict bool) *accumulator {
	return &accumulator{
		spec:   spec,
		strict: strict,
		hidden: HiddenState{
			Players: make(map[int64]*PlayerState),
			Crew:    make(map[int64]*CrewState),
		},
		tracks: make(map[int64][]TrackPoint),
	}
}

// handle dispatches one frame. Packets outside the catalogue's consumed
// subset are skipped without cost.
func (a *accumulator) handle(p rawPacket) error {
	switch p.Type {
	case a.spec.packets.BasePlayerCreate:
		return a.onBasePlayerCreate(p)
	case a.spec.packets.Map:
		return a.onMap(p)
	case a.spec.packets.Position:
		return a.onPosition(p)
	case a.spec.packets.PlayerPosition:
		return a.onPlayerPosition(p)
	case a.spec.packets.EntityMethod:
		return a.onEntityMethod(p)
	case a.spec.packets.BattleStats:
		return a.onBattleStats(p)
	default:
		return nil
	}
}

// payloadErr applies the lenient/strict policy to a payload cut short
// inside a consumed packet.
func (a *accumulator) payloadErr(packet string) error {
	if a.strict {
		return fmt.Errorf("%w: %s payload cut short", ErrTruncatedStream, packet)
	}
	logging.Debug().
		Str("component", "replay").
		Str("packet", packet).
		Msg("Skipping packet with short payload")
	return nil
}

func (a *accumulator) onBasePlayerCreate(p rawPacket) error {
	r := newPayloadReader(p.Payload)
	entityID := r.i32()
	if r.Err() != nil {
		return a.payloadErr("base player create")
	}
	a.ownAvatarID = int64(entityID)
	return nil
}

func (a *accumulator) onMap(p rawPacket) error {
	r := newPayloadReader(p.Payload)
	spaceID := r.i32()
	arenaID := r.i64()
	r.u32()
	r.u32()
	name := r.string32()
	if r.Err() != nil {
		return a.payloadErr("map")
	}
	// The trailing camera matrix is not consumed.
	a.mapInfo = MapInfo{SpaceID: spaceID, ArenaID: arenaID, Name: name}
	return nil
}

func (a *accumulator) onPosition(p rawPacket) error {
	r := newPayloadReader(p.Payload)
	entityID := r.i32()
	r.i32() // carrier entity, set when the entity rides another
	x, _, z := r.vec3()
	r.vec3() // position error
	r.vec3() // yaw, pitch, roll
	if r.Err() != nil {
		return a.payloadErr("position")
	}
	a.appendTrack(int64(entityID), p.Clock, x, z)
	return nil
}

func (a *accumulator) onPlayerPosition(p rawPacket) error {
	r := newPayloadReader(p.Payload)
	primary := r.i32()
	secondary := r.i32()
	x, _, z := r.vec3()
	r.vec3() // yaw, pitch, roll
	if r.Err() != nil {
		return a.payloadErr("player position")
	}
	// When the secondary entity is set the position belongs to it (the
	// avatar is tethered to its vehicle).
	target := int64(primary)
	if secondary != 0 {
		target = int64(secondary)
	}
	a.appendTrack(target, p.Clock, x, z)
	return nil
}

func (a *accumulator) appendTrack(entityID int64, clock, x, z float32) {
	a.tracks[entityID] = append(a.tracks[entityID], TrackPoint{Clock: clock, X: x, Z: z})
}

// onEntityMethod dispatches the Avatar method ordinals in the version
// catalogue. The ordinals are chosen per release so they do not collide
// with other entity types' methods in the consumed subset.
func (a *accumulator) onEntityMethod(p rawPacket) error {
	r := newPayloadReader(p.Payload)
	r.i32() // entity id
	methodID := r.u32()
	dataSize := int(r.u32())
	if r.Err() != nil || dataSize < 0 {
		return a.payloadErr("entity method")
	}
	data := r.take(dataSize)
	if r.Err() != nil {
		return a.payloadErr("entity method")
	}

	switch methodID {
	case a.spec.methods.OnArenaStateReceived:
		return a.onArenaState(data)
	case a.spec.methods.OnBattleEnd:
		return a.onBattleEnd(data)
	case a.spec.methods.OnCrewsInfoReceived:
		return a.onCrewsInfo(data)
	case a.spec.methods.ReceiveDamageStat:
		return a.onDamageStat(data)
	default:
		return nil
	}
}

// onArenaState consumes the arena-state broadcast: the arena id, the
// team build type, and four blobs of which only the player table is
// used today.
func (a *accumulator) onArenaState(data []byte) error {
	r := newPayloadReader(data)
	arenaID := r.i64()
	r.i8()   // team build type
	r.blob() // pre-battles info
	playersBlob := r.blob()
	if r.Err() != nil {
		return a.payloadErr("arena state")
	}
	// Observer and building blobs trail behind and are not consumed.

	a.arenaID = arenaID

	players, err := decodePlayersStates(playersBlob, a.spec.playerProps)
	if err != nil {
		logging.Warn().
			Str("component", "replay").
			Err(err).
			Msg("Unusable player table in arena state broadcast")
		return nil
	}
	for id, state := range players {
		a.hidden.Players[id] = state
	}
	return nil
}

func (a *accumulator) onBattleEnd(data []byte) error {
	r := newPayloadReader(data)
	winner := r.i8()
	reason := r.u8()
	if r.Err() != nil {
		return a.payloadErr("battle end")
	}
	a.hidden.BattleResult = &BattleResult{
		WinnerTeamID: int(winner),
		FinishReason: int(reason),
	}
	return nil
}

func (a *accumulator) onCrewsInfo(data []byte) error {
	r := newPayloadReader(data)
	blob := r.blob()
	if r.Err() != nil {
		return a.payloadErr("crews info")
	}
	crews, err := decodeCrewsInfo(blob)
	if err != nil {
		logging.Warn().
			Str("component", "replay").
			Err(err).
			Msg("Unusable crews info broadcast")
		return nil
	}
	for id, crew := range crews {
		a.hidden.Crew[id] = crew
	}
	return nil
}

// onDamageStat keeps the latest table: the broadcast is cumulative, so
// the last one seen covers the whole battle so far.
func (a *accumulator) onDamageStat(data []byte) error {
	r := newPayloadReader(data)
	blob := r.blob()
	if r.Err() != nil {
		return a.payloadErr("damage stat")
	}
	stats, err := decodeDamageStats(blob)
	if err != nil {
		logging.Warn().
			Str("component", "replay").
			Err(err).
			Msg("Unusable damage stat broadcast")
		return nil
	}
	a.damage = stats
	return nil
}

// onBattleStats decodes the terminal results packet. In strict mode a
// packet that fails to unpickle is reported as ErrNoBattleStats since
// the replay yields no usable statistics.
func (a *accumulator) onBattleStats(p rawPacket) error {
	bs, err := decodeBattleStats(p.Payload)
	if err != nil {
		if a.strict {
			return fmt.Errorf("%w: %v", ErrNoBattleStats, err)
		}
		logging.Warn().
			Str("component", "replay").
			Err(err).
			Msg("Unusable battle stats packet")
		return nil
	}
	a.battleStats = bs
	return nil
}
