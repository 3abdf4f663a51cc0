// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// The game engine serializes its payloads with Python pickles
// (protocol 2). Everything crossing this boundary is converted to plain
// Go values so no other package sees unpickler types: integers widen to
// int64, byte strings become string, sequences become []interface{},
// and string-keyed dicts become map[string]interface{}.

// loadPickle decodes one pickled payload.
func loadPickle(data []byte) (interface{}, error) {
	v, err := pickle.Loads(string(data))
	if err != nil {
		return nil, fmt.Errorf("unpickle: %w", err)
	}
	return v, nil
}

// asInt64 coerces the numeric shapes the unpickler produces.
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case *big.Int:
		if n.IsInt64() {
			return n.Int64(), true
		}
	case float64:
		return int64(n), true
	}
	return 0, false
}

// asFloat64 coerces ints and floats alike; slot tables decide whether a
// float is meaningful or a serialization accident.
func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case *big.Int:
		if n.IsInt64() {
			return float64(n.Int64()), true
		}
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func asBytes(v interface{}) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}

func asBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int:
		return b != 0, true
	case int64:
		return b != 0, true
	}
	return false, false
}

// seq flattens pickled lists and tuples into a plain slice.
func seq(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case *types.List:
		return []interface{}(*s), true
	case *types.Tuple:
		return []interface{}(*s), true
	case []interface{}:
		return s, true
	}
	return nil, false
}

// eachDictEntry iterates a pickled dict in serialization order.
func eachDictEntry(v interface{}, fn func(key, value interface{}) error) error {
	d, ok := v.(*types.Dict)
	if !ok {
		return fmt.Errorf("expected dict, got %T", v)
	}
	for _, entry := range *d {
		if err := fn(entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// dictGet finds a string-keyed entry. Python 2 pickles may carry keys
// as byte strings, so matching goes through asString.
func dictGet(v interface{}, key string) (interface{}, bool) {
	d, ok := v.(*types.Dict)
	if !ok {
		return nil, false
	}
	for _, entry := range *d {
		if k, ok := asString(entry.Key); ok && k == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// toGoValue rewrites one unpickled value into plain Go types,
// recursively. Dict keys that are not strings are rendered with their
// decimal form so the result stays JSON-encodable.
func toGoValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t
	case int:
		return int64(t)
	case int64:
		return t
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case *big.Int:
		if t.IsInt64() {
			return t.Int64()
		}
		return t.String()
	case []byte:
		return string(t)
	case *types.List, *types.Tuple, []interface{}:
		items, _ := seq(t)
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = toGoValue(item)
		}
		return out
	case *types.Dict:
		out := make(map[string]interface{}, t.Len())
		for _, entry := range *t {
			out[dictKeyString(entry.Key)] = toGoValue(entry.Value)
		}
		return out
	default:
		return fmt.Sprintf("%v", t)
	}
}

func dictKeyString(key interface{}) string {
	if s, ok := asString(key); ok {
		return s
	}
	if n, ok := asInt64(key); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%v", key)
}

// decodeBattleStats converts the terminal packet's pickled serverData
// into the typed result payload.
func decodeBattleStats(data []byte) (*BattleStats, error) {
	root, err := loadPickle(data)
	if err != nil {
		return nil, fmt.Errorf("battle stats: %w", err)
	}

	bs := &BattleStats{
		PlayersPublicInfo: make(map[int64][]interface{}),
	}

	if v, ok := dictGet(root, "arenaUniqueID"); ok {
		bs.ArenaUniqueID, _ = asInt64(v)
	}

	if v, ok := dictGet(root, "playersPublicInfo"); ok {
		err := eachDictEntry(v, func(key, value interface{}) error {
			playerID, ok := asInt64(key)
			if !ok {
				return fmt.Errorf("players public info keyed by %T", key)
			}
			slots, ok := seq(value)
			if !ok {
				return fmt.Errorf("player %d slots are %T, not a sequence", playerID, value)
			}
			converted := make([]interface{}, len(slots))
			for i, slot := range slots {
				converted[i] = toGoValue(slot)
			}
			bs.PlayersPublicInfo[playerID] = converted
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("battle stats: %w", err)
		}
	}

	if v, ok := dictGet(root, "privateDataList"); ok {
		if items, ok := seq(v); ok {
			bs.PrivateDataList = make([]interface{}, len(items))
			for i, item := range items {
				bs.PrivateDataList[i] = toGoValue(item)
			}
		}
	}

	return bs, nil
}

// decodePlayersStates converts the arena-state player table. Entries
// are sequences of (property ordinal, value) pairs; props names each
// ordinal for the decoding version. Unknown ordinals are dropped.
func decodePlayersStates(data []byte, props []string) (map[int64]*PlayerState, error) {
	root, err := loadPickle(data)
	if err != nil {
		return nil, fmt.Errorf("players states: %w", err)
	}
	entries, ok := seq(root)
	if !ok {
		return nil, fmt.Errorf("players states: root is %T, not a sequence", root)
	}

	out := make(map[int64]*PlayerState, len(entries))
	for _, entry := range entries {
		pairs, ok := seq(entry)
		if !ok {
			continue
		}
		state := &PlayerState{}
		for _, pair := range pairs {
			kv, ok := seq(pair)
			if !ok || len(kv) < 2 {
				continue
			}
			ord, ok := asInt64(kv[0])
			if !ok || ord < 0 || ord >= int64(len(props)) {
				continue
			}
			applyPlayerProp(state, props[ord], kv[1])
		}
		if state.ID == 0 {
			// Some broadcasts only carry the avatar id.
			state.ID = state.AvatarID
		}
		if state.ID != 0 {
			out[state.ID] = state
		}
	}
	return out, nil
}

func applyPlayerProp(state *PlayerState, name string, v interface{}) {
	switch name {
	case "id":
		state.ID, _ = asInt64(v)
	case "avatarId":
		state.AvatarID, _ = asInt64(v)
	case "accountDBID":
		state.AccountDBID, _ = asInt64(v)
	case "name":
		state.Name, _ = asString(v)
	case "clanTag":
		state.ClanTag, _ = asString(v)
	case "clanID":
		state.ClanID, _ = asInt64(v)
	case "realm":
		state.Realm, _ = asString(v)
	case "teamId":
		if n, ok := asInt64(v); ok {
			state.TeamID = int(n)
		}
	case "maxHealth":
		if n, ok := asInt64(v); ok {
			state.MaxHealth = int(n)
		}
	case "isBot":
		state.IsBot, _ = asBool(v)
	case "shipId":
		state.ShipEntityID, _ = asInt64(v)
	case "shipParamsId":
		state.ShipParamsID, _ = asInt64(v)
	case "crewParams":
		items, ok := seq(v)
		if !ok {
			return
		}
		for _, item := range items {
			if n, ok := asInt64(item); ok {
				state.CrewParams = append(state.CrewParams, n)
			}
		}
	case "shipComponents":
		d, ok := v.(*types.Dict)
		if !ok {
			return
		}
		state.ShipComponents = make(map[string]string, d.Len())
		for _, entry := range *d {
			k, kok := asString(entry.Key)
			val, vok := asString(entry.Value)
			if kok && vok {
				state.ShipComponents[k] = val
			}
		}
	case "shipConfigDump":
		state.ShipConfigDump, _ = asBytes(v)
	}
}

// decodeCrewsInfo converts the crew broadcast: a dict of broadcast id
// to {crew_id, learned_skills} where learned skills are keyed by hull
// class name.
func decodeCrewsInfo(data []byte) (map[int64]*CrewState, error) {
	root, err := loadPickle(data)
	if err != nil {
		return nil, fmt.Errorf("crews info: %w", err)
	}

	out := make(map[int64]*CrewState)
	err = eachDictEntry(root, func(key, value interface{}) error {
		id, ok := asInt64(key)
		if !ok {
			return nil
		}
		cs := &CrewState{LearnedSkills: make(map[string][]string)}
		if v, ok := dictGet(value, "crew_id"); ok {
			cs.CrewID, _ = asInt64(v)
		}
		if v, ok := dictGet(value, "learned_skills"); ok {
			_ = eachDictEntry(v, func(classKey, skillsVal interface{}) error {
				class, ok := asString(classKey)
				if !ok {
					return nil
				}
				skills, ok := seq(skillsVal)
				if !ok {
					return nil
				}
				names := make([]string, 0, len(skills))
				for _, s := range skills {
					if name, ok := asString(s); ok {
						names = append(names, name)
					}
				}
				cs.LearnedSkills[class] = names
				return nil
			})
		}
		out[id] = cs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crews info: %w", err)
	}
	return out, nil
}

// decodeDamageStats converts one damage-stat broadcast: a dict keyed by
// (kind, source) tuples with [hits, damage] values, kept in
// serialization order.
func decodeDamageStats(data []byte) ([]DamageStat, error) {
	root, err := loadPickle(data)
	if err != nil {
		return nil, fmt.Errorf("damage stats: %w", err)
	}

	var out []DamageStat
	err = eachDictEntry(root, func(key, value interface{}) error {
		kv, ok := seq(key)
		if !ok || len(kv) < 2 {
			return nil
		}
		hd, ok := seq(value)
		if !ok || len(hd) < 2 {
			return nil
		}
		var ds DamageStat
		ds.Kind, _ = asInt64(kv[0])
		ds.Source, _ = asInt64(kv[1])
		ds.Hits, _ = asInt64(hd[0])
		ds.Damage, _ = asFloat64(hd[1])
		out = append(out, ds)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("damage stats: %w", err)
	}
	return out, nil
}
