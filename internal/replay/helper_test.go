// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blowfish"
)

// Synthetic battle cast. The recorder's player id doubles as the avatar
// entity id, matching what the client writes for human players.
const (
	testArenaID     = int64(7598531900001234)
	testAvatarID    = int64(537149649)
	testAllyID      = int64(537149650)
	testEnemyID     = int64(537149651)
	testShipEntity  = int64(837201)
	testCommanderID = int64(778899)
	testShipParams  = int64(3751786448)
)

// pklList, pklTuple, and pklDict describe Python values for
// buildPickle. pklDict is a pair slice so tests control entry order the
// way a serialized dict would.
type (
	pklList  []interface{}
	pklTuple []interface{}
	pklDict  []pklPair
)

type pklPair struct {
	key, value interface{}
}

// buildPickle serializes a test value as a protocol-2 pickle, the
// framing the game engine uses for its broadcast payloads.
func buildPickle(v interface{}) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x80, 2})
	pickleValue(&b, v)
	b.WriteByte('.')
	return b.Bytes()
}

func pickleValue(b *bytes.Buffer, v interface{}) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('N')
	case bool:
		if t {
			b.WriteByte(0x88)
		} else {
			b.WriteByte(0x89)
		}
	case int:
		pickleValue(b, int64(t))
	case int64:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			b.WriteByte('J')
			b.Write(le32(uint32(int32(t))))
			return
		}
		pickleLong1(b, t)
	case float64:
		b.WriteByte('G')
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], math.Float64bits(t))
		b.Write(raw[:])
	case string:
		b.WriteByte('X')
		b.Write(le32(uint32(len(t))))
		b.WriteString(t)
	case []byte:
		// Python 2 byte string, which is what the client emits for
		// opaque fields like shipConfigDump.
		b.WriteByte('T')
		b.Write(le32(uint32(len(t))))
		b.Write(t)
	case pklList:
		b.WriteByte(']')
		if len(t) == 0 {
			return
		}
		b.WriteByte('(')
		for _, item := range t {
			pickleValue(b, item)
		}
		b.WriteByte('e')
	case pklTuple:
		switch len(t) {
		case 0:
			b.WriteByte(')')
		case 1:
			pickleValue(b, t[0])
			b.WriteByte(0x85)
		case 2:
			pickleValue(b, t[0])
			pickleValue(b, t[1])
			b.WriteByte(0x86)
		case 3:
			pickleValue(b, t[0])
			pickleValue(b, t[1])
			pickleValue(b, t[2])
			b.WriteByte(0x87)
		default:
			b.WriteByte('(')
			for _, item := range t {
				pickleValue(b, item)
			}
			b.WriteByte('t')
		}
	case pklDict:
		b.WriteByte('}')
		if len(t) == 0 {
			return
		}
		b.WriteByte('(')
		for _, p := range t {
			pickleValue(b, p.key)
			pickleValue(b, p.value)
		}
		b.WriteByte('u')
	default:
		panic(fmt.Sprintf("buildPickle: unsupported type %T", v))
	}
}

// pickleLong1 emits LONG1: minimal little-endian two's complement.
func pickleLong1(b *bytes.Buffer, v int64) {
	raw := make([]byte, 0, 9)
	neg := v < 0
	for {
		raw = append(raw, byte(v))
		v >>= 8
		top := raw[len(raw)-1]
		if (!neg && v == 0 && top&0x80 == 0) || (neg && v == -1 && top&0x80 != 0) {
			break
		}
	}
	b.WriteByte(0x8a)
	b.WriteByte(byte(len(raw)))
	b.Write(raw)
}

func le16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func lef32(v float32) []byte {
	return le32(math.Float32bits(v))
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// bwBlob length-prefixes data the way the engine frames byte strings.
func bwBlob(data []byte) []byte {
	if len(data) < 0xFF {
		return append([]byte{byte(len(data))}, data...)
	}
	return cat([]byte{0xFF}, le16(uint16(len(data))), []byte{0}, data)
}

// frame wraps a payload in the packet stream's size/type/clock header.
func frame(ptype uint32, clock float32, payload []byte) []byte {
	return cat(le32(uint32(len(payload))), le32(ptype), lef32(clock), payload)
}

func methodFrame(clock float32, entityID int32, methodID uint32, args []byte) []byte {
	payload := cat(le32(uint32(entityID)), le32(methodID), le32(uint32(len(args))), args)
	return frame(v14Packets.EntityMethod, clock, payload)
}

func positionFrame(clock float32, entityID int32, x, z float32) []byte {
	payload := cat(
		le32(uint32(entityID)),
		le32(0), // carrier
		lef32(x), lef32(14.5), lef32(z),
		lef32(0), lef32(0), lef32(0),
		lef32(0.1), lef32(0), lef32(0.2),
	)
	return frame(v14Packets.Position, clock, payload)
}

func playerPositionFrame(clock float32, primary, secondary int32, x, z float32) []byte {
	payload := cat(
		le32(uint32(primary)),
		le32(uint32(secondary)),
		lef32(x), lef32(0), lef32(z),
		lef32(0), lef32(0), lef32(0),
	)
	return frame(v14Packets.PlayerPosition, clock, payload)
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return out.Bytes()
}

// encryptTestStream is the inverse of decryptStream: each plaintext
// block is XORed with the previous plaintext block before encryption.
// The stream is zero-padded to a block multiple first, as the client
// does on a clean shutdown.
func encryptTestStream(t *testing.T, plain []byte) []byte {
	t.Helper()
	cipher, err := blowfish.NewCipher(streamKey)
	if err != nil {
		t.Fatalf("blowfish: %v", err)
	}
	padded := make([]byte, (len(plain)+7)&^7)
	copy(padded, plain)
	out := make([]byte, len(padded))
	var prev, xored [8]byte
	for i := 0; i < len(padded); i += 8 {
		copy(xored[:], padded[i:i+8])
		for j := range xored {
			xored[j] ^= prev[j]
		}
		cipher.Encrypt(out[i:i+8], xored[:])
		copy(prev[:], padded[i:i+8])
	}
	return out
}

// buildContainer assembles a single-block replay file around already
// encrypted tail bytes.
func buildContainer(meta, encrypted []byte) []byte {
	return cat(le32(replayMagic), le32(1), le32(uint32(len(meta))), meta, encrypted)
}

func buildReplayFile(t *testing.T, meta, stream []byte) []byte {
	t.Helper()
	return buildContainer(meta, encryptTestStream(t, deflate(t, stream)))
}

func testMetadataJSON(t *testing.T, mutate func(map[string]interface{})) []byte {
	t.Helper()
	m := map[string]interface{}{
		"clientVersionFromExe": "14,11,0,9643345",
		"clientVersionFromXml": "14,11,0,9643345",
		"dateTime":             "03.01.2026 23:28:22",
		"duration":             1290,
		"mapId":                19,
		"mapName":              "spaces/19_OC_prey",
		"mapDisplayName":       "19_OC_prey",
		"matchGroup":           "clan",
		"gameLogic":            "Domination",
		"scenario":             "Clan_7x7",
		"scenarioConfigId":     2270,
		"teamsCount":           2,
		"playersPerTeam":       7,
		"playerID":             testAvatarID,
		"playerName":           "_meteor0090",
		"playerVehicle":        "PZSD109-Chung-Mu",
		"vehicles": []interface{}{
			map[string]interface{}{"shipId": testShipParams, "relation": 0, "id": testAvatarID, "name": "_meteor0090"},
			map[string]interface{}{"shipId": int64(3762272208), "relation": 1, "id": testAllyID, "name": "OZEKI_Warlord"},
			map[string]interface{}{"shipId": int64(3763320816), "relation": 2, "id": testEnemyID, "name": "PREY_Hunter"},
		},
	}
	if mutate != nil {
		mutate(m)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return data
}

func propOrd(t *testing.T, name string) int64 {
	t.Helper()
	for i, p := range v14PlayerProps {
		if p == name {
			return int64(i)
		}
	}
	t.Fatalf("unknown player property %q", name)
	return 0
}

func testPlayersStatesBlob(t *testing.T) []byte {
	t.Helper()
	pair := func(name string, v interface{}) interface{} {
		return pklTuple{propOrd(t, name), v}
	}
	recorder := pklList{
		pair("id", testAvatarID),
		pair("avatarId", testAvatarID),
		pair("accountDBID", int64(1019623067)),
		pair("name", "_meteor0090"),
		pair("clanTag", "OZEKI"),
		pair("clanID", int64(4000123)),
		pair("realm", "eu"),
		pair("teamId", int64(0)),
		pair("maxHealth", int64(21800)),
		pair("isBot", false),
		pair("shipId", testShipEntity),
		pair("shipParamsId", testShipParams),
		pair("crewParams", pklList{testCommanderID, pklList{}}),
		pair("shipComponents", pklDict{
			{"artillery", "AB1_Artillery"},
			{"hull", "AB2_Hull"},
		}),
		pair("shipConfigDump", []byte{0xA3, 0x00, 0x00, 0x00, 0x01, 0x02}),
		// An ordinal past the property table, as a future client would
		// send; decoders drop it.
		pklTuple{int64(99), "ignored"},
	}
	enemy := pklList{
		pair("id", testEnemyID),
		pair("avatarId", testEnemyID),
		pair("name", "PREY_Hunter"),
		pair("clanTag", "PREY"),
		pair("teamId", int64(1)),
		pair("isBot", false),
		pair("shipParamsId", int64(3762272208)),
	}
	return buildPickle(pklList{recorder, enemy})
}

func testCrewsBlob(t *testing.T) []byte {
	t.Helper()
	return buildPickle(pklDict{
		{int64(1), pklDict{
			{"crew_id", testCommanderID},
			{"learned_skills", pklDict{
				{"Destroyer", pklList{"GmReloadAaDamageConstant", "ConsumablesDuration"}},
				{"Cruiser", pklList{}},
			}},
		}},
	})
}

func testDamageBlob(t *testing.T) []byte {
	t.Helper()
	return buildPickle(pklDict{
		{pklTuple{int64(1), int64(0)}, pklList{int64(42), int64(55340)}},
		{pklTuple{int64(2), int64(0)}, pklList{int64(3), float64(12345)}},
	})
}

// testServerDataBlob pickles a terminal results payload with two
// players and a clan-battle private data list.
func testServerDataBlob(t *testing.T) []byte {
	t.Helper()
	slots := make(pklList, 430)
	for i := range slots {
		slots[i] = int64(0)
	}
	slots[0] = testAvatarID
	slots[1] = "_meteor0090"
	slots[2] = int64(1019623067)
	slots[3] = "OZEKI"
	slots[4] = int64(4000123)
	slots[9] = "eu"
	slots[22] = int64(1143)
	slots[23] = float64(95.25)
	slots[32] = int64(3)
	slots[406] = int64(2130)
	slots[415] = int64(11223)
	slots[419] = float64(1523001)
	slots[429] = int64(151334)

	enemySlots := make(pklList, 430)
	for i := range enemySlots {
		enemySlots[i] = int64(0)
	}
	enemySlots[0] = testEnemyID
	enemySlots[1] = "PREY_Hunter"
	enemySlots[3] = "PREY"

	private := make(pklList, 8)
	for i := range private {
		private[i] = int64(0)
	}
	private[7] = pklList{int64(300000)}

	return buildPickle(pklDict{
		{"arenaUniqueID", testArenaID},
		{"playersPublicInfo", pklDict{
			{testAvatarID, slots},
			{testEnemyID, enemySlots},
		}},
		{"privateDataList", private},
	})
}

func testArenaStateArgs(t *testing.T) []byte {
	t.Helper()
	return cat(
		le64(uint64(testArenaID)),
		[]byte{7}, // team build type
		bwBlob(nil),
		bwBlob(testPlayersStatesBlob(t)),
		bwBlob(nil),
		bwBlob(nil),
	)
}

// testBattleStream frames a small battle. With complete set the stream
// ends with the battle-end broadcast and the terminal results packet,
// as a replay recorded to the end of the battle does.
func testBattleStream(t *testing.T, complete bool) []byte {
	t.Helper()
	mapName := "spaces/19_OC_prey"
	frames := [][]byte{
		frame(v14Packets.BasePlayerCreate, 0, cat(le32(uint32(testAvatarID)), []byte{1, 0})),
		frame(v14Packets.Map, 0.05, cat(
			le32(19),
			le64(uint64(testArenaID)),
			le32(0), le32(0),
			le32(uint32(len(mapName))), []byte(mapName),
		)),
		methodFrame(0.2, int32(testAvatarID), v14Methods.OnArenaStateReceived, testArenaStateArgs(t)),
		methodFrame(0.3, int32(testAvatarID), v14Methods.OnCrewsInfoReceived, bwBlob(testCrewsBlob(t))),
		frame(v14Packets.Camera, 1.0, make([]byte, 40)),
		frame(0x99, 1.1, []byte{1, 2, 3}), // outside the catalogue
		positionFrame(5.5, int32(testShipEntity), 120.5, -340.25),
		positionFrame(7.5, int32(testShipEntity), 131, -332.75),
		playerPositionFrame(9.0, int32(testAllyID), 0, -95.5, 410),
		methodFrame(900, int32(testAvatarID), v14Methods.ReceiveDamageStat, bwBlob(testDamageBlob(t))),
	}
	if complete {
		frames = append(frames,
			methodFrame(1280, int32(testAvatarID), v14Methods.OnBattleEnd, []byte{0, 2}),
			frame(v14Packets.BattleStats, 1290, testServerDataBlob(t)),
		)
	}
	return cat(frames...)
}

func buildTestReplay(t *testing.T, complete bool, mutate func(map[string]interface{})) []byte {
	t.Helper()
	return buildReplayFile(t, testMetadataJSON(t, mutate), testBattleStream(t, complete))
}
