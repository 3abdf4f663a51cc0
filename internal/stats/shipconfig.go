// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package stats

import "encoding/binary"

// shipConfig is the decoded ship configuration dump broadcast in the
// hidden player state. Only the loadout ids survive decoding; the hull
// module words are skipped.
type shipConfig struct {
	ShipParamsID   uint32
	Modernizations []uint32
	Signals        []uint32
}

// decodeShipConfigDump reads the little-endian word stream of a
// shipConfigDump blob:
//
//	unknown | shipParamsId | unknown | unitCount | unit x unitCount |
//	appliedExternalConfig | modCount | modId x modCount |
//	signalCount | signalId x signalCount
//
// The blob is best-effort input from the game client: anything shorter
// than the fixed prefix or cut off mid-list decodes to the zero config
// rather than an error. Trailing bytes after the signal list are
// ignored.
func decodeShipConfigDump(dump []byte) shipConfig {
	if len(dump) < 20 {
		return shipConfig{}
	}
	r := wordReader{buf: dump}

	r.next() // unknown
	shipParamsID := r.next()
	r.next() // unknown

	r.skip(r.next()) // hull module units
	r.next()         // applied external config

	mods := r.take(r.next())
	signals := r.take(r.next())

	if r.short {
		return shipConfig{}
	}
	return shipConfig{
		ShipParamsID:   shipParamsID,
		Modernizations: mods,
		Signals:        signals,
	}
}

// wordReader walks a little-endian u32 stream, latching the first
// out-of-bounds read.
type wordReader struct {
	buf   []byte
	off   int
	short bool
}

func (r *wordReader) next() uint32 {
	if r.short || r.off+4 > len(r.buf) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *wordReader) skip(words uint32) {
	if r.short || uint64(r.off)+4*uint64(words) > uint64(len(r.buf)) {
		r.short = true
		return
	}
	r.off += int(words) * 4
}

func (r *wordReader) take(words uint32) []uint32 {
	if r.short || uint64(r.off)+4*uint64(words) > uint64(len(r.buf)) {
		r.short = true
		return nil
	}
	if words == 0 {
		return nil
	}
	out := make([]uint32, 0, words)
	for i := uint32(0); i < words; i++ {
		out = append(out, binary.LittleEndian.Uint32(r.buf[r.off:]))
		r.off += 4
	}
	return out
}
