// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// packetHeaderSize covers the size, type, and clock fields of a frame.
const packetHeaderSize = 12

// rawPacket is one frame of the decompressed packet stream. Clock is
// seconds since battle start.
type rawPacket struct {
	Type    uint32
	Clock   float32
	Payload []byte
}

// scanPackets walks the stream and invokes fn for every complete frame.
// It returns the number of frames delivered. A stream that ends inside
// a frame returns ErrTruncatedStream along with the count; the caller
// decides whether that is fatal.
func scanPackets(stream []byte, fn func(rawPacket) error) (int, error) {
	count := 0
	offset := 0
	for offset < len(stream) {
		if offset+packetHeaderSize > len(stream) {
			return count, fmt.Errorf("%w: %d trailing bytes after packet %d",
				ErrTruncatedStream, len(stream)-offset, count)
		}
		size := binary.LittleEndian.Uint32(stream[offset : offset+4])
		ptype := binary.LittleEndian.Uint32(stream[offset+4 : offset+8])
		clock := math.Float32frombits(binary.LittleEndian.Uint32(stream[offset+8 : offset+12]))
		offset += packetHeaderSize

		end := offset + int(size)
		if end > len(stream) || end < offset {
			return count, fmt.Errorf("%w: packet %d declares %d bytes with %d remaining",
				ErrTruncatedStream, count, size, len(stream)-offset)
		}

		if err := fn(rawPacket{Type: ptype, Clock: clock, Payload: stream[offset:end]}); err != nil {
			return count, err
		}
		count++
		offset = end
	}
	return count, nil
}

// payloadReader is a cursor over one packet payload. The first read
// past the end latches io.ErrUnexpectedEOF and every later read returns
// zero values, so call sites check Err once after a decode sequence.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func newPayloadReader(buf []byte) *payloadReader {
	return &payloadReader{buf: buf}
}

// Err returns the latched read error, if any.
func (r *payloadReader) Err() error {
	return r.err
}

// remaining reports how many unread bytes are left.
func (r *payloadReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) || n < 0 {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) i8() int8 {
	return int8(r.u8())
}

func (r *payloadReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *payloadReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) i32() int32 {
	return int32(r.u32())
}

func (r *payloadReader) i64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (r *payloadReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *payloadReader) vec3() (x, y, z float32) {
	return r.f32(), r.f32(), r.f32()
}

// blob reads a BigWorld length-prefixed byte string: a single length
// byte, or 0xFF followed by a u16 length and one pad byte for payloads
// of 255 bytes and over.
func (r *payloadReader) blob() []byte {
	n := int(r.u8())
	if n == 0xFF {
		n = int(r.u16())
		r.take(1)
	}
	return r.take(n)
}

// string32 reads a u32 length followed by that many bytes, the framing
// the Map packet uses for the space name.
func (r *payloadReader) string32() string {
	n := int(r.u32())
	return string(r.take(n))
}
