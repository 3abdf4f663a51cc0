// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"encoding/binary"
	"fmt"

	"github.com/tomtom215/navarchus/internal/logging"
)

const (
	// replayMagic opens every .wowsreplay file. The game has shipped
	// files with unexpected magics before, so a mismatch is logged and
	// tolerated as long as the rest of the container parses.
	replayMagic = 0x11343212

	// containerHeaderSize covers magic, block count, and the first
	// block size.
	containerHeaderSize = 12

	// maxBlocks bounds the declared block count so a corrupt header
	// cannot drive a long bogus block walk.
	maxBlocks = 16
)

// container is the carved-up replay file: the JSON metadata block, any
// extra blocks (retained raw, currently unused), and the encrypted
// packet stream.
type container struct {
	metadataJSON []byte
	extraBlocks  [][]byte
	encrypted    []byte
}

// readContainer splits raw replay bytes into their container parts.
// All failures classify as ErrMalformedHeader.
func readContainer(data []byte) (*container, error) {
	if len(data) < containerHeaderSize {
		return nil, fmt.Errorf("%w: file is %d bytes, header needs %d",
			ErrMalformedHeader, len(data), containerHeaderSize)
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	blocks := binary.LittleEndian.Uint32(data[4:8])
	jsonSize := binary.LittleEndian.Uint32(data[8:12])

	if magic != replayMagic {
		logging.Warn().
			Str("component", "replay").
			Uint32("magic", magic).
			Msg("Unexpected replay magic, attempting decode anyway")
	}

	if blocks == 0 || blocks > maxBlocks {
		return nil, fmt.Errorf("%w: implausible block count %d", ErrMalformedHeader, blocks)
	}

	offset := containerHeaderSize
	end := offset + int(jsonSize)
	if jsonSize == 0 || end > len(data) || end < offset {
		return nil, fmt.Errorf("%w: metadata block of %d bytes exceeds file", ErrMalformedHeader, jsonSize)
	}

	c := &container{metadataJSON: data[offset:end]}
	offset = end

	// Blocks past the first carry auxiliary data on some game modes.
	// They are kept raw so a future version entry can interpret them.
	for i := uint32(1); i < blocks; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: extra block %d header exceeds file", ErrMalformedHeader, i)
		}
		size := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
		end = offset + int(size)
		if end > len(data) || end < offset {
			return nil, fmt.Errorf("%w: extra block %d of %d bytes exceeds file", ErrMalformedHeader, i, size)
		}
		c.extraBlocks = append(c.extraBlocks, data[offset:end])
		offset = end
	}

	c.encrypted = data[offset:]
	return c, nil
}
