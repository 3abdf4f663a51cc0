// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blowfish"
)

// streamKey is the fixed Blowfish key every game client uses to encrypt
// the recorded packet stream. It has been stable across client releases.
var streamKey = []byte{
	0x29, 0xB7, 0xC9, 0x09, 0x38, 0x3F, 0x84, 0x88,
	0xFA, 0x98, 0xEC, 0x4E, 0x13, 0x19, 0x79, 0xFB,
}

// decryptStream decrypts the packet stream in place-independent 8-byte
// blocks. Each decrypted block is XORed with the previous plaintext
// block; the first block stands alone. A trailing partial block is
// dropped: the client pads on a clean shutdown, so a short tail only
// appears on files cut mid-battle.
func decryptStream(encrypted []byte) ([]byte, error) {
	cipher, err := blowfish.NewCipher(streamKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailure, err)
	}

	out := make([]byte, 0, len(encrypted)&^7)
	var prev, block [8]byte
	for i := 0; i+8 <= len(encrypted); i += 8 {
		cipher.Decrypt(block[:], encrypted[i:i+8])
		for j := range block {
			block[j] ^= prev[j]
		}
		prev = block
		out = append(out, block[:]...)
	}
	return out, nil
}

// inflateStream decompresses the decrypted packet stream.
//
// A zlib header error means the decryption produced garbage, which in
// practice means a corrupt file or a client with a different key; that
// is an ErrDecryptFailure, as is corruption mid-stream. Running out of
// bytes mid-stream means the file was cut short: whatever inflated
// cleanly is returned alongside ErrTruncatedStream so lenient decodes
// can still use the packets that survived.
func inflateStream(decrypted []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(decrypted))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailure, err)
	}
	defer zr.Close() //nolint:errcheck // read errors surface below

	out, err := io.ReadAll(zr)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return out, fmt.Errorf("%w: zlib stream cut short after %d bytes", ErrTruncatedStream, len(out))
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailure, err)
	}
	return out, nil
}
