// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestStreamEncryptionRoundTrip(t *testing.T) {
	plain := testBattleStream(t, true)
	encrypted := encryptTestStream(t, deflate(t, plain))

	decrypted, err := decryptStream(encrypted)
	if err != nil {
		t.Fatalf("decryptStream() error = %v", err)
	}
	inflated, err := inflateStream(decrypted)
	if err != nil {
		t.Fatalf("inflateStream() error = %v", err)
	}
	if !bytes.Equal(inflated, plain) {
		t.Errorf("round trip diverges: got %d bytes, want %d", len(inflated), len(plain))
	}
}

// A file cut mid-battle usually ends inside an encryption block; the
// ragged tail must not change the blocks before it.
func TestDecryptStreamDropsPartialTail(t *testing.T) {
	encrypted := encryptTestStream(t, deflate(t, []byte("a stream long enough for several blocks")))

	full, err := decryptStream(encrypted)
	if err != nil {
		t.Fatalf("decryptStream() error = %v", err)
	}
	ragged, err := decryptStream(append(append([]byte{}, encrypted...), 0xBA, 0xD0, 0x01))
	if err != nil {
		t.Fatalf("decryptStream() with tail error = %v", err)
	}
	if !bytes.Equal(full, ragged) {
		t.Error("partial tail changed the decrypted stream")
	}
}

func TestInflateStreamRejectsGarbage(t *testing.T) {
	if _, err := inflateStream(make([]byte, 64)); !errors.Is(err, ErrDecryptFailure) {
		t.Errorf("inflateStream() error = %v, want ErrDecryptFailure", err)
	}
}

func TestInflateStreamRecoversTruncatedPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	plain := make([]byte, 32<<10)
	rng.Read(plain)

	deflated := deflate(t, plain)
	partial, err := inflateStream(deflated[:len(deflated)/2])
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("inflateStream() error = %v, want ErrTruncatedStream", err)
	}
	if len(partial) == 0 {
		t.Fatal("no prefix recovered from the truncated stream")
	}
	if !bytes.Equal(partial, plain[:len(partial)]) {
		t.Error("recovered prefix diverges from the source bytes")
	}
}
