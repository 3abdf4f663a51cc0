// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"errors"
)

var (
	// ErrMalformedHeader is returned when the container header or the
	// JSON metadata block cannot be read.
	ErrMalformedHeader = errors.New("replay: malformed header")

	// ErrDecryptFailure is returned when the decrypted packet stream is
	// not a valid zlib stream, which means the payload is corrupt or was
	// written by a client using a different key.
	ErrDecryptFailure = errors.New("replay: packet stream decrypt failed")

	// ErrUnsupportedVersion is returned when the client version in the
	// metadata is not in the version registry. Operators should treat
	// this as a signal that a new game release needs a registry entry.
	ErrUnsupportedVersion = errors.New("replay: unsupported client version")

	// ErrTruncatedStream is returned in strict mode when the packet
	// stream ends mid-frame or the zlib stream is cut short.
	ErrTruncatedStream = errors.New("replay: truncated packet stream")

	// ErrNoBattleStats is returned in strict mode when the terminal
	// battle-stats packet is absent (the recording player left before
	// the battle ended). Lenient decodes report this with a nil
	// BattleStats field instead of an error.
	ErrNoBattleStats = errors.New("replay: no battle stats packet")
)

// Failure kind labels, shared with metrics and decode-failure markers.
const (
	KindMalformedHeader    = "malformed_header"
	KindDecryptFailure     = "decrypt"
	KindUnsupportedVersion = "unsupported_version"
	KindTruncatedStream    = "truncated"
	KindNoBattleStats      = "no_battle_stats"
	KindInternal           = "internal"
)

// FailureKind classifies a decode error into its taxonomy label.
// Unrecognized errors classify as KindInternal.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedHeader):
		return KindMalformedHeader
	case errors.Is(err, ErrDecryptFailure):
		return KindDecryptFailure
	case errors.Is(err, ErrUnsupportedVersion):
		return KindUnsupportedVersion
	case errors.Is(err, ErrTruncatedStream):
		return KindTruncatedStream
	case errors.Is(err, ErrNoBattleStats):
		return KindNoBattleStats
	default:
		return KindInternal
	}
}
