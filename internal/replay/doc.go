// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package replay decodes World of Warships .wowsreplay files.
//
// Decoding is a pure function over the file bytes: no network, no disk,
// no shared mutable state. A Decoder walks the container, decrypts and
// inflates the packet stream, and accumulates the packets of interest
// into a DecodedReplay.
//
// # Container Layout
//
// All integers are little-endian:
//
//	magic:u32 | blocks:u32 | jsonSize:u32 | json[jsonSize] |
//	(extraSize:u32 | extra[extraSize]) x (blocks-1) |
//	encrypted packet stream
//
// The JSON block is the battle metadata the game client writes at battle
// start (map, date, game type, roster). The packet stream is encrypted
// with Blowfish in 8-byte blocks chained by XOR, then zlib-compressed.
// Decompressed, it is a sequence of frames:
//
//	size:u32 | type:u32 | clock:f32 | payload[size]
//
// # Version Registry
//
// Packet type ids, entity method ordinals, and payload layouts shift
// between game client releases. The decoder consults a closed registry
// of supported client versions; adding a version is a code change, not
// configuration. Unknown versions fail with ErrUnsupportedVersion before
// any packet is touched.
//
// # Lenient Mode
//
// A player who leaves before the battle ends produces a replay without
// the terminal battle-stats packet. By default the decoder returns a
// DecodedReplay with BattleStats == nil for such files so the pipeline
// can still persist the metadata. Options.Strict turns the missing
// packet and any mid-stream truncation into errors instead; the CLI
// decode tool uses strict mode.
//
// # Failure Taxonomy
//
// Decode failures are classified by errors.Is-able sentinels:
// ErrMalformedHeader, ErrDecryptFailure, ErrUnsupportedVersion,
// ErrTruncatedStream, ErrNoBattleStats. FailureKind maps any decode
// error to the label used by metrics and failure markers.
package replay
