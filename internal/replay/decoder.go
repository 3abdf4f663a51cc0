// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// Options configure a Decoder.
type Options struct {
	// Strict turns mid-stream truncation and a missing terminal
	// battle-stats packet into errors. The ingest pipeline runs
	// lenient so incomplete replays still persist their metadata; the
	// CLI decode tool runs strict.
	Strict bool
}

// Decoder decodes .wowsreplay files. It holds no per-file state and is
// safe for concurrent use.
type Decoder struct {
	strict bool
}

// NewDecoder returns a Decoder with the given options.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{strict: opts.Strict}
}

// Decode turns raw replay bytes into a DecodedReplay. Decoding the same
// bytes always yields an equal result. Failures are classified by the
// package's error sentinels; use FailureKind for the taxonomy label.
func (d *Decoder) Decode(data []byte) (*DecodedReplay, error) {
	start := time.Now()
	decoded, err := d.decode(data)
	if err != nil {
		metrics.RecordDecode(time.Since(start), FailureKind(err))
		return nil, err
	}
	metrics.RecordDecode(time.Since(start), "")
	metrics.ReplaySizeBytes.Observe(float64(len(data)))
	return decoded, nil
}

// ReadMetadata parses only the plaintext metadata block at the head of
// a replay file. It never touches the encrypted packet stream, so it is
// cheap enough for the upload boundary to derive provisional keys from.
func ReadMetadata(data []byte) (*Metadata, error) {
	c, err := readContainer(data)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(c.metadataJSON, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata block: %v", ErrMalformedHeader, err)
	}
	return &meta, nil
}

func (d *Decoder) decode(data []byte) (*DecodedReplay, error) {
	c, err := readContainer(data)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(c.metadataJSON, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata block: %v", ErrMalformedHeader, err)
	}

	versionRaw := meta.ClientVersionFromXML
	if versionRaw == "" {
		versionRaw = meta.ClientVersionFromExe
	}
	version, err := ParseClientVersion(versionRaw)
	if err != nil {
		return nil, err
	}
	spec, err := lookupVersion(version)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(spec, d.strict)
	packets, err := d.walkStream(c.encrypted, acc)
	if err != nil {
		return nil, err
	}
	metrics.PacketsScanned.Add(float64(packets))

	if acc.mapInfo.ArenaID != 0 && acc.arenaID != 0 && acc.mapInfo.ArenaID != acc.arenaID {
		logging.Warn().
			Str("component", "replay").
			Int64("map_arena_id", acc.mapInfo.ArenaID).
			Int64("state_arena_id", acc.arenaID).
			Msg("Arena id mismatch between map packet and arena state")
	}

	if acc.battleStats == nil {
		if d.strict {
			return nil, fmt.Errorf("%w: replay ends after %d packets", ErrNoBattleStats, packets)
		}
		metrics.DecodeFailures.WithLabelValues(KindNoBattleStats).Inc()
		logging.Info().
			Str("component", "replay").
			Str("map", acc.mapInfo.Name).
			Int("packets", packets).
			Msg("Replay has no battle stats packet, treating as incomplete")
	}

	return &DecodedReplay{
		ClientVersion: version,
		Metadata:      meta,
		Map:           acc.mapInfo,
		BattleStats:   acc.battleStats,
		Hidden:        acc.hidden,
		OwnAvatarID:   acc.ownAvatarID,
		Tracks:        acc.tracks,
		DamageStats:   acc.damage,
		PacketCount:   packets,
	}, nil
}

// walkStream decrypts, inflates, and scans the packet stream into the
// accumulator, applying the lenient/strict truncation policy.
func (d *Decoder) walkStream(encrypted []byte, acc *accumulator) (int, error) {
	if len(encrypted) < 8 {
		if d.strict {
			return 0, fmt.Errorf("%w: no packet stream after metadata", ErrTruncatedStream)
		}
		logging.Warn().
			Str("component", "replay").
			Msg("Replay carries no packet stream, decoding metadata only")
		return 0, nil
	}

	decrypted, err := decryptStream(encrypted)
	if err != nil {
		return 0, err
	}

	stream, err := inflateStream(decrypted)
	if err != nil {
		if !errors.Is(err, ErrTruncatedStream) || d.strict {
			return 0, err
		}
		logging.Warn().
			Str("component", "replay").
			Int("bytes", len(stream)).
			Msg("Packet stream cut short, scanning the recovered prefix")
	}

	packets, err := scanPackets(stream, acc.handle)
	if err != nil {
		if !errors.Is(err, ErrTruncatedStream) || d.strict {
			return packets, err
		}
		logging.Debug().
			Str("component", "replay").
			Int("packets", packets).
			Msg("Dropped a partial trailing packet")
	}
	return packets, nil
}
