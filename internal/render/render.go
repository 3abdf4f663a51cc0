// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package render turns decoded replay position tracks into minimap MP4
// videos. Frames are rasterized in-process and piped as raw RGBA to an
// ffmpeg child process that muxes H.264; the result lands in the blob
// store under videos/{arenaUniqueID}/.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/replay"
)

// ErrRenderFailure marks a terminal render error. The pipeline never
// retries it automatically; the generate-video endpoint re-enqueues.
var ErrRenderFailure = errors.New("render: render failure")

// Renderer produces minimap videos from decoded replays and stores them
// as blobs.
type Renderer struct {
	cfg   config.RenderConfig
	blobs *blobstore.Store
}

// New builds a Renderer over the render configuration and blob store.
func New(cfg config.RenderConfig, blobs *blobstore.Store) *Renderer {
	// yuv420p needs even dimensions.
	cfg.FrameSize &^= 1
	return &Renderer{cfg: cfg, blobs: blobs}
}

// RenderSingle renders the one-perspective minimap video for a decoded
// replay and returns the video blob key.
func (r *Renderer) RenderSingle(ctx context.Context, decoded *replay.DecodedReplay, arenaUniqueID int64) (string, error) {
	start := time.Now()

	tracks, err := ExtractTracks(decoded)
	if err != nil {
		metrics.RecordRender(0, "failure")
		return "", err
	}

	seq := newSequencer(r.cfg, newPane(tracks, r.cfg.FrameSize, 0, ""))
	key := blobstore.VideoKey(arenaUniqueID, false)
	if err := r.encodeAndStore(ctx, key, seq); err != nil {
		metrics.RecordRender(0, "failure")
		return "", err
	}

	metrics.RecordRender(time.Since(start), "success")
	logging.Info().
		Str("component", "render").
		Int64("arena_id", arenaUniqueID).
		Str("video_key", key).
		Int("frames", seq.frames).
		Dur("elapsed", time.Since(start)).
		Msg("Minimap video rendered")
	return key, nil
}

// RenderDual renders both perspectives of a match side by side: the
// green pane from the first uploader's replay, the red pane from an
// opposing uploader's. Pane tags are usually the team clan tags.
func (r *Renderer) RenderDual(ctx context.Context, green, red *replay.DecodedReplay, greenTag, redTag string, arenaUniqueID int64) (string, error) {
	start := time.Now()

	greenTracks, err := ExtractTracks(green)
	if err != nil {
		metrics.RecordRender(0, "failure")
		return "", err
	}
	redTracks, err := ExtractTracks(red)
	if err != nil {
		metrics.RecordRender(0, "failure")
		return "", err
	}

	seq := newSequencer(r.cfg,
		newPane(greenTracks, r.cfg.FrameSize, 0, greenTag),
		newPane(redTracks, r.cfg.FrameSize, r.cfg.FrameSize, redTag),
	)
	key := blobstore.VideoKey(arenaUniqueID, true)
	if err := r.encodeAndStore(ctx, key, seq); err != nil {
		metrics.RecordRender(0, "failure")
		return "", err
	}

	metrics.RecordRender(time.Since(start), "success")
	logging.Info().
		Str("component", "render").
		Int64("arena_id", arenaUniqueID).
		Str("video_key", key).
		Int("frames", seq.frames).
		Dur("elapsed", time.Since(start)).
		Msg("Dual minimap video rendered")
	return key, nil
}

// encodeAndStore runs the frame sequencer through ffmpeg into a temp
// file and uploads the result under the given blob key.
func (r *Renderer) encodeAndStore(ctx context.Context, key string, seq *sequencer) error {
	tmpDir, err := os.MkdirTemp("", "navarchus-render-")
	if err != nil {
		return fmt.Errorf("%w: create temp dir: %v", ErrRenderFailure, err)
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, "out.mp4")
	enc, err := startEncoder(ctx, r.cfg.FFmpegPath, seq.width, seq.height, r.cfg.FrameRate, outPath)
	if err != nil {
		return err
	}

	written := 0
	for {
		img, ok := seq.next()
		if !ok {
			break
		}
		if err := enc.writeFrame(img); err != nil {
			enc.abort()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: write frame %d: %v", ErrRenderFailure, written, err)
		}
		written++
	}

	if err := enc.close(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	metrics.RenderFramesWritten.Add(float64(written))

	f, err := os.Open(outPath)
	if err != nil {
		return fmt.Errorf("%w: open encoded video: %v", ErrRenderFailure, err)
	}
	defer f.Close()

	if _, err := r.blobs.Put(ctx, key, f); err != nil {
		return fmt.Errorf("store video %s: %w", key, err)
	}
	return nil
}
