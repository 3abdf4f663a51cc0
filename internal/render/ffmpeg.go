// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tomtom215/navarchus/internal/logging"
)

// encoder pipes raw RGBA frames into an ffmpeg child process that muxes
// an H.264 MP4.
type encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	frameBytes int
}

// encoderArgs builds the ffmpeg invocation: rawvideo RGBA on stdin,
// H.264 in a faststart MP4 on disk.
func encoderArgs(width, height, frameRate int, outPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(frameRate),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "veryfast",
		"-movflags", "+faststart",
		"-y", outPath,
	}
}

func startEncoder(ctx context.Context, ffmpegPath string, width, height, frameRate int, outPath string) (*encoder, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found at %q: %v", ErrRenderFailure, ffmpegPath, err)
	}

	e := &encoder{frameBytes: width * height * 4}
	e.cmd = exec.CommandContext(ctx, resolved, encoderArgs(width, height, frameRate, outPath)...)
	e.cmd.Stderr = &e.stderr

	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: open ffmpeg stdin: %v", ErrRenderFailure, err)
	}
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrRenderFailure, err)
	}

	logging.Debug().
		Str("component", "render").
		Str("ffmpeg", resolved).
		Int("width", width).
		Int("height", height).
		Int("frame_rate", frameRate).
		Msg("Encoder started")
	return e, nil
}

// writeFrame streams one frame's pixels to ffmpeg. image.NewRGBA packs
// rows contiguously, so Pix is exactly one rawvideo frame.
func (e *encoder) writeFrame(img *image.RGBA) error {
	if len(img.Pix) != e.frameBytes {
		return fmt.Errorf("frame is %d bytes, encoder expects %d", len(img.Pix), e.frameBytes)
	}
	_, err := e.stdin.Write(img.Pix)
	return err
}

// close finishes the stream and waits for ffmpeg to exit. A nonzero
// exit surfaces with the tail of ffmpeg's stderr.
func (e *encoder) close() error {
	if err := e.stdin.Close(); err != nil {
		e.cmd.Wait()
		return fmt.Errorf("%w: close ffmpeg stdin: %v", ErrRenderFailure, err)
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrRenderFailure, err, stderrTail(e.stderr.String()))
	}
	return nil
}

// abort tears the process down after a write failure.
func (e *encoder) abort() {
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd.Wait()
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}
