// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package render

import (
	"fmt"
	"image"
	"sort"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/replay"
)

const (
	// ghostAge dims a ship once its last position sample is this many
	// battle-seconds stale: the ship went unspotted and the dot marks
	// its last known position, like the in-game minimap ghost marker.
	ghostAge = 5.0

	// trackEndGrace hides a ship this many battle-seconds after its
	// final sample; the ship sank or the replay ended.
	trackEndGrace = 8.0

	// maxFrames caps runaway timelines. At the default cadence this is
	// several battle-hours, far past the longest possible match.
	maxFrames = 12000

	dotRadius      = 4.0
	ownDotRadius   = 5.0
	trailDotRadius = 1.6
)

// timeline converts battle clock into frame indices. step is how many
// battle-seconds one frame advances.
type timeline struct {
	start float64
	end   float64
	step  float64
}

func newTimeline(panes []*pane, frameRate, speedUp int) timeline {
	if frameRate < 1 {
		frameRate = 1
	}
	if speedUp < 1 {
		speedUp = 1
	}

	first := true
	var start, end float64
	for _, p := range panes {
		for _, t := range p.tracks {
			if len(t.Points) == 0 {
				continue
			}
			lo := float64(t.Points[0].Clock)
			hi := float64(t.Points[len(t.Points)-1].Clock)
			if first || lo < start {
				start = lo
			}
			if first || hi > end {
				end = hi
			}
			first = false
		}
	}

	return timeline{start: start, end: end, step: float64(speedUp) / float64(frameRate)}
}

func (tl timeline) frameCount() int {
	if tl.end <= tl.start {
		return 1
	}
	n := int((tl.end-tl.start)/tl.step) + 1
	if n > maxFrames {
		n = maxFrames
	}
	return n
}

// positionAt returns the latest sample at or before battle time t and
// its staleness. ok is false before the first sample and once the track
// has been over for trackEndGrace.
func positionAt(points []replay.TrackPoint, t float64) (replay.TrackPoint, float64, bool) {
	idx := sort.Search(len(points), func(i int) bool { return float64(points[i].Clock) > t }) - 1
	if idx < 0 {
		return replay.TrackPoint{}, 0, false
	}
	age := t - float64(points[idx].Clock)
	if idx == len(points)-1 && age > trackEndGrace {
		return replay.TrackPoint{}, 0, false
	}
	return points[idx], age, true
}

// pane is one minimap perspective within a frame: its tracks, its world
// projection, and the per-ship trail ring buffers.
type pane struct {
	tracks  []Track
	proj    projection
	offsetX int
	size    int
	tag     string
	trails  [][]image.Point
}

func newPane(tracks []Track, size, offsetX int, tag string) *pane {
	return &pane{
		tracks:  tracks,
		proj:    newProjection(tracks, size),
		offsetX: offsetX,
		size:    size,
		tag:     tag,
		trails:  make([][]image.Point, len(tracks)),
	}
}

func (p *pane) draw(c *canvas, t float64, trailLength int) {
	c.grid(p.offsetX, p.size)

	for i, track := range p.tracks {
		pt, age, ok := positionAt(track.Points, t)
		if !ok {
			continue
		}
		sx, sy := p.proj.toScreen(pt.X, pt.Z)
		sx += float64(p.offsetX)

		p.trails[i] = append(p.trails[i], image.Pt(int(sx), int(sy)))
		if len(p.trails[i]) > trailLength {
			p.trails[i] = p.trails[i][len(p.trails[i])-trailLength:]
		}

		col := teamColor(track)
		trail := p.trails[i]
		for k, tp := range trail[:len(trail)-1] {
			f := 0.85 - 0.6*float64(k+1)/float64(len(trail))
			c.dot(float64(tp.X), float64(tp.Y), trailDotRadius, fade(col, f))
		}

		if age > ghostAge {
			col = fade(col, 0.55)
		}
		r := dotRadius
		if track.IsOwn {
			r = ownDotRadius
		}
		c.dot(sx, sy, r, col)
	}

	if p.tag != "" {
		c.label(p.offsetX+8, 16, p.tag, colorText)
	}
}

// sequencer produces frames in order, reusing one canvas.
type sequencer struct {
	panes  []*pane
	canvas *canvas
	tl     timeline
	trail  int

	frame  int
	frames int
	width  int
	height int
}

func newSequencer(cfg config.RenderConfig, panes ...*pane) *sequencer {
	width := 0
	height := cfg.FrameSize &^ 1
	for _, p := range panes {
		width += p.size
	}

	trail := cfg.TrailLength
	if trail < 1 {
		trail = 1
	}

	tl := newTimeline(panes, cfg.FrameRate, cfg.SpeedUp)
	return &sequencer{
		panes:  panes,
		canvas: newCanvas(width, height),
		tl:     tl,
		trail:  trail,
		frames: tl.frameCount(),
		width:  width,
		height: height,
	}
}

// next renders and returns the next frame. The returned image is reused
// by the following call; consumers must copy or encode it first.
func (s *sequencer) next() (*image.RGBA, bool) {
	if s.frame >= s.frames {
		return nil, false
	}
	t := s.tl.start + float64(s.frame)*s.tl.step

	s.canvas.reset()
	for i, p := range s.panes {
		if i > 0 {
			s.canvas.paneBorder(p.offsetX)
		}
		p.draw(s.canvas, t, s.trail)
	}
	s.canvas.labelCentered(s.width/2, s.height-10, clockLabel(t-s.tl.start), colorText)

	s.frame++
	return s.canvas.img, true
}

// clockLabel formats elapsed battle time as M:SS.
func clockLabel(elapsed float64) string {
	if elapsed < 0 {
		elapsed = 0
	}
	secs := int(elapsed)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
