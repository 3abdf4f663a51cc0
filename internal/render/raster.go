// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tomtom215/navarchus/internal/models"
)

// Minimap palette. Team colors follow the in-game minimap convention:
// green allies, red enemies, the recording player in white.
var (
	colorBackground = color.RGBA{R: 0x0B, G: 0x16, B: 0x21, A: 0xFF}
	colorGrid       = color.RGBA{R: 0x1C, G: 0x2B, B: 0x3A, A: 0xFF}
	colorAlly       = color.RGBA{R: 0x4C, G: 0xE8, B: 0xAA, A: 0xFF}
	colorEnemy      = color.RGBA{R: 0xFE, G: 0x4D, B: 0x2A, A: 0xFF}
	colorSelf       = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorText       = color.RGBA{R: 0xD9, G: 0xE4, B: 0xEF, A: 0xFF}
)

// gridCells matches the 10x10 lettered grid of the in-game minimap.
const gridCells = 10

// canvas is a reusable RGBA frame with an antialiasing filler for the
// ship dots and trails.
type canvas struct {
	img    *image.RGBA
	filler *rasterx.Filler
	width  int
	height int
}

func newCanvas(width, height int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	return &canvas{
		img:    img,
		filler: rasterx.NewFiller(width, height, scanner),
		width:  width,
		height: height,
	}
}

// reset repaints the whole frame with the background color.
func (c *canvas) reset() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
}

// grid draws the minimap grid lines for one square pane starting at
// offsetX. Lines are single-pixel and axis-aligned, so they go straight
// into the pixel buffer.
func (c *canvas) grid(offsetX, size int) {
	for i := 1; i < gridCells; i++ {
		p := i * size / gridCells
		for y := 0; y < size && y < c.height; y++ {
			c.img.SetRGBA(offsetX+p, y, colorGrid)
		}
		for x := 0; x < size; x++ {
			c.img.SetRGBA(offsetX+x, p, colorGrid)
		}
	}
}

// paneBorder separates the two perspectives of a dual frame.
func (c *canvas) paneBorder(x int) {
	for y := 0; y < c.height; y++ {
		c.img.SetRGBA(x, y, colorText)
	}
}

// dot rasterizes a filled antialiased circle.
func (c *canvas) dot(cx, cy, r float64, col color.RGBA) {
	c.filler.SetColor(col)
	rasterx.AddCircle(cx, cy, r, c.filler)
	c.filler.Draw()
	c.filler.Clear()
}

// label draws text with its baseline at y.
func (c *canvas) label(x, y int, text string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// labelCentered draws text horizontally centered on cx.
func (c *canvas) labelCentered(cx, y int, text string, col color.RGBA) {
	w := font.MeasureString(basicfont.Face7x13, text).Ceil()
	c.label(cx-w/2, y, text, col)
}

// fade blends a color toward the background; t=0 keeps the color, t=1
// is fully background. Returned colors stay opaque so blending behavior
// never depends on the scanner.
func fade(c color.RGBA, t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return color.RGBA{
		R: lerp(c.R, colorBackground.R),
		G: lerp(c.G, colorBackground.G),
		B: lerp(c.B, colorBackground.B),
		A: 0xFF,
	}
}

func teamColor(t Track) color.RGBA {
	switch {
	case t.IsOwn:
		return colorSelf
	case t.Team == models.TeamAlly:
		return colorAlly
	default:
		return colorEnemy
	}
}
