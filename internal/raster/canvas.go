package raster

import "image"

// Canvas is a reusable RGBA drawing surface.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas returns an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{img: &image.RGBA{}}
}

// Reset resizes the canvas to exactly w×h and clears it to transparent
// black. The pixel buffer is reused when it is large enough. Nothing drawn
// before a Reset is visible after it. Callers keep w×h within MaxPixels.
func (c *Canvas) Reset(w, h int) *image.RGBA {
	n := 4 * w * h
	if cap(c.img.Pix) < n {
		c.img.Pix = make([]uint8, n)
	} else {
		c.img.Pix = c.img.Pix[:n]
		clear(c.img.Pix)
	}
	c.img.Stride = 4 * w
	c.img.Rect = image.Rect(0, 0, w, h)
	return c.img
}
