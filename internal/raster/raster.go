// Package raster decodes source images, stretches them onto a reusable canvas
// and re-encodes the result as PNG.
package raster

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/roboco-io/imgframe/internal/sizecode"
)

// OutputExt is the extension of every rendered image.
const OutputExt = ".png"

// MaxPixels bounds both decoded sources and render targets. It leaves
// headroom above the largest frame (10200x3060).
const MaxPixels = 64 << 20

var (
	// ErrInvalidSize is returned when a render is requested at a
	// non-positive size or one above MaxPixels.
	ErrInvalidSize = errors.New("invalid render size")
	// ErrTooLarge is returned by Decode for sources above MaxPixels.
	ErrTooLarge = errors.New("image exceeds pixel limit")
)

// withinLimit reports whether a w×h surface is positive and at most
// MaxPixels, without overflowing.
func withinLimit(w, h int) bool {
	return w > 0 && h > 0 && w <= MaxPixels/h
}

// DecodeError reports an unreadable or corrupt source image.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a failure to encode a rendered canvas.
type EncodeError struct {
	Size sizecode.Size
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s render: %v", e.Size, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Decode decodes a PNG, JPEG, GIF or WebP image.
func Decode(name string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Name: name, Err: errors.New("empty data")}
	}

	// The header is checked first so a forged size never reaches the decoder.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}
	if cfg.Width > 0 && cfg.Height > 0 && !withinLimit(cfg.Width, cfg.Height) {
		return nil, &DecodeError{Name: name, Err: fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Name: name, Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Name: name, Err: fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}
	return img, nil
}

// NaturalSize returns the pixel dimensions of img.
func NaturalSize(img image.Image) sizecode.Size {
	b := img.Bounds()
	return sizecode.Size{Width: b.Dx(), Height: b.Dy()}
}

// Dimensions reads the width and height from a PNG header without decoding
// the pixel data.
func Dimensions(data []byte) (sizecode.Size, error) {
	const ihdrEnd = 8 + 8 + 8
	if len(data) < ihdrEnd || !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) || string(data[12:16]) != "IHDR" {
		return sizecode.Size{}, errors.New("not a PNG image")
	}
	return sizecode.Size{
		Width:  int(binary.BigEndian.Uint32(data[16:20])),
		Height: int(binary.BigEndian.Uint32(data[20:24])),
	}, nil
}

// OutputName returns the display name for a rendered image.
func OutputName(base string) string {
	return base + OutputExt
}

// Scaler names accepted by ParseScaler.
const (
	ScalerBilinear       = "bilinear"
	ScalerApproxBilinear = "approx-bilinear"
	ScalerCatmullRom     = "catmull-rom"
	ScalerNearest        = "nearest"
)

// Scalers lists the accepted scaler names.
var Scalers = []string{ScalerBilinear, ScalerApproxBilinear, ScalerCatmullRom, ScalerNearest}

// ParseScaler returns the interpolator for name. An empty name selects
// bilinear.
func ParseScaler(name string) (draw.Scaler, error) {
	switch strings.ToLower(name) {
	case "", ScalerBilinear:
		return draw.BiLinear, nil
	case ScalerApproxBilinear:
		return draw.ApproxBiLinear, nil
	case ScalerCatmullRom:
		return draw.CatmullRom, nil
	case ScalerNearest:
		return draw.NearestNeighbor, nil
	default:
		return nil, fmt.Errorf("unknown scaler: %s (supported: %s)", name, strings.Join(Scalers, ", "))
	}
}

// Renderer renders decoded images at a target size. It owns one canvas that
// is reconfigured for every render, so a Renderer must not be used from more
// than one goroutine at a time.
type Renderer struct {
	canvas  *Canvas
	scaler  draw.Scaler
	encoder png.Encoder
}

// Options configures a Renderer.
type Options struct {
	Scaler string
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	scaler, err := ParseScaler(opts.Scaler)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		canvas:  NewCanvas(),
		scaler:  scaler,
		encoder: png.Encoder{CompressionLevel: png.DefaultCompression},
	}, nil
}

// Render stretches src to exactly size and returns the PNG encoding. The
// aspect ratio is not preserved.
func (r *Renderer) Render(ctx context.Context, src image.Image, size sizecode.Size) ([]byte, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if !withinLimit(size.Width, size.Height) {
		return nil, fmt.Errorf("%w: %s exceeds %d pixels", ErrInvalidSize, size, MaxPixels)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := r.canvas.Reset(size.Width, size.Height)
	r.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, dst); err != nil {
		return nil, &EncodeError{Size: size, Err: err}
	}
	return buf.Bytes(), nil
}
