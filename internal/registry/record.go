// Package registry holds the ordered set of processed images of a session.
package registry

import (
	"encoding/hex"
	"image"

	"github.com/zeebo/blake3"

	"github.com/roboco-io/imgframe/internal/raster"
	"github.com/roboco-io/imgframe/internal/sizecode"
)

// Record is one processed image. Original is the source exactly as ingested
// and is never modified; Rendered always holds the PNG render of the source
// at Effective().
type Record struct {
	Name       string        `json:"name"`
	Code       string        `json:"code,omitempty"`
	SourceName string        `json:"source_name"`
	Original   []byte        `json:"-"`
	Rendered   []byte        `json:"-"`
	Fixed      sizecode.Size `json:"fixed"`       // zero when no code matched
	Custom     bool          `json:"custom"`      // true iff no code matched
	CustomSize sizecode.Size `json:"custom_size"` // meaningful only when Custom

	source image.Image
}

// NewRecord builds a record for a decoded source. The code is resolved from
// the stem of sourceName; without a match the record is custom-sized and
// starts at the natural image size. Rendered is left empty.
func NewRecord(sourceName string, original []byte, src image.Image) *Record {
	stem := sizecode.Stem(sourceName)
	rec := &Record{
		SourceName: sourceName,
		Original:   original,
		source:     src,
	}

	if e, ok := sizecode.Resolve(stem); ok {
		rec.Code = e.Code
		rec.Name = raster.OutputName(e.Code)
		rec.Fixed = e.Size
	} else {
		rec.Name = raster.OutputName(stem)
		rec.Custom = true
		rec.CustomSize = raster.NaturalSize(src)
	}

	return rec
}

// Source returns the decoded source image.
func (r *Record) Source() image.Image {
	return r.source
}

// Effective returns the size used for rendering.
func (r *Record) Effective() sizecode.Size {
	if r.Custom {
		return r.CustomSize
	}
	return r.Fixed
}

// Fingerprint returns the hex BLAKE3-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
