// Package container splits user input into individual raster blobs. A blob is
// either a raster image itself or a container (ZIP, HWPX, HWP) whose eligible
// entries are extracted one by one.
package container

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Blob is an opaque named input with its declared MIME type.
type Blob struct {
	Name string
	Type string
	Data []byte
}

// Kind classifies a blob.
type Kind int

const (
	KindUnknown Kind = iota
	KindRaster
	KindZip
	KindHWPX
	KindHWP // HWP 5.x compound document
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindZip:
		return "zip"
	case KindHWPX:
		return "hwpx"
	case KindHWP:
		return "hwp"
	default:
		return "unknown"
	}
}

// IsArchive reports whether the kind holds multiple entries.
func (k Kind) IsArchive() bool {
	return k == KindZip || k == KindHWPX || k == KindHWP
}

var (
	rasterTypePattern = regexp.MustCompile(`image/(png|jpeg|jpg|webp)`)
	rasterExtPattern  = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|webp)$`)
)

// ErrEncrypted is returned for password-protected containers.
var ErrEncrypted = errors.New("encrypted container is not supported")

// ArchiveError reports a container that could not be opened at all.
type ArchiveError struct {
	Name string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Name, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// archiveKind returns the container kind implied by the file extension.
func archiveKind(name string) Kind {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return KindZip
	case ".hwpx":
		return KindHWPX
	case ".hwp":
		return KindHWP
	default:
		return KindUnknown
	}
}

// Detect classifies a blob. Containers are recognised by extension, single
// images by their declared type.
func Detect(b Blob) Kind {
	if k := archiveKind(b.Name); k != KindUnknown {
		return k
	}
	if IsRasterType(b.Type) {
		return KindRaster
	}
	return KindUnknown
}

// DetectName classifies a file by name alone.
func DetectName(name string) Kind {
	if k := archiveKind(name); k != KindUnknown {
		return k
	}
	if HasRasterExt(name) {
		return KindRaster
	}
	return KindUnknown
}

// IsRasterType reports whether a MIME type names an accepted raster format.
func IsRasterType(mimeType string) bool {
	return rasterTypePattern.MatchString(strings.ToLower(mimeType))
}

// HasRasterExt reports whether name ends in png, jpg, jpeg or webp.
func HasRasterExt(name string) bool {
	return rasterExtPattern.MatchString(name)
}

// Outcome tags an entry produced by Walk.
type Outcome int

const (
	Accepted Outcome = iota
	Skipped
	Failed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one item yielded by Walk. Blob.Data is only populated for
// accepted entries; Reason explains a skip and Err a failure.
type Entry struct {
	Blob    Blob
	Outcome Outcome
	Reason  string
	Err     error
}

func accepted(name, mimeType string, data []byte) Entry {
	return Entry{Blob: Blob{Name: name, Type: mimeType, Data: data}, Outcome: Accepted}
}

func skipped(name, reason string) Entry {
	return Entry{Blob: Blob{Name: name}, Outcome: Skipped, Reason: reason}
}

func failed(name string, err error) Entry {
	return Entry{Blob: Blob{Name: name}, Outcome: Failed, Err: err}
}

// Walk forwards every entry of b to fn in the container's own order. Entry
// bytes are read only for accepted entries. A failing entry is reported to fn
// and the walk continues; an error returned by fn stops the walk and is
// returned as is. An *ArchiveError is returned when the container cannot be
// opened.
func Walk(ctx context.Context, b Blob, fn func(Entry) error) error {
	switch kind := Detect(b); kind {
	case KindRaster:
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(accepted(b.Name, b.Type, b.Data))
	case KindZip, KindHWPX:
		return walkZip(ctx, b, fn)
	case KindHWP:
		return walkHWP(ctx, b, fn)
	default:
		return fn(skipped(b.Name, "unsupported type"))
	}
}

// Collect walks b and returns all entries in order.
func Collect(ctx context.Context, b Blob) ([]Entry, error) {
	var entries []Entry
	err := Walk(ctx, b, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}
