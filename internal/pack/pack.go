// Package pack assembles rendered records into a single ZIP archive.
package pack

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/roboco-io/imgframe/internal/registry"
)

// DefaultArchiveName is the file name offered for a full export.
const DefaultArchiveName = "exported-images.zip"

// Method selects how entries are stored in the archive.
type Method string

const (
	MethodStore   Method = "store"
	MethodDeflate Method = "deflate"
)

// ParseMethod parses an archive compression method. An empty name selects
// store.
func ParseMethod(name string) (Method, error) {
	switch Method(strings.ToLower(name)) {
	case "", MethodStore:
		return MethodStore, nil
	case MethodDeflate:
		return MethodDeflate, nil
	default:
		return "", fmt.Errorf("unknown archive compression: %s (supported: store, deflate)", name)
	}
}

func (m Method) zipMethod() uint16 {
	if m == MethodDeflate {
		return zip.Deflate
	}
	return zip.Store
}

// ArchiveError reports a failed export. The records are never modified by
// a failed export.
type ArchiveError struct {
	Entry string
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("archive export failed: %v", e.Err)
	}
	return fmt.Sprintf("archive export failed at %s: %v", e.Entry, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Packer writes records to a ZIP archive.
type Packer struct {
	Renderer registry.Renderer
	Method   Method
	Now      func() time.Time
}

// New creates a packer.
func New(renderer registry.Renderer, method Method) *Packer {
	return &Packer{Renderer: renderer, Method: method, Now: time.Now}
}

// Pack re-renders every record from its source at its current effective
// size and streams the results to w, one entry per distinct name. When
// names repeat, the entry sits at the first occurrence's position and holds
// the last occurrence's image.
func (p *Packer) Pack(ctx context.Context, records []*registry.Record, w io.Writer) error {
	winner := make(map[string]*registry.Record, len(records))
	for _, rec := range records {
		winner[rec.Name] = rec
	}

	modified := time.Now()
	if p.Now != nil {
		modified = p.Now()
	}

	zw := zip.NewWriter(w)
	written := make(map[string]bool, len(winner))
	for _, rec := range records {
		if written[rec.Name] {
			continue
		}
		written[rec.Name] = true

		src := winner[rec.Name]
		data, err := p.Renderer.Render(ctx, src.Source(), src.Effective())
		if err != nil {
			return &ArchiveError{Entry: rec.Name, Err: err}
		}

		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     rec.Name,
			Method:   p.Method.zipMethod(),
			Modified: modified,
		})
		if err != nil {
			return &ArchiveError{Entry: rec.Name, Err: err}
		}
		if _, err := f.Write(data); err != nil {
			return &ArchiveError{Entry: rec.Name, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return &ArchiveError{Err: err}
	}
	return nil
}
