package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/compress/zip"
)

// walkZip forwards the raster entries of a ZIP-based container in central
// directory order. HWPX documents keep their images under BinData/ and are
// walked the same way.
func walkZip(ctx context.Context, b Blob, fn func(Entry) error) error {
	r, err := zip.NewReader(bytes.NewReader(b.Data), int64(len(b.Data)))
	if err != nil {
		return &ArchiveError{Name: b.Name, Err: err}
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		var e Entry
		switch {
		case f.FileInfo().IsDir():
			e = skipped(f.Name, "directory")
		case !HasRasterExt(f.Name):
			e = skipped(f.Name, "not a raster entry")
		default:
			data, err := readZipFile(f)
			if err != nil {
				e = failed(f.Name, err)
			} else {
				// Entries carry no declared type; the decoder decides.
				e = accepted(path.Base(f.Name), "", data)
			}
		}

		if err := fn(e); err != nil {
			return err
		}
	}

	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	return data, nil
}
