package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/richardlehane/mscfb"
)

// HWP 5.x compound document layout.
const (
	hwpSignature      = "HWP Document File"
	hwpHeaderSize     = 256
	hwpStreamHeader   = "FileHeader"
	hwpStorageBinData = "BinData"

	hwpFlagCompressed uint32 = 1 << 0
	hwpFlagEncrypted  uint32 = 1 << 1
	hwpFlagDRM        uint32 = 1 << 4
)

// hwpHeader is the part of the HWP FileHeader stream that matters for
// extracting embedded images.
type hwpHeader struct {
	Version string
	Flags   uint32
}

func (h *hwpHeader) compressed() bool {
	return h.Flags&hwpFlagCompressed != 0
}

func (h *hwpHeader) encrypted() bool {
	return h.Flags&(hwpFlagEncrypted|hwpFlagDRM) != 0
}

// parseHWPHeader parses the FileHeader stream.
func parseHWPHeader(data []byte) (*hwpHeader, error) {
	if len(data) < hwpHeaderSize {
		return nil, fmt.Errorf("file header too small: %d bytes", len(data))
	}

	sig := string(bytes.TrimRight(data[0:32], "\x00"))
	if sig != hwpSignature {
		return nil, fmt.Errorf("invalid HWP signature: %q", sig)
	}

	// Version bytes are stored as [Revision][Build][Minor][Major].
	return &hwpHeader{
		Version: fmt.Sprintf("%d.%d.%d.%d", data[35], data[34], data[33], data[32]),
		Flags:   binary.LittleEndian.Uint32(data[36:40]),
	}, nil
}

// hwpStream is one directory entry of a compound document.
type hwpStream struct {
	path []string
	name string
	r    io.Reader
}

func (s hwpStream) fullPath() string {
	return strings.Join(append(append([]string{}, s.path...), s.name), "/")
}

// walkHWP forwards the raster streams stored under BinData in directory
// order, inflating them when the document is compressed.
func walkHWP(ctx context.Context, b Blob, fn func(Entry) error) error {
	doc, err := mscfb.New(bytes.NewReader(b.Data))
	if err != nil {
		return &ArchiveError{Name: b.Name, Err: fmt.Errorf("OLE2 document: %w", err)}
	}

	streams := make([]hwpStream, 0, len(doc.File))
	for _, entry := range doc.File {
		streams = append(streams, hwpStream{path: entry.Path, name: entry.Name, r: entry})
	}
	return walkHWPStreams(ctx, b.Name, streams, fn)
}

func walkHWPStreams(ctx context.Context, name string, streams []hwpStream, fn func(Entry) error) error {
	var header *hwpHeader
	for _, s := range streams {
		if s.name == hwpStreamHeader && !inBinData(s.path) {
			data, err := io.ReadAll(s.r)
			if err != nil {
				return &ArchiveError{Name: name, Err: err}
			}
			if header, err = parseHWPHeader(data); err != nil {
				return &ArchiveError{Name: name, Err: err}
			}
			break
		}
	}
	if header == nil {
		return &ArchiveError{Name: name, Err: errors.New("FileHeader stream not found")}
	}
	if header.encrypted() {
		return &ArchiveError{Name: name, Err: ErrEncrypted}
	}

	for _, s := range streams {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !inBinData(s.path) {
			continue
		}

		var e Entry
		if !HasRasterExt(s.name) {
			e = skipped(s.fullPath(), "not a raster entry")
		} else {
			data, err := io.ReadAll(s.r)
			if err == nil && header.compressed() {
				data, err = inflate(data)
			}
			if err != nil {
				e = failed(s.fullPath(), err)
			} else {
				e = accepted(s.name, "", data)
			}
		}

		if err := fn(e); err != nil {
			return err
		}
	}

	return nil
}

func inBinData(p []string) bool {
	for _, s := range p {
		if s == hwpStorageBinData {
			return true
		}
	}
	return false
}

// inflate decompresses a BinData stream. HWP uses raw deflate; a zlib header
// is tolerated. Streams that already look like an image are returned as is,
// since some writers store pictures uncompressed inside compressed documents.
func inflate(data []byte) ([]byte, error) {
	if SniffType(data) != "" {
		return data, nil
	}

	if len(data) >= 2 && data[0] == 0x78 {
		if r, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			out, err := io.ReadAll(r)
			r.Close()
			if err == nil {
				return out, nil
			}
		}
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress stream (tried zlib and deflate): %w", err)
	}
	return out, nil
}
