package container

import (
	"bytes"
	"path"
	"strings"
)

// The file signature, used for determining the type of file.
type magic struct {
	offset int
	sig    []byte
	mime   string
}

// A lookup table of magic numbers against raster types.
var magicTable = []magic{
	{0, []byte{0x89, 'P', 'N', 'G'}, "image/png"},
	{0, []byte{0xff, 0xd8, 0xff}, "image/jpeg"},
	{0, []byte("GIF8"), "image/gif"},
	{8, []byte("WEBP"), "image/webp"},
}

var extTypeLookup = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".zip":  "application/zip",
	".hwpx": "application/hwp+zip",
	".hwp":  "application/x-hwp",
}

// SniffType returns the raster MIME type implied by the leading bytes of
// data, or "" when none matches.
func SniffType(data []byte) string {
	for _, m := range magicTable {
		end := m.offset + len(m.sig)
		if len(data) < end {
			continue
		}
		if bytes.Equal(data[m.offset:end], m.sig) {
			if m.mime == "image/webp" && !bytes.HasPrefix(data, []byte("RIFF")) {
				continue
			}
			return m.mime
		}
	}
	return ""
}

// TypeByName returns the MIME type implied by a file extension, or "".
func TypeByName(name string) string {
	return extTypeLookup[strings.ToLower(path.Ext(name))]
}

// DeclaredType picks the type a file would be declared with: by extension
// first, then by content.
func DeclaredType(name string, data []byte) string {
	if t := TypeByName(name); t != "" {
		return t
	}
	return SniffType(data)
}
