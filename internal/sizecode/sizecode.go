// Package sizecode maps product codes embedded in file names to fixed frame
// resolutions.
package sizecode

import (
	"fmt"
	"path"
	"strings"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// String returns the size as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Entry is one row of the code table.
type Entry struct {
	Code string `json:"code"`
	Size Size   `json:"size"`
}

// table is matched in declaration order. Within a family the orientation
// differs between codes (158A vs 158D, 264A vs 264C); the values are exact.
var table = []Entry{
	{"158A", Size{1080, 1720}},
	{"158B", Size{1080, 1720}},
	{"158C", Size{1080, 1720}},
	{"158D", Size{1720, 1080}},
	{"158E", Size{1720, 1080}},
	{"264A", Size{1020, 3040}},
	{"264B", Size{1020, 3040}},
	{"264C", Size{3040, 1020}},
	{"264D", Size{3040, 1020}},
	{"264E", Size{2040, 3040}},
	{"461A", Size{2040, 3040}},
	{"461B", Size{3040, 2040}},
	{"463A", Size{2040, 3040}},
	{"463B", Size{3040, 2040}},
	{"464A", Size{2040, 3040}},
	{"464B", Size{3040, 2040}},
	{"466A", Size{2040, 3040}},
	{"466B", Size{3040, 2040}},
	{"468A", Size{2040, 3040}},
	{"468B", Size{3040, 2040}},
	{"620A", Size{3060, 10200}},
	{"620B", Size{10200, 3060}},
	{"620C", Size{10200, 3060}},
}

// Resolve returns the first table entry whose code occurs in identifier.
// Matching is case-insensitive; when several codes occur, the one declared
// first in the table wins.
func Resolve(identifier string) (Entry, bool) {
	upper := strings.ToUpper(identifier)
	for _, e := range table {
		if strings.Contains(upper, e.Code) {
			return e, true
		}
	}
	return Entry{}, false
}

// Lookup returns the entry for an exact code.
func Lookup(code string) (Entry, bool) {
	code = strings.ToUpper(code)
	for _, e := range table {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}

// Table returns a copy of the code table in declaration order.
func Table() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

// Stem returns the base name of a file up to its first dot, so that
// "dir/461A_photo.final.jpg" yields "461A_photo".
func Stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}
