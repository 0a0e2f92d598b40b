package registry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/roboco-io/imgframe/internal/sizecode"
)

// ErrIndexOutOfRange is returned for an index that names no record.
var ErrIndexOutOfRange = errors.New("record index out of range")

// Renderer renders a source image at a target size.
type Renderer interface {
	Render(ctx context.Context, src image.Image, size sizecode.Size) ([]byte, error)
}

// Axis selects the dimension changed by UpdateDimension.
type Axis int

const (
	Width Axis = iota
	Height
)

// String returns the string representation of the axis.
func (a Axis) String() string {
	if a == Height {
		return "height"
	}
	return "width"
}

// ParseAxis parses "width"/"w" or "height"/"h".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "width", "w":
		return Width, nil
	case "height", "h":
		return Height, nil
	default:
		return 0, fmt.Errorf("unknown axis: %s (expected width or height)", s)
	}
}

// Registry is an insertion-ordered list of records. Records are identified
// by position; names may repeat.
type Registry struct {
	mu       sync.RWMutex
	records  []*Record
	renderer Renderer
}

// New creates an empty registry that re-renders through renderer.
func New(renderer Renderer) *Registry {
	return &Registry{renderer: renderer}
}

// Append adds a fully rendered record at the end.
func (r *Registry) Append(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("cannot append nil record")
	}
	if len(rec.Rendered) == 0 {
		return fmt.Errorf("record %s has not been rendered", rec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Get returns the record at index i.
func (r *Registry) Get(i int) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(i)
}

func (r *Registry) get(i int) (*Record, error) {
	if i < 0 || i >= len(r.records) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(r.records))
	}
	return r.records[i], nil
}

// UpdateDimension sets one custom dimension of record i and re-renders it
// from its source. It reports whether the record changed. Non-positive
// values, unchanged values and records with fixed sizes are no-ops. When the
// render fails the record is left as it was.
func (r *Registry) UpdateDimension(ctx context.Context, i int, axis Axis, value int) (*Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.get(i)
	if err != nil {
		return nil, false, err
	}
	if value <= 0 || !rec.Custom {
		return rec, false, nil
	}

	next := rec.CustomSize
	if axis == Width {
		next.Width = value
	} else {
		next.Height = value
	}
	if next == rec.CustomSize {
		return rec, false, nil
	}

	rendered, err := r.renderer.Render(ctx, rec.source, next)
	if err != nil {
		return rec, false, fmt.Errorf("failed to re-render %s at %s: %w", rec.Name, next, err)
	}

	rec.CustomSize = next
	rec.Rendered = rendered
	return rec, true, nil
}

// Remove deletes record i; later records shift down by one.
func (r *Registry) Remove(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.get(i); err != nil {
		return err
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	return nil
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// List returns the records in order. The slice is a copy; the records are
// shared.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
