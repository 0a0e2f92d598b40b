// Package session ties ingestion, the image registry and export together
// behind one API used by every front end.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roboco-io/imgframe/internal/container"
	"github.com/roboco-io/imgframe/internal/pack"
	"github.com/roboco-io/imgframe/internal/raster"
	"github.com/roboco-io/imgframe/internal/registry"
)

// Options configures a Session.
type Options struct {
	Scaler      string       // interpolation used for every render
	Compression string       // archive entry method: store or deflate
	Logger      *slog.Logger // nil discards
}

// Session owns one registry and the renderer shared by ingestion, edits and
// exports. All operations are serialized.
type Session struct {
	mu       sync.Mutex
	renderer *raster.Renderer
	registry *registry.Registry
	packer   *pack.Packer
	logger   *slog.Logger
}

// New creates an empty session.
func New(opts Options) (*Session, error) {
	renderer, err := raster.NewRenderer(raster.Options{Scaler: opts.Scaler})
	if err != nil {
		return nil, err
	}
	method, err := pack.ParseMethod(opts.Compression)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		renderer: renderer,
		registry: registry.New(renderer),
		packer:   pack.New(renderer, method),
		logger:   logger,
	}, nil
}

// IngestError reports one input item that produced no record.
type IngestError struct {
	Name string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one forwarded item: either a record or an error.
type Result struct {
	Index  int // registry index, -1 on error
	Record *registry.Record
	Err    *IngestError
}

// Report aggregates a batch ingestion.
type Report struct {
	Results []Result
	Skipped []container.Entry
	Err     error // set when the batch was cut short by cancellation
}

// Records returns the records added by the batch.
func (r *Report) Records() []*registry.Record {
	var out []*registry.Record
	for _, res := range r.Results {
		if res.Record != nil {
			out = append(out, res.Record)
		}
	}
	return out
}

// Errors returns the per-item failures of the batch.
func (r *Report) Errors() []*IngestError {
	var out []*IngestError
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Err)
		}
	}
	return out
}

// Ingest processes blobs one at a time in order. Containers fan out into
// their entries. A failing item is recorded in the report and the batch
// continues; a record is appended only after it decoded and rendered.
func (s *Session) Ingest(ctx context.Context, blobs []container.Blob) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{}
	for _, blob := range blobs {
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}

		err := container.Walk(ctx, blob, func(e container.Entry) error {
			switch e.Outcome {
			case container.Skipped:
				s.logger.Debug("skipping entry", "source", blob.Name, "entry", e.Blob.Name, "reason", e.Reason)
				report.Skipped = append(report.Skipped, e)
			case container.Failed:
				s.logger.Warn("failed to read entry", "source", blob.Name, "entry", e.Blob.Name, "error", e.Err)
				report.Results = append(report.Results, Result{Index: -1, Err: &IngestError{Name: e.Blob.Name, Err: e.Err}})
			case container.Accepted:
				report.Results = append(report.Results, s.ingestOne(ctx, e.Blob))
			}
			return ctx.Err()
		})
		if err != nil {
			if ctx.Err() != nil {
				report.Err = ctx.Err()
				break
			}
			s.logger.Warn("failed to open container", "source", blob.Name, "error", err)
			report.Results = append(report.Results, Result{Index: -1, Err: &IngestError{Name: blob.Name, Err: err}})
		}
	}

	s.logger.Info("ingest finished",
		"records", len(report.Records()), "errors", len(report.Errors()), "skipped", len(report.Skipped))
	return report
}

func (s *Session) ingestOne(ctx context.Context, b container.Blob) Result {
	src, err := raster.Decode(b.Name, b.Data)
	if err != nil {
		s.logger.Warn("failed to decode image", "name", b.Name, "error", err)
		return Result{Index: -1, Err: &IngestError{Name: b.Name, Err: err}}
	}

	rec := registry.NewRecord(b.Name, b.Data, src)
	rendered, err := s.renderer.Render(ctx, src, rec.Effective())
	if err != nil {
		s.logger.Warn("failed to render image", "name", b.Name, "error", err)
		return Result{Index: -1, Err: &IngestError{Name: b.Name, Err: err}}
	}
	rec.Rendered = rendered

	if err := s.registry.Append(rec); err != nil {
		return Result{Index: -1, Err: &IngestError{Name: b.Name, Err: err}}
	}

	s.logger.Debug("image added", "name", rec.Name, "source", b.Name, "size", rec.Effective().String(), "custom", rec.Custom)
	return Result{Index: s.registry.Len() - 1, Record: rec}
}

// SetDimension changes one custom dimension of record i and re-renders it.
// The boolean is false when the call was a no-op: a non-positive value, an
// unchanged value, or a record with a code-fixed size.
func (s *Session) SetDimension(ctx context.Context, i int, axis registry.Axis, value int) (*registry.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, changed, err := s.registry.UpdateDimension(ctx, i, axis, value)
	if err != nil {
		return rec, false, err
	}
	if changed {
		s.logger.Debug("image resized", "index", i, "name", rec.Name, "size", rec.Effective().String())
	}
	return rec, changed, nil
}

// Remove deletes record i.
func (s *Session) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Remove(i)
}

// Clear removes every record. Callers confirm with the user first.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Clear()
}

// List returns the records in order.
func (s *Session) List() []*registry.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Len()
}

// Get returns record i.
func (s *Session) Get(i int) (*registry.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Get(i)
}

// ExportOne returns a copy of the current rendered bytes of record i.
func (s *Session) ExportOne(i int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.registry.Get(i)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(rec.Rendered), nil
}

// ExportAll returns a ZIP archive of every record rendered at its current
// size.
func (s *Session) ExportAll(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.ExportAllTo(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportAllTo streams the archive of ExportAll to w.
func (s *Session) ExportAllTo(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.registry.List()
	if err := s.packer.Pack(ctx, records, w); err != nil {
		s.logger.Error("export failed", "error", err)
		return err
	}
	s.logger.Info("export finished", "records", len(records))
	return nil
}
