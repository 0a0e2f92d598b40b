package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/container"
	"github.com/roboco-io/imgframe/internal/registry"
	"github.com/roboco-io/imgframe/internal/session"
)

// readBlob loads one input file. The declared type comes from the file
// extension, or from the content when the extension is not recognised.
func readBlob(path string) (container.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return container.Blob{}, fmt.Errorf("파일을 찾을 수 없습니다: %s", path)
		}
		return container.Blob{}, fmt.Errorf("파일 읽기 실패: %w", err)
	}
	name := filepath.Base(path)
	return container.Blob{Name: name, Type: container.DeclaredType(name, data), Data: data}, nil
}

// readBlobs loads every path it can and returns the read failures
// separately so the batch can continue.
func readBlobs(paths []string) ([]container.Blob, []error) {
	var blobs []container.Blob
	var errs []error
	for _, p := range paths {
		b, err := readBlob(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		blobs = append(blobs, b)
	}
	return blobs, errs
}

// writeOutput writes data to dir/name, creating dir as needed.
func writeOutput(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("출력 디렉토리 생성 실패: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("파일 저장 실패: %w", err)
	}
	return path, nil
}

// writeArchive streams the session archive to path.
func writeArchive(ctx context.Context, sess *session.Session, path string) (int64, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("출력 디렉토리 생성 실패: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("압축 파일 생성 실패: %w", err)
	}

	cw := &countingWriter{w: f}
	if err := sess.ExportAllTo(ctx, cw); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("압축 파일 생성 실패: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("압축 파일 저장 실패: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// describe renders a one-line summary of a record.
func describe(rec *registry.Record) string {
	mode := rec.Code
	if rec.Custom {
		mode = "사용자 지정"
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s", rec.Name, rec.Effective(), mode, humanize.Bytes(uint64(len(rec.Rendered))))
}

// printReport prints the ingest errors of a batch. Records are listed by
// the caller.
func printReport(cmd *cobra.Command, report *session.Report, readErrs []error) int {
	n := 0
	for _, err := range readErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "오류: %v\n", err)
		n++
	}
	for _, err := range report.Errors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "오류: %v\n", err)
		n++
	}
	if report.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "중단됨: %v\n", report.Err)
	}
	if len(report.Skipped) > 0 {
		statusf(cmd, "건너뜀: %d개 항목 (지원하지 않는 형식)\n", len(report.Skipped))
	}
	return n
}
