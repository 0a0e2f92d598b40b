package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/container"
	"github.com/roboco-io/imgframe/internal/registry"
	"github.com/roboco-io/imgframe/internal/session"
	"github.com/roboco-io/imgframe/internal/watch"
)

var (
	watchOutput string
	watchScaler string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "폴더를 감시하여 새 이미지를 자동으로 리사이즈",
	Long: `폴더에 추가되거나 변경된 이미지와 컨테이너를 자동으로 리사이즈하여
출력 디렉토리에 PNG로 저장합니다. 같은 내용의 파일은 한 번만 처리합니다.

Ctrl+C로 종료합니다.

예시:
  imgframe watch ./inbox
  imgframe watch ./inbox -o ./frames`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "출력 디렉토리 (기본: 설정의 output.dir)")
	watchCmd.Flags().StringVar(&watchScaler, "scaler", "", "보간 방식 (bilinear, approx-bilinear, catmull-rom, nearest)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("디렉토리를 찾을 수 없습니다: %s", dir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outDir := watchOutput
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if sameDir(dir, outDir) {
		return fmt.Errorf("감시 폴더와 출력 디렉토리가 같습니다: %s", dir)
	}
	debounce, err := cfg.DebounceDuration()
	if err != nil {
		return err
	}

	sess, err := newSession(cmd, cfg, watchScaler)
	if err != nil {
		return err
	}

	w, err := watch.New(dir, watch.Options{Debounce: debounce, Logger: newLogger(cmd.ErrOrStderr())})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusf(cmd, "감시 중: %s -> %s\n", dir, outDir)
	d := &dropHandler{cmd: cmd, sess: sess, outDir: outDir, seen: make(map[string]struct{})}
	for {
		select {
		case <-ctx.Done():
			statusf(cmd, "종료합니다 (처리 %d개)\n", d.written)
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := d.handle(ctx, ev.Path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "오류: %v\n", err)
			}
		}
	}
}

// dropHandler ingests dropped files and writes their renders. Files are
// deduplicated by content digest.
type dropHandler struct {
	cmd     *cobra.Command
	sess    *session.Session
	outDir  string
	seen    map[string]struct{}
	written int
}

func (d *dropHandler) handle(ctx context.Context, path string) error {
	blob, err := readBlob(path)
	if err != nil {
		return err
	}

	digest := registry.Fingerprint(blob.Data)
	if _, ok := d.seen[digest]; ok {
		statusf(d.cmd, "이미 처리됨: %s\n", blob.Name)
		return nil
	}
	d.seen[digest] = struct{}{}
	if kind := container.Detect(blob); kind.IsArchive() {
		statusf(d.cmd, "컨테이너 여는 중: %s (%s)\n", blob.Name, kind)
	}

	// Records are written out immediately; the session only holds one drop.
	defer d.sess.Clear()

	report := d.sess.Ingest(ctx, []container.Blob{blob})
	printReport(d.cmd, report, nil)
	for _, rec := range report.Records() {
		out, err := writeOutput(d.outDir, rec.Name, rec.Rendered)
		if err != nil {
			return err
		}
		d.written++
		statusf(d.cmd, "저장됨: %s (%s)\n", out, rec.Effective())
	}
	return report.Err
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
