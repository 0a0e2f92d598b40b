package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/config"
	"github.com/roboco-io/imgframe/internal/registry"
	"github.com/roboco-io/imgframe/internal/session"
	"github.com/roboco-io/imgframe/internal/sizecode"
)

var shellScaler string

var shellCmd = &cobra.Command{
	Use:   "shell [file...]",
	Short: "대화형 세션에서 이미지 추가, 크기 변경, 내보내기",
	Long: `표준 입력으로 명령을 받아 이미지 목록을 관리합니다.
인자로 준 파일은 시작할 때 추가됩니다.

명령:
  add <path>...                  이미지 또는 컨테이너 추가
  list                           이미지 목록
  set <n> width|height <value>   사용자 지정 크기 변경
  rm <n>                         이미지 삭제
  clear                          모든 이미지 삭제 (확인 필요)
  save <n> [path]                이미지 하나 저장
  export [path]                  모든 이미지를 ZIP으로 저장
  codes                          제품 코드 목록
  help                           도움말
  quit                           종료`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVar(&shellScaler, "scaler", "", "보간 방식 (bilinear, approx-bilinear, catmull-rom, nearest)")

	rootCmd.AddCommand(shellCmd)
}

// shell is one interactive session reading commands line by line.
type shell struct {
	cmd  *cobra.Command
	cfg  *config.Config
	sess *session.Session
	in   *bufio.Scanner
	out  io.Writer
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := newSession(cmd, cfg, shellScaler)
	if err != nil {
		return err
	}

	sh := &shell{
		cmd:  cmd,
		cfg:  cfg,
		sess: sess,
		in:   bufio.NewScanner(cmd.InOrStdin()),
		out:  cmd.OutOrStdout(),
	}
	if len(args) > 0 {
		sh.add(cmd.Context(), args)
	}
	return sh.run(cmd.Context())
}

func (sh *shell) prompt() {
	if !quiet() {
		fmt.Fprint(sh.out, "imgframe> ")
	}
}

func (sh *shell) run(ctx context.Context) error {
	for sh.prompt(); sh.in.Scan(); sh.prompt() {
		if err := ctx.Err(); err != nil {
			return err
		}

		fields := strings.Fields(sh.in.Text())
		if len(fields) == 0 {
			continue
		}

		name, args := fields[0], fields[1:]
		var err error
		switch name {
		case "add":
			err = sh.add(ctx, args)
		case "list", "ls":
			sh.list()
		case "set":
			err = sh.set(ctx, args)
		case "rm", "remove":
			err = sh.remove(args)
		case "clear":
			sh.clear()
		case "save":
			err = sh.save(args)
		case "export":
			err = sh.export(ctx, args)
		case "codes":
			printCodes(sh.out, sizecode.Table())
		case "help":
			fmt.Fprintln(sh.out, sh.cmd.Long)
		case "quit", "exit":
			return nil
		default:
			err = fmt.Errorf("알 수 없는 명령: %s (help 참고)", name)
		}
		if err != nil {
			fmt.Fprintf(sh.cmd.ErrOrStderr(), "오류: %v\n", err)
		}
	}
	return sh.in.Err()
}

func (sh *shell) add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("사용법: add <path>...")
	}

	before := sh.sess.Len()
	blobs, readErrs := readBlobs(paths)
	report := sh.sess.Ingest(ctx, blobs)
	printReport(sh.cmd, report, readErrs)

	added := sh.sess.Len() - before
	statusf(sh.cmd, "추가됨: %d개 이미지 (전체 %d개)\n", added, sh.sess.Len())
	return nil
}

func (sh *shell) list() {
	records := sh.sess.List()
	if len(records) == 0 {
		fmt.Fprintln(sh.out, "이미지가 없습니다")
		return
	}

	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for i, rec := range records {
		fmt.Fprintf(w, "%d\t%s\n", i+1, describe(rec))
	}
}

// index parses a 1-based record number.
func (sh *shell) index(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > sh.sess.Len() {
		return 0, fmt.Errorf("잘못된 이미지 번호: %s", s)
	}
	return n - 1, nil
}

func (sh *shell) set(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("사용법: set <n> width|height <value>")
	}
	i, err := sh.index(args[0])
	if err != nil {
		return err
	}
	axis, err := registry.ParseAxis(args[1])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("잘못된 크기 값: %s", args[2])
	}

	rec, changed, err := sh.sess.SetDimension(ctx, i, axis, value)
	if err != nil {
		return err
	}
	switch {
	case changed:
		fmt.Fprintf(sh.out, "%d\t%s\n", i+1, describe(rec))
	case !rec.Custom:
		statusf(sh.cmd, "%s: 제품 코드 크기는 변경할 수 없습니다\n", rec.Name)
	case value <= 0:
		statusf(sh.cmd, "크기는 1 이상이어야 합니다\n")
	}
	return nil
}

func (sh *shell) remove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("사용법: rm <n>")
	}
	i, err := sh.index(args[0])
	if err != nil {
		return err
	}
	return sh.sess.Remove(i)
}

func (sh *shell) clear() {
	if sh.sess.Len() == 0 {
		return
	}
	fmt.Fprintf(sh.out, "모든 이미지(%d개)를 삭제할까요? [y/N] ", sh.sess.Len())
	if !sh.in.Scan() {
		return
	}
	switch strings.ToLower(strings.TrimSpace(sh.in.Text())) {
	case "y", "yes":
		sh.sess.Clear()
		statusf(sh.cmd, "모든 이미지를 삭제했습니다\n")
	default:
		statusf(sh.cmd, "취소됨\n")
	}
}

func (sh *shell) save(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("사용법: save <n> [path]")
	}
	i, err := sh.index(args[0])
	if err != nil {
		return err
	}
	rec, err := sh.sess.Get(i)
	if err != nil {
		return err
	}
	data, err := sh.sess.ExportOne(i)
	if err != nil {
		return err
	}

	dir, name := sh.cfg.Output.Dir, rec.Name
	if len(args) == 2 {
		dir, name = splitTarget(args[1], rec.Name)
	}
	path, err := writeOutput(dir, name, data)
	if err != nil {
		return err
	}
	statusf(sh.cmd, "저장됨: %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	return nil
}

func (sh *shell) export(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("사용법: export [path]")
	}
	if sh.sess.Len() == 0 {
		return fmt.Errorf("내보낼 이미지가 없습니다")
	}

	dir, name := sh.cfg.Output.Dir, sh.cfg.Output.ArchiveName
	if len(args) == 1 {
		dir, name = splitTarget(args[0], name)
	}
	path := filepath.Join(dir, name)
	n, err := writeArchive(ctx, sh.sess, path)
	if err != nil {
		return err
	}
	statusf(sh.cmd, "내보내기 완료: %s (%d개 이미지, %s)\n", path, sh.sess.Len(), humanize.Bytes(uint64(n)))
	return nil
}

// splitTarget interprets a user path: an existing directory receives
// defaultName, anything else is taken as the file path.
func splitTarget(target, defaultName string) (dir, name string) {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return target, defaultName
	}
	return filepath.Dir(target), filepath.Base(target)
}
