package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/registry"
)

var (
	resizeOutput      string
	resizeZip         bool
	resizeArchiveName string
	resizeSets        []string
	resizeScaler      string
)

var resizeCmd = &cobra.Command{
	Use:   "resize <file>...",
	Short: "이미지를 일괄 리사이즈하여 PNG로 저장",
	Long: `이미지와 컨테이너(ZIP, HWPX, HWP)를 읽어 리사이즈한 뒤 PNG로 저장합니다.

파일 이름(첫 번째 '.' 앞부분)에 제품 코드가 있으면 해당 프레임 해상도로,
없으면 원본 크기로 렌더링합니다. 코드가 없는 이미지는 --set 으로 크기를
지정할 수 있습니다. 번호는 출력 목록의 순서(1부터)입니다.

예시:
  imgframe resize 461A_photo.jpg
  imgframe resize photos.zip -o ./out
  imgframe resize banner.png --set 1:400x600
  imgframe resize a.png b.png --set 2:width=1200 --zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().StringVarP(&resizeOutput, "output", "o", "", "출력 디렉토리 (기본: 설정의 output.dir)")
	resizeCmd.Flags().BoolVar(&resizeZip, "zip", false, "하나의 ZIP 파일로 내보내기")
	resizeCmd.Flags().StringVar(&resizeArchiveName, "archive-name", "", "ZIP 파일 이름 (기본: 설정의 output.archive_name)")
	resizeCmd.Flags().StringArrayVar(&resizeSets, "set", nil, "사용자 지정 크기 (N:WxH, N:width=V, N:height=V)")
	resizeCmd.Flags().StringVar(&resizeScaler, "scaler", "", "보간 방식 (bilinear, approx-bilinear, catmull-rom, nearest)")

	rootCmd.AddCommand(resizeCmd)
}

// dimensionEdit is one parsed --set value.
type dimensionEdit struct {
	Index int // 0-based
	Axis  registry.Axis
	Value int
}

// parseSet parses "N:WxH", "N:width=V" or "N:height=V" with a 1-based N.
func parseSet(s string) ([]dimensionEdit, error) {
	idx, dims, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("잘못된 --set 값: %s (형식: N:WxH 또는 N:width=V)", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("잘못된 이미지 번호: %s", idx)
	}

	if key, val, ok := strings.Cut(dims, "="); ok {
		axis, err := registry.ParseAxis(key)
		if err != nil {
			return nil, err
		}
		v, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("잘못된 크기 값: %s", val)
		}
		return []dimensionEdit{{Index: n - 1, Axis: axis, Value: v}}, nil
	}

	w, h, ok := strings.Cut(strings.ToLower(dims), "x")
	if !ok {
		return nil, fmt.Errorf("잘못된 --set 값: %s (형식: N:WxH 또는 N:width=V)", s)
	}
	wv, err := strconv.Atoi(w)
	if err != nil {
		return nil, fmt.Errorf("잘못된 너비 값: %s", w)
	}
	hv, err := strconv.Atoi(h)
	if err != nil {
		return nil, fmt.Errorf("잘못된 높이 값: %s", h)
	}
	return []dimensionEdit{
		{Index: n - 1, Axis: registry.Width, Value: wv},
		{Index: n - 1, Axis: registry.Height, Value: hv},
	}, nil
}

func runResize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Parse edits up front so typos fail before any work is done
	var edits []dimensionEdit
	for _, s := range resizeSets {
		e, err := parseSet(s)
		if err != nil {
			return err
		}
		edits = append(edits, e...)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outDir := resizeOutput
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	archiveName := resizeArchiveName
	if archiveName == "" {
		archiveName = cfg.Output.ArchiveName
	}

	sess, err := newSession(cmd, cfg, resizeScaler)
	if err != nil {
		return err
	}

	blobs, readErrs := readBlobs(args)
	report := sess.Ingest(ctx, blobs)
	failures := printReport(cmd, report, readErrs)
	if report.Err != nil {
		return report.Err
	}

	for _, e := range edits {
		rec, changed, err := sess.SetDimension(ctx, e.Index, e.Axis, e.Value)
		if err != nil {
			return fmt.Errorf("이미지 %d 크기 변경 실패: %w", e.Index+1, err)
		}
		if !changed && (e.Value <= 0 || !rec.Custom) {
			statusf(cmd, "이미지 %d (%s): %s 변경 무시됨\n", e.Index+1, rec.Name, e.Axis)
		}
	}

	records := sess.List()
	if len(records) == 0 {
		if failures > 0 {
			return fmt.Errorf("처리된 이미지가 없습니다 (오류 %d건)", failures)
		}
		statusf(cmd, "처리할 이미지가 없습니다\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for i, rec := range records {
		fmt.Fprintf(w, "%d\t%s\n", i+1, describe(rec))
	}
	w.Flush()

	if resizeZip {
		path := filepath.Join(outDir, archiveName)
		n, err := writeArchive(ctx, sess, path)
		if err != nil {
			return err
		}
		statusf(cmd, "내보내기 완료: %s (%d개 이미지, %s)\n", path, len(records), humanize.Bytes(uint64(n)))
		return nil
	}

	for i, rec := range records {
		data, err := sess.ExportOne(i)
		if err != nil {
			return err
		}
		path, err := writeOutput(outDir, rec.Name, data)
		if err != nil {
			return err
		}
		statusf(cmd, "저장됨: %s\n", path)
	}
	return nil
}
