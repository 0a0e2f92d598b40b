package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/sizecode"
)

var codesCmd = &cobra.Command{
	Use:   "codes [code...]",
	Short: "제품 코드별 프레임 해상도 목록",
	Long: `파일 이름에서 인식하는 제품 코드와 해상도 목록을 표시합니다.

코드는 대소문자를 구분하지 않으며, 파일 이름에 여러 코드가 포함되면
목록에서 먼저 나오는 코드가 적용됩니다.

코드를 지정하면 해당 코드만 표시합니다.

사용 예시:
  imgframe codes
  imgframe codes 461a 620C
  imgframe resize 461a_front.jpg   # 2040x3040`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := sizecode.Table()
		if len(args) > 0 {
			entries = entries[:0]
			for _, code := range args {
				e, ok := sizecode.Lookup(code)
				if !ok {
					return fmt.Errorf("알 수 없는 코드: %s", code)
				}
				entries = append(entries, e)
			}
		}
		printCodes(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(codesCmd)
}

func printCodes(out io.Writer, entries []sizecode.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "코드\t너비\t높이\t방향")
	fmt.Fprintln(w, "----\t----\t----\t----")

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Code, e.Size.Width, e.Size.Height, orientation(e.Size))
	}
}

func orientation(s sizecode.Size) string {
	switch {
	case s.Width > s.Height:
		return "가로"
	case s.Width < s.Height:
		return "세로"
	default:
		return "정사각형"
	}
}
