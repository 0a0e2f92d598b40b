// Package cli implements the imgframe command line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/config"
	"github.com/roboco-io/imgframe/internal/session"
)

var version = "dev"

// Environment overrides applied on top of the config file.
const (
	envOutputDir = "IMGFRAME_OUTPUT_DIR"
	envScaler    = "IMGFRAME_SCALER"
	envQuiet     = "IMGFRAME_QUIET"
)

var (
	rootConfigPath string
	rootVerbose    bool
	rootQuiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "imgframe",
	Short: "이미지를 제품 코드별 프레임 해상도로 일괄 리사이즈",
	Long: `imgframe은 이미지(PNG, JPEG, WebP)와 이미지가 담긴 컨테이너(ZIP, HWPX, HWP)를
파일 이름에 포함된 제품 코드의 프레임 해상도로 리사이즈하여 PNG로 내보냅니다.
코드가 없는 이미지는 원본 크기를 유지하며 너비와 높이를 직접 지정할 수 있습니다.

예시:
  imgframe resize 461A_photo.jpg banner.png
  imgframe resize photos.zip --zip
  imgframe shell
  imgframe watch ./inbox`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 정보 표시",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imgframe %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "설정 파일 경로 (기본: ~/.imgframe/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "상세 출력")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "조용한 모드")

	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the diagnostic logger for one command run.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet():
		level = slog.LevelError
	case rootVerbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newLoader() (*config.Loader, error) {
	if rootConfigPath != "" {
		return config.NewLoaderWithPath(rootConfigPath), nil
	}
	return config.NewLoader()
}

// loadConfig reads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, fmt.Errorf("설정 로더 초기화 실패: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("설정 로드 실패: %w", err)
	}
	cfg.Output.Dir = config.GetEnvOrDefault(envOutputDir, cfg.Output.Dir)
	cfg.Render.Scaler = config.GetEnvOrDefault(envScaler, cfg.Render.Scaler)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("잘못된 설정: %w", err)
	}
	return cfg, nil
}

// newSession creates a session from the configuration. A non-empty scaler
// overrides render.scaler.
func newSession(cmd *cobra.Command, cfg *config.Config, scaler string) (*session.Session, error) {
	if scaler == "" {
		scaler = cfg.Render.Scaler
	}
	return session.New(session.Options{
		Scaler:      scaler,
		Compression: cfg.Archive.Compression,
		Logger:      newLogger(cmd.ErrOrStderr()),
	})
}

// statusf prints a progress line unless --quiet is set.
func statusf(cmd *cobra.Command, format string, args ...any) {
	if quiet() {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}

func quiet() bool {
	return rootQuiet || config.GetEnvBool(envQuiet)
}
