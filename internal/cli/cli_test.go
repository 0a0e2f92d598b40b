package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"

	"github.com/roboco-io/imgframe/internal/raster"
	"github.com/roboco-io/imgframe/internal/session"
	"github.com/roboco-io/imgframe/internal/sizecode"
)

func resetFlags() {
	rootConfigPath = ""
	rootVerbose = false
	rootQuiet = false
	resizeOutput = ""
	resizeZip = false
	resizeArchiveName = ""
	resizeSets = nil
	resizeScaler = ""
	shellScaler = ""
	watchOutput = ""
	watchScaler = ""
	configForce = false
}

// execute runs the root command in-process with an isolated config file.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Setenv(envOutputDir, "")
	t.Setenv(envScaler, "")
	t.Setenv(envQuiet, "")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func fileSize(t *testing.T, path string) sizecode.Size {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	size, err := raster.Dimensions(data)
	if err != nil {
		t.Fatalf("failed to read dimensions of %s: %v", path, err)
	}
	return size
}

func TestSetVersion(t *testing.T) {
	oldVersion := version
	defer func() { version = oldVersion }()

	SetVersion("1.2.3")
	if version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", version)
	}

	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != "imgframe 1.2.3" {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "imgframe" {
		t.Errorf("expected Use 'imgframe', got '%s'", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	for _, name := range []string{"resize", "shell", "watch", "codes", "config", "version"} {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand '%s' to exist", name)
		}
	}
}

func TestResizeCommandFlags(t *testing.T) {
	if resizeCmd.Use != "resize <file>..." {
		t.Errorf("expected Use 'resize <file>...', got '%s'", resizeCmd.Use)
	}

	flags := []string{"output", "zip", "archive-name", "set", "scaler"}
	for _, flag := range flags {
		if resizeCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag '%s' to exist", flag)
		}
	}
	for _, flag := range []string{"config", "verbose", "quiet"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag '%s' to exist", flag)
		}
	}
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		input   string
		want    []dimensionEdit
		wantErr bool
	}{
		{"1:400x600", []dimensionEdit{{0, 0, 400}, {0, 1, 600}}, false},
		{"3:800X200", []dimensionEdit{{2, 0, 800}, {2, 1, 200}}, false},
		{"2:width=1200", []dimensionEdit{{1, 0, 1200}}, false},
		{"2:h=50", []dimensionEdit{{1, 1, 50}}, false},
		{"1:width=0", []dimensionEdit{{0, 0, 0}}, false},
		{"400x600", nil, true},
		{"0:400x600", nil, true},
		{"a:400x600", nil, true},
		{"1:depth=3", nil, true},
		{"1:400", nil, true},
		{"1:wx600", nil, true},
		{"1:width=big", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseSet(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseSet(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if len(got) != len(tc.want) {
				t.Fatalf("parseSet(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i].Index != tc.want[i].Index || int(got[i].Axis) != int(tc.want[i].Axis) || got[i].Value != tc.want[i].Value {
					t.Errorf("parseSet(%q)[%d] = %+v, want %+v", tc.input, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestResize_WritesFiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "frames")
	coded := writeFile(t, in, "461A_photo.png", encodePNG(t, 16, 12))
	custom := writeFile(t, in, "banner.png", encodePNG(t, 80, 60))

	stdout, _, err := execute(t, "", "resize", coded, custom, "-o", out, "--set", "2:40x30")
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	if got := fileSize(t, filepath.Join(out, "461A.png")); got != (sizecode.Size{Width: 2040, Height: 3040}) {
		t.Errorf("expected 461A.png at 2040x3040, got %s", got)
	}
	if got := fileSize(t, filepath.Join(out, "banner.png")); got != (sizecode.Size{Width: 40, Height: 30}) {
		t.Errorf("expected banner.png at 40x30, got %s", got)
	}
	if !strings.Contains(stdout, "461A.png") || !strings.Contains(stdout, "banner.png") {
		t.Errorf("expected summary to list both images, got:\n%s", stdout)
	}
}

func TestResize_Zip(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range []struct {
		name string
		data []byte
	}{
		{"a.png", encodePNG(t, 4, 4)},
		{"readme.txt", []byte("hello")},
		{"nested/b.png", encodePNG(t, 6, 2)},
	} {
		f, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		f.Write(e.data)
	}
	zw.Close()
	archive := writeFile(t, in, "batch.zip", buf.Bytes())

	_, _, err := execute(t, "", "resize", archive, "-o", out, "--zip", "--archive-name", "frames.zip")
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	zr, err := zip.OpenReader(filepath.Join(out, "frames.zip"))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "a.png,b.png" {
		t.Errorf("expected entries a.png,b.png, got %v", names)
	}
}

func TestResize_Failures(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	corrupt := writeFile(t, in, "broken.png", []byte("not a png"))
	good := writeFile(t, in, "ok.png", encodePNG(t, 3, 3))

	// Nothing produced: non-zero exit.
	_, stderr, err := execute(t, "", "resize", corrupt, filepath.Join(in, "missing.png"), "-o", out)
	if err == nil {
		t.Error("expected error when every input fails")
	}
	if !strings.Contains(stderr, "broken.png") {
		t.Errorf("expected error report for broken.png, got:\n%s", stderr)
	}

	// Partial success: the batch continues and succeeds.
	_, _, err = execute(t, "", "resize", corrupt, good, "-o", out)
	if err != nil {
		t.Fatalf("expected partial batch to succeed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "ok.png")); err != nil {
		t.Errorf("expected ok.png to be written: %v", err)
	}
}

func TestResize_InvalidSet(t *testing.T) {
	in := t.TempDir()
	img := writeFile(t, in, "a.png", encodePNG(t, 3, 3))

	if _, _, err := execute(t, "", "resize", img, "-o", t.TempDir(), "--set", "bogus"); err == nil {
		t.Error("expected error for malformed --set")
	}
	if _, _, err := execute(t, "", "resize", img, "-o", t.TempDir(), "--set", "5:10x10"); err == nil {
		t.Error("expected error for out-of-range --set index")
	}
}

func TestShell(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	img := writeFile(t, in, "poster.png", encodePNG(t, 20, 10))

	script := strings.Join([]string{
		"list",
		"set 1 width 50",
		"set 1 height 0",
		"save 1",
		"export",
		"bogus",
		"clear",
		"y",
		"list",
		"quit",
	}, "\n") + "\n"

	t.Setenv(envOutputDir, out)
	resetFlags()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(script))
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "config.yaml"), "shell", img})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("shell failed: %v", err)
	}

	if got := fileSize(t, filepath.Join(out, "poster.png")); got != (sizecode.Size{Width: 50, Height: 10}) {
		t.Errorf("expected poster.png at 50x10, got %s", got)
	}
	if _, err := os.Stat(filepath.Join(out, "exported-images.zip")); err != nil {
		t.Errorf("expected archive to be written: %v", err)
	}
	if !strings.Contains(stdout.String(), "이미지가 없습니다") {
		t.Errorf("expected empty list after clear, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "알 수 없는 명령: bogus") {
		t.Errorf("expected unknown command error, got:\n%s", stderr.String())
	}
}

func TestShell_ClearDeclined(t *testing.T) {
	in := t.TempDir()
	img := writeFile(t, in, "poster.png", encodePNG(t, 4, 4))

	stdout, _, err := execute(t, "clear\nn\nlist\n", "shell", img)
	if err != nil {
		t.Fatalf("shell failed: %v", err)
	}
	if strings.Contains(stdout, "이미지가 없습니다") {
		t.Error("expected images to survive a declined clear")
	}
	if !strings.Contains(stdout, "poster.png") {
		t.Errorf("expected poster.png in list, got:\n%s", stdout)
	}
}

func TestCodesCommand(t *testing.T) {
	out, _, err := execute(t, "", "codes")
	if err != nil {
		t.Fatalf("codes failed: %v", err)
	}
	for _, want := range []string{"158A", "461A", "620C", "10200"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected codes output to contain %s", want)
		}
	}
	if lines := strings.Count(out, "\n"); lines != len(sizecode.Table())+2 {
		t.Errorf("expected %d lines, got %d", len(sizecode.Table())+2, lines)
	}
}

func TestCodesCommand_Lookup(t *testing.T) {
	out, _, err := execute(t, "", "codes", "461a", "620C")
	if err != nil {
		t.Fatalf("codes failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}
	for i, want := range []string{"461A  2040  3040  세로", "620C  10200  3060  가로"} {
		if strings.Join(strings.Fields(lines[i+2]), "  ") != want {
			t.Errorf("row %d: expected %q, got %q", i, want, lines[i+2])
		}
	}

	if _, _, err := execute(t, "", "codes", "999Z"); err == nil || !strings.Contains(err.Error(), "999Z") {
		t.Errorf("expected unknown code error, got %v", err)
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		size sizecode.Size
		want string
	}{
		{sizecode.Size{Width: 3040, Height: 2040}, "가로"},
		{sizecode.Size{Width: 2040, Height: 3040}, "세로"},
		{sizecode.Size{Width: 10, Height: 10}, "정사각형"},
	}
	for _, tc := range tests {
		if got := orientation(tc.size); got != tc.want {
			t.Errorf("orientation(%s) = %s, want %s", tc.size, got, tc.want)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	if configCmd.Use != "config" {
		t.Errorf("expected Use 'config', got '%s'", configCmd.Use)
	}

	// Check subcommands exist
	subcommands := []string{"show", "init", "set", "path"}
	for _, name := range subcommands {
		found := false
		for _, cmd := range configCmd.Commands() {
			if cmd.Use == name || cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand '%s' to exist", name)
		}
	}
}

func TestConfigLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	run := func(args ...string) (string, error) {
		resetFlags()
		var stdout bytes.Buffer
		rootCmd.SetOut(&stdout)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetArgs(append([]string{"--config", path}, args...))
		err := rootCmd.Execute()
		return stdout.String(), err
	}

	if out, err := run("config", "path"); err != nil || strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, %v", out, err)
	}
	if _, err := run("config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := run("config", "init"); err == nil {
		t.Error("expected error when config already exists")
	}
	if _, err := run("config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}
	if _, err := run("config", "set", "archive.compression", "deflate"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := run("config", "set", "archive.compression", "rar"); err == nil {
		t.Error("expected error for invalid value")
	}
	if _, err := run("config", "set", "format.language", "en"); err == nil {
		t.Error("expected error for unknown key")
	}

	out, err := run("config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "compression: deflate") {
		t.Errorf("expected saved compression in output, got:\n%s", out)
	}
}

func TestDropHandler(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	first := writeFile(t, in, "464B_wall.png", encodePNG(t, 8, 8))
	copyPath := writeFile(t, in, "copy.png", encodePNG(t, 8, 8))

	sess, err := session.New(session.Options{})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	cmd := &cobra.Command{}
	cmd.SetErr(io.Discard)
	d := &dropHandler{cmd: cmd, sess: sess, outDir: out, seen: make(map[string]struct{})}

	if err := d.handle(context.Background(), first); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if got := fileSize(t, filepath.Join(out, "464B.png")); got != (sizecode.Size{Width: 3040, Height: 2040}) {
		t.Errorf("expected 464B.png at 3040x2040, got %s", got)
	}

	// Same content under another name is processed once.
	if err := d.handle(context.Background(), copyPath); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "copy.png")); !os.IsNotExist(err) {
		t.Error("expected duplicate content to be skipped")
	}
	if d.written != 1 {
		t.Errorf("expected 1 written file, got %d", d.written)
	}
	if sess.Len() != 0 {
		t.Errorf("expected session to be cleared after each drop, got %d", sess.Len())
	}

	if err := d.handle(context.Background(), filepath.Join(in, "gone.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDropHandler_Archive(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"158D_a.png", "b.png"} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		f.Write(encodePNG(t, 6, 4))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	path := writeFile(t, in, "drop.zip", buf.Bytes())

	resetFlags()
	t.Setenv(envQuiet, "")
	sess, err := session.New(session.Options{})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)
	d := &dropHandler{cmd: cmd, sess: sess, outDir: out, seen: make(map[string]struct{})}

	if err := d.handle(context.Background(), path); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "drop.zip (zip)") {
		t.Errorf("expected container status line, got:\n%s", stderr.String())
	}
	if d.written != 2 {
		t.Errorf("expected 2 written files, got %d", d.written)
	}
	if got := fileSize(t, filepath.Join(out, "158D.png")); got != (sizecode.Size{Width: 1720, Height: 1080}) {
		t.Errorf("expected 158D.png at 1720x1080, got %s", got)
	}
}

func TestSameDir(t *testing.T) {
	dir := t.TempDir()
	if !sameDir(dir, filepath.Join(dir, ".")) {
		t.Error("expected equivalent paths to match")
	}
	if sameDir(dir, filepath.Join(dir, "out")) {
		t.Error("expected different paths not to match")
	}
}

func TestContains(t *testing.T) {
	slice := []string{"a", "b", "c"}

	if !contains(slice, "a") {
		t.Error("expected contains(slice, 'a') to be true")
	}

	if contains(slice, "d") {
		t.Error("expected contains(slice, 'd') to be false")
	}

	if contains([]string{}, "a") {
		t.Error("expected contains(empty, 'a') to be false")
	}
}
