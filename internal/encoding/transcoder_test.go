package encoding

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
	"spool/internal/staging"
)

type fakeRunner struct {
	code        int
	stderr      string
	err         error
	writeOutput bool

	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ string, _ float64) (int, string, error) {
	f.gotArgs = args
	if f.writeOutput && len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644); err != nil {
			return -1, "", err
		}
	}
	return f.code, f.stderr, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.Root, "logs")
	cfg.Transcode.DeleteSource = false
	return &cfg
}

// writeSource plants a staged file the way the staging phase leaves it.
func writeSource(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	path := filepath.Join(cfg.StagingDir(), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("source bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscodeOneCopyOnly(t *testing.T) {
	cfg := testConfig(t)
	src := writeSource(t, cfg, filepath.Join("Movies", "a.mkv"))

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   filepath.Join("Movies", "a.mkv"),
		TargetRel: filepath.Join("Movies", "A (2020)", "A (2020).mp4"),
		CopyOnly:  true,
	}
	tr := newTranscoderWithRunner(cfg, &fakeRunner{}, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusCopy {
		t.Fatalf("status: got %q want %q (%s)", result.Status, staging.StatusCopy, result.Detail)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain after copy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.CompletedDir(), staged.TargetRel)); err != nil {
		t.Fatalf("target missing: %v", err)
	}
}

func TestTranscodeOneCopyOnlyMovesWhenDeletingSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcode.DeleteSource = true
	src := writeSource(t, cfg, filepath.Join("Movies", "a.mkv"))

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   filepath.Join("Movies", "a.mkv"),
		TargetRel: filepath.Join("Movies", "A (2020)", "A (2020).mp4"),
		CopyOnly:  true,
	}
	tr := newTranscoderWithRunner(cfg, &fakeRunner{}, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusMoved {
		t.Fatalf("status: got %q want %q (%s)", result.Status, staging.StatusMoved, result.Detail)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be gone after move, stat err: %v", err)
	}
}

func TestTranscodeOneSuccess(t *testing.T) {
	cfg := testConfig(t)
	src := writeSource(t, cfg, filepath.Join("TV Shows", "show.s01e01.mkv"))

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   filepath.Join("TV Shows", "show.s01e01.mkv"),
		TargetRel: filepath.Join("TV Shows", "Show (2010-) {tmdb-5}", "Season 01", "Show - s01e01.mp4"),
		Video:     &ffprobe.VideoSummary{Codec: "h264", Width: 1920, Height: 1080, DurationSeconds: 60},
	}
	runner := &fakeRunner{writeOutput: true}
	tr := newTranscoderWithRunner(cfg, runner, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusOK {
		t.Fatalf("status: got %q want %q (%s)", result.Status, staging.StatusOK, result.Detail)
	}

	target := filepath.Join(cfg.CompletedDir(), staged.TargetRel)
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("target missing: %v", err)
	}
	if string(got) != "encoded" {
		t.Fatalf("target content: got %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain without delete_source: %v", err)
	}

	// Work directory holds no leftovers.
	entries, err := os.ReadDir(cfg.TranscodeWorkDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not empty: %v", entries)
	}
}

func TestTranscodeOneSuccessDeletesSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcode.DeleteSource = true
	src := writeSource(t, cfg, filepath.Join("Movies", "b.mkv"))

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   filepath.Join("Movies", "b.mkv"),
		TargetRel: filepath.Join("Movies", "B (2021)", "B (2021).mp4"),
		Video:     &ffprobe.VideoSummary{Codec: "h264", Width: 1280, Height: 720},
	}
	tr := newTranscoderWithRunner(cfg, &fakeRunner{writeOutput: true}, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusOK {
		t.Fatalf("status: got %q (%s)", result.Status, result.Detail)
	}
	if result.Detail != "source deleted" {
		t.Fatalf("detail: got %q", result.Detail)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be deleted, stat err: %v", err)
	}
}

func TestTranscodeOneFailureRelocatesSource(t *testing.T) {
	cfg := testConfig(t)
	rel := filepath.Join("TV Shows", "Show", "Season 01", "ep.mkv")
	src := writeSource(t, cfg, rel)

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   rel,
		TargetRel: filepath.Join("TV Shows", "Show (2010-)", "Season 01", "Show - s01e01.mp4"),
		Video:     &ffprobe.VideoSummary{Codec: "h264", Width: 1920, Height: 1080},
	}
	runner := &fakeRunner{code: 1, stderr: "Subtitle codec 94213 is not supported", writeOutput: true}
	tr := newTranscoderWithRunner(cfg, runner, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusFail {
		t.Fatalf("status: got %q", result.Status)
	}
	if !strings.Contains(result.Detail, "exit code 1") {
		t.Fatalf("detail missing exit code: %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "subtitle") {
		t.Fatalf("detail missing subtitle hint: %q", result.Detail)
	}

	// Source relocated into errors preserving the relative path.
	relocated := filepath.Join(cfg.ErrorsDir(), rel)
	if _, err := os.Stat(relocated); err != nil {
		t.Fatalf("source not relocated to errors: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be gone from staging, stat err: %v", err)
	}

	// Partial output deleted.
	entries, err := os.ReadDir(cfg.TranscodeWorkDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("partial output left behind: %v", entries)
	}
}

func TestTranscodeOneNoVideoInfoFails(t *testing.T) {
	cfg := testConfig(t)
	src := writeSource(t, cfg, filepath.Join("Movies", "c.mkv"))

	staged := staging.StagedFile{
		Source:    src,
		RelPath:   filepath.Join("Movies", "c.mkv"),
		TargetRel: filepath.Join("Movies", "C", "C.mp4"),
	}
	tr := newTranscoderWithRunner(cfg, &fakeRunner{}, logging.NewNop())

	result := tr.TranscodeOne(context.Background(), staged)
	if result.Status != staging.StatusFail || result.Detail != "no video info" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
