package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/staging"
)

type encoderRunner interface {
	Run(ctx context.Context, args []string, name string, durationSeconds float64) (int, string, error)
}

// Transcoder executes the transcode phase for staged files: copy-only files
// are promoted directly, everything else goes through the encoder with
// failure routing into the errors tree.
type Transcoder struct {
	cfg     *config.Config
	runner  encoderRunner
	encoder string
	logger  *slog.Logger
}

// NewTranscoder builds a Transcoder wired to the real ffmpeg runner.
func NewTranscoder(cfg *config.Config, logger *slog.Logger) *Transcoder {
	return newTranscoderWithRunner(cfg, NewRunner(cfg.FFmpegBinary(), logger), logger)
}

func newTranscoderWithRunner(cfg *config.Config, runner encoderRunner, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		cfg:     cfg,
		runner:  runner,
		encoder: SelectEncoder(cfg.Transcode.Encoder),
		logger:  logging.WithComponent(logger, "transcoder"),
	}
}

// TranscodeOne processes a single staged file to a terminal status. It never
// returns an error; every failure mode maps to a FAIL result so the worker
// pool keeps draining.
func (t *Transcoder) TranscodeOne(ctx context.Context, staged staging.StagedFile) staging.Result {
	target := filepath.Join(t.cfg.CompletedDir(), staged.TargetRel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return t.fail(staged, fmt.Sprintf("create target directory: %v", err))
	}

	if staged.CopyOnly {
		return t.promoteCopy(staged, target)
	}
	if staged.Video == nil {
		return t.fail(staged, "no video info")
	}

	workFile := filepath.Join(t.cfg.TranscodeWorkDir(), workName(staged.TargetRel))
	if err := os.MkdirAll(filepath.Dir(workFile), 0o755); err != nil {
		return t.fail(staged, fmt.Sprintf("create work directory: %v", err))
	}

	plan := BuildPlan(staged.Source, workFile, *staged.Video, t.encoder, staged.ForceAudioAAC, staged.IncludeSubtitles)
	name := filepath.Base(staged.Source)
	t.logger.Info("transcode start",
		logging.String("file", name),
		logging.String("target", filepath.Base(target)))
	t.logger.Debug("transcode plan",
		logging.String("file", name),
		logging.String("encoder", t.encoder),
		logging.Bool("4k", plan.FourK),
		logging.Bool("hdr", plan.HDR),
		logging.Bool("audio_aac", plan.AACFlag),
		logging.Bool("subtitles", plan.Subs))

	code, stderrTail, err := t.runner.Run(ctx, plan.Args, name, staged.Video.DurationSeconds)
	if err != nil {
		_ = os.Remove(workFile)
		t.relocateSource(staged)
		return t.fail(staged, fmt.Sprintf("ffmpeg: %v", err))
	}
	if code != 0 {
		_ = os.Remove(workFile)
		t.relocateSource(staged)
		detail := fmt.Sprintf("ffmpeg exit code %d", code)
		if hint := subtitleHint(stderrTail); hint != "" {
			detail += " " + hint
		}
		t.logger.Error("transcode failed",
			logging.String("file", name),
			logging.Int("exit_code", code),
			logging.String("stderr", truncate(stderrTail, 200)))
		return t.fail(staged, detail)
	}

	if err := fileutil.MoveFile(workFile, target); err != nil {
		t.relocateSource(staged)
		return t.fail(staged, fmt.Sprintf("promote output: %v", err))
	}

	t.logger.Info("transcode complete", logging.String("file", name))
	result := staging.Result{Source: staged.Source, Target: target, Status: staging.StatusOK}
	if t.cfg.Transcode.DeleteSource {
		if err := os.Remove(staged.Source); err != nil {
			result.Detail = fmt.Sprintf("failed to delete source: %v", err)
		} else {
			result.Detail = "source deleted"
		}
	}
	return result
}

// promoteCopy lands a copy-only file at its completed path without invoking
// the encoder. Source deletion turns the copy into a move.
func (t *Transcoder) promoteCopy(staged staging.StagedFile, target string) staging.Result {
	if t.cfg.Transcode.DeleteSource {
		if err := fileutil.MoveFile(staged.Source, target); err != nil {
			return t.fail(staged, fmt.Sprintf("move: %v", err))
		}
		return staging.Result{Source: staged.Source, Target: target, Status: staging.StatusMoved}
	}
	if err := fileutil.CopyFile(staged.Source, target); err != nil {
		return t.fail(staged, fmt.Sprintf("copy: %v", err))
	}
	return staging.Result{Source: staged.Source, Target: target, Status: staging.StatusCopy}
}

// relocateSource parks a failed file under errors/ at its staged relative
// path so the renamed Series/Season structure survives for review.
func (t *Transcoder) relocateSource(staged staging.StagedFile) {
	dest := filepath.Join(t.cfg.ErrorsDir(), staged.RelPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.logger.Error("relocate failed", logging.String("file", staged.Source), logging.Error(err))
		return
	}
	if err := fileutil.MoveFile(staged.Source, dest); err != nil {
		t.logger.Error("relocate failed", logging.String("file", staged.Source), logging.Error(err))
	}
}

func (t *Transcoder) fail(staged staging.StagedFile, detail string) staging.Result {
	return staging.Result{Source: staged.Source, Status: staging.StatusFail, Detail: detail}
}

// workName flattens a relative target path into a single filename for the
// scratch directory, keeping concurrent workers from colliding on basenames.
func workName(targetRel string) string {
	return strings.ReplaceAll(filepath.ToSlash(targetRel), "/", "_")
}

func subtitleHint(stderr string) string {
	if strings.Contains(stderr, "Subtitle") || strings.Contains(stderr, "subtitles") || strings.Contains(stderr, "codec") {
		return "(maybe subtitle issue; try include_subtitles=false)"
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
