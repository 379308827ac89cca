package staging

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
	"spool/internal/media/filename"
	"spool/internal/naming"
	"spool/internal/rename"
)

var videoExtensions = map[string]bool{
	".mkv": true,
	".mp4": true,
	".avi": true,
	".mov": true,
}

type renamer interface {
	ResolveMovie(ctx context.Context, path string) rename.Outcome
	ResolveEpisode(ctx context.Context, path string, id filename.Identity) rename.Outcome
}

type prober func(ctx context.Context, path string) (ffprobe.VideoSummary, error)

// Stager walks the queue tree, resolves a destination for every video file,
// and partitions the batch into immediate-terminal results and staged files
// awaiting the transcode phase.
type Stager struct {
	cfg    *config.Config
	engine renamer
	probe  prober
	logger *slog.Logger
}

// NewStager builds a Stager probing through the configured ffprobe binary.
func NewStager(cfg *config.Config, engine renamer, logger *slog.Logger) *Stager {
	probe := func(ctx context.Context, path string) (ffprobe.VideoSummary, error) {
		return ffprobe.InspectVideo(ctx, cfg.FFprobeBinary(), path)
	}
	return newStagerWithProbe(cfg, engine, probe, logger)
}

func newStagerWithProbe(cfg *config.Config, engine renamer, probe prober, logger *slog.Logger) *Stager {
	return &Stager{
		cfg:    cfg,
		engine: engine,
		probe:  probe,
		logger: logging.WithComponent(logger, "stager"),
	}
}

// Stage processes every video file under the queue directory in enumeration
// order. Renamable files are moved out of the queue into the staging tree
// under their canonical name, keeping the original extension until the
// transcode phase produces the .mp4. Manual-review moves happen synchronously;
// in dry-run mode no file is touched and would-be staged files report DRY-RUN.
func (s *Stager) Stage(ctx context.Context, dryRun bool) ([]Result, []StagedFile, error) {
	files, err := ListVideoFiles(s.cfg.QueueDir())
	if err != nil {
		return nil, nil, fmt.Errorf("scan queue: %w", err)
	}
	s.logger.Info("staging batch", logging.Int("files", len(files)))

	var results []Result
	var staged []StagedFile
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, staged, err
		}
		result, stagedFile := s.stageOne(ctx, path, dryRun)
		if stagedFile != nil {
			staged = append(staged, *stagedFile)
		} else {
			results = append(results, result)
		}
	}
	return results, staged, nil
}

func (s *Stager) stageOne(ctx context.Context, path string, dryRun bool) (Result, *StagedFile) {
	base := filepath.Base(path)

	// Files already carrying a provider tag were organized by a previous run.
	if naming.HasTag(base) || naming.HasTag(filepath.Base(filepath.Dir(path))) {
		s.logResult(StatusSkip, base, "already tagged")
		return Result{Source: path, Status: StatusSkip, Detail: "already tagged"}, nil
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	id := filename.Identify(stem)

	var outcome rename.Outcome
	var contentDir string
	if id.Kind == filename.KindEpisode {
		contentDir = config.TVShowsFolder
		outcome = s.engine.ResolveEpisode(ctx, path, id)
	} else {
		contentDir = config.MoviesFolder
		outcome = s.engine.ResolveMovie(ctx, path)
	}

	review := !outcome.Renamable
	if !review && !outcome.Matched && id.Kind == filename.KindEpisode &&
		s.cfg.Behavior.UnmatchedPolicy == config.PolicyReview {
		review = true
	}
	if review {
		return s.toManualReview(path, base, contentDir, dryRun), nil
	}

	stagedRel := filepath.Join(contentDir, outcome.Path)
	targetRel := forceMP4(stagedRel)
	if !s.cfg.Transcode.Overwrite {
		if _, err := os.Stat(filepath.Join(s.cfg.CompletedDir(), targetRel)); err == nil {
			s.logResult(StatusSkip, base, "already exists")
			return Result{Source: path, Target: filepath.Join(s.cfg.CompletedDir(), targetRel), Status: StatusSkip, Detail: "already exists"}, nil
		}
	}

	stagedFile := StagedFile{
		RelPath:          stagedRel,
		TargetRel:        targetRel,
		ForceAudioAAC:    s.cfg.Transcode.ForceAudioAAC || strings.EqualFold(ext, ".avi"),
		IncludeSubtitles: s.cfg.Transcode.IncludeSubtitles,
	}

	status := StatusStaged
	summary, err := s.probe(ctx, path)
	switch {
	case err != nil:
		// A file the prober cannot read is passed through untouched rather
		// than failing the run.
		s.logger.Debug("probe failed", logging.String("file", base), logging.Error(err))
		stagedFile.CopyOnly = true
		status = StatusStagedNoCodec
	case s.cfg.Transcode.SkipHEVC && strings.EqualFold(summary.Codec, "hevc"):
		stagedFile.Video = &summary
		stagedFile.CopyOnly = true
		status = StatusStagedHEVC
	default:
		stagedFile.Video = &summary
	}

	if dryRun {
		s.logResult(StatusDryRun, base, targetRel)
		return Result{Source: path, Target: filepath.Join(s.cfg.CompletedDir(), targetRel), Status: StatusDryRun}, nil
	}

	// The rename happens now: queue -> staging under the canonical path.
	stagedPath := filepath.Join(s.cfg.StagingDir(), stagedRel)
	if err := os.MkdirAll(filepath.Dir(stagedPath), 0o755); err != nil {
		return Result{Source: path, Status: StatusFail, Detail: fmt.Sprintf("stage move: %v", err)}, nil
	}
	if err := fileutil.MoveFile(path, stagedPath); err != nil {
		return Result{Source: path, Status: StatusFail, Detail: fmt.Sprintf("stage move: %v", err)}, nil
	}
	stagedFile.Source = stagedPath

	s.logResult(status, base, stagedRel)
	return Result{}, &stagedFile
}

// toManualReview parks a file under errors/ keeping its content subdirectory.
// The move happens during staging, not in the worker pool.
func (s *Stager) toManualReview(path, base, contentDir string, dryRun bool) Result {
	dest := filepath.Join(s.cfg.ErrorsDir(), contentDir, base)
	if dryRun {
		s.logResult(StatusManualReview, base, "dry-run")
		return Result{Source: path, Target: dest, Status: StatusManualReview, Detail: "dry-run, not moved"}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{Source: path, Status: StatusFail, Detail: fmt.Sprintf("manual review move: %v", err)}
	}
	if err := fileutil.MoveFile(path, dest); err != nil {
		return Result{Source: path, Status: StatusFail, Detail: fmt.Sprintf("manual review move: %v", err)}
	}
	s.logResult(StatusManualReview, base, "")
	return Result{Source: path, Target: dest, Status: StatusManualReview}
}

func (s *Stager) logResult(status, file, detail string) {
	attrs := []logging.Attr{logging.String("status", status), logging.String("file", file)}
	if detail != "" {
		attrs = append(attrs, logging.String("detail", detail))
	}
	s.logger.Info("staged", logging.Args(attrs...)...)
}

// forceMP4 swaps the extension for the canonical library container.
func forceMP4(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + ".mp4"
}

// ListVideoFiles returns all accepted video files under root in lexical walk
// order.
func ListVideoFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
