package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"spool/internal/config"
	"spool/internal/encoding"
	"spool/internal/identification"
	"spool/internal/identification/tmdb"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
	"spool/internal/rename"
	"spool/internal/staging"
)

// Phase names for the run state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseStaging     Phase = "staging"
	PhaseTranscoding Phase = "transcoding"
	PhaseCleanup     Phase = "cleanup"
	PhaseDone        Phase = "done"
)

// Summary aggregates per-file outcomes into the run counters.
type Summary struct {
	OK     int
	Skip   int
	Manual int
	Fail   int
	DryRun int
}

// Options are the per-run toggles.
type Options struct {
	DryRun bool
}

type stager interface {
	Stage(ctx context.Context, dryRun bool) ([]staging.Result, []staging.StagedFile, error)
}

type transcoder interface {
	TranscodeOne(ctx context.Context, staged staging.StagedFile) staging.Result
}

type prober func(ctx context.Context, path string) (ffprobe.VideoSummary, error)

// Coordinator drives the two-phase run.
type Coordinator struct {
	cfg        *config.Config
	stager     stager
	transcoder transcoder
	probe      prober
	logger     *slog.Logger
}

// New wires a Coordinator from configuration: TMDB client, cached resolver,
// renaming engine, stager, and ffmpeg transcoder.
func New(cfg *config.Config, logger *slog.Logger) (*Coordinator, error) {
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		return nil, fmt.Errorf("tmdb client: %w", err)
	}
	resolver := identification.NewResolver(client, logger)
	engine := rename.NewEngine(resolver, logger)
	probe := func(ctx context.Context, path string) (ffprobe.VideoSummary, error) {
		return ffprobe.InspectVideo(ctx, cfg.FFprobeBinary(), path)
	}
	return &Coordinator{
		cfg:        cfg,
		stager:     staging.NewStager(cfg, engine, logger),
		transcoder: encoding.NewTranscoder(cfg, logger),
		probe:      probe,
		logger:     logging.WithComponent(logger, "pipeline"),
	}, nil
}

// Run executes a full pipeline pass and returns every per-file result plus
// the aggregated counters. A canceled context stops submission of new work;
// in-flight encodes run to completion before the method returns.
func (c *Coordinator) Run(ctx context.Context, opts Options) ([]staging.Result, Summary, error) {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return nil, Summary{}, err
	}

	c.setPhase(PhaseStaging)
	results, staged, err := c.stageOrResume(ctx, opts.DryRun)
	if err != nil {
		return results, summarize(results), err
	}
	c.logger.Info("staging complete",
		logging.Int("staged", len(staged)),
		logging.Int("immediate", len(results)))

	c.setPhase(PhaseTranscoding)
	results = append(results, c.transcodeAll(ctx, staged)...)

	if !opts.DryRun {
		c.setPhase(PhaseCleanup)
		cleanup := staging.Cleanup(c.cfg, c.logger)
		for _, cleanupErr := range cleanup.Errors {
			c.logger.Warn("cleanup",
				logging.String("path", cleanupErr.Path),
				logging.Error(cleanupErr.Error))
		}
	}

	c.setPhase(PhaseDone)
	return results, summarize(results), ctx.Err()
}

// stageOrResume skips the staging phase when the queue holds no video files
// but a prior interrupted run left files in the staging tree.
func (c *Coordinator) stageOrResume(ctx context.Context, dryRun bool) ([]staging.Result, []staging.StagedFile, error) {
	queued, err := staging.ListVideoFiles(c.cfg.QueueDir())
	if err != nil {
		return nil, nil, fmt.Errorf("scan queue: %w", err)
	}
	if len(queued) > 0 {
		return c.stager.Stage(ctx, dryRun)
	}

	resumed, err := c.resumeStaged(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(resumed) > 0 {
		c.logger.Info("resuming interrupted run", logging.Int("staged", len(resumed)))
	}
	return nil, resumed, nil
}

// resumeStaged reconstructs StagedFiles from files an interrupted run left in
// the staging tree. They already carry their canonical names, so only the
// probe classification needs to be redone.
func (c *Coordinator) resumeStaged(ctx context.Context) ([]staging.StagedFile, error) {
	files, err := staging.ListVideoFiles(c.cfg.StagingDir())
	if err != nil {
		return nil, fmt.Errorf("scan staging: %w", err)
	}

	workDir := c.cfg.TranscodeWorkDir()
	var resumed []staging.StagedFile
	for _, path := range files {
		if strings.HasPrefix(path, workDir+string(filepath.Separator)) {
			continue
		}
		rel, relErr := filepath.Rel(c.cfg.StagingDir(), path)
		if relErr != nil {
			rel = filepath.Base(path)
		}

		stagedFile := staging.StagedFile{
			Source:           path,
			RelPath:          rel,
			TargetRel:        strings.TrimSuffix(rel, filepath.Ext(rel)) + ".mp4",
			ForceAudioAAC:    c.cfg.Transcode.ForceAudioAAC || strings.EqualFold(filepath.Ext(path), ".avi"),
			IncludeSubtitles: c.cfg.Transcode.IncludeSubtitles,
		}
		summary, probeErr := c.probe(ctx, path)
		switch {
		case probeErr != nil:
			stagedFile.CopyOnly = true
		case c.cfg.Transcode.SkipHEVC && strings.EqualFold(summary.Codec, "hevc"):
			stagedFile.Video = &summary
			stagedFile.CopyOnly = true
		default:
			stagedFile.Video = &summary
		}
		resumed = append(resumed, stagedFile)
	}
	return resumed, nil
}

// transcodeAll fans staged files out to the bounded worker pool. Workers send
// results over a channel; only the aggregator goroutine touches the shared
// slice, so outcomes are collected in completion order without locking.
func (c *Coordinator) transcodeAll(ctx context.Context, staged []staging.StagedFile) []staging.Result {
	if len(staged) == 0 {
		return nil
	}

	workers := c.cfg.Transcode.Workers
	if workers < 1 {
		workers = 1
	}
	c.logger.Info("transcoding batch",
		logging.Int("files", len(staged)),
		logging.Int("workers", workers))

	resultCh := make(chan staging.Result)
	done := make(chan struct{})
	var results []staging.Result
	go func() {
		defer close(done)
		for result := range resultCh {
			results = append(results, result)
			c.logger.Info("transcode result",
				logging.String("status", result.Status),
				logging.String("file", filepath.Base(result.Source)),
				logging.Int("completed", len(results)),
				logging.Int("total", len(staged)))
		}
	}()

	// Workers get a detached context: cancellation stops submissions below,
	// but a running encode is never killed mid-write.
	workerCtx := context.WithoutCancel(ctx)

	var pool errgroup.Group
	pool.SetLimit(workers)
	for _, stagedFile := range staged {
		stagedFile := stagedFile
		if ctx.Err() != nil {
			c.logger.Warn("cancellation requested, draining in-flight encodes")
			break
		}
		pool.Go(func() error {
			// Go blocks waiting for a pool slot, so a cancellation can land
			// after the outer check; re-check before starting the encode.
			if ctx.Err() != nil {
				return nil
			}
			resultCh <- c.transcoder.TranscodeOne(workerCtx, stagedFile)
			return nil
		})
	}
	_ = pool.Wait()
	close(resultCh)
	<-done
	return results
}

func (c *Coordinator) setPhase(phase Phase) {
	c.logger.Info("phase", logging.String("phase", string(phase)))
}

func summarize(results []staging.Result) Summary {
	var summary Summary
	for _, result := range results {
		switch result.Status {
		case staging.StatusOK, staging.StatusCopy, staging.StatusMoved:
			summary.OK++
		case staging.StatusSkip:
			summary.Skip++
		case staging.StatusManualReview:
			summary.Manual++
		case staging.StatusFail:
			summary.Fail++
		case staging.StatusDryRun:
			summary.DryRun++
		}
	}
	return summary
}
