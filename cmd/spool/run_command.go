package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/ledger"
	"spool/internal/logging"
	"spool/internal/pipeline"
	"spool/internal/preflight"
	"spool/internal/staging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun        bool
		overwrite     bool
		skipHEVC      bool
		forceAudioAAC bool
		workers       int
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Identify, rename, and transcode every queued file",
		Long: `Run scans <root>/queue for video files, resolves canonical names via TMDB,
and transcodes each file into <root>/completed. Files that cannot be
identified or that fail to encode land under <root>/errors for manual review.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := cfg.ApplyRoot(args[0]); err != nil {
					return err
				}
			}
			if strings.TrimSpace(cfg.Paths.Root) == "" {
				return fmt.Errorf("pipeline root is required: pass it as an argument or set paths.root in %s", ctx.configPath)
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Transcode.Overwrite = overwrite
			}
			if cmd.Flags().Changed("skip-hevc") {
				cfg.Transcode.SkipHEVC = skipHEVC
			}
			if cmd.Flags().Changed("force-audio-aac") {
				cfg.Transcode.ForceAudioAAC = forceAudioAAC
			}
			if workers > 0 {
				cfg.Transcode.Workers = workers
			}

			out := cmd.OutOrStdout()
			checks := preflight.RunAll(cfg)
			if !preflight.AllPassed(checks) {
				rows := make([][]string, 0, len(checks))
				for _, check := range checks {
					state := "ok"
					if !check.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil))
				return &exitCodeError{code: 2, message: "startup checks failed; nothing was processed"}
			}

			level := cfg.Logging.Level
			if debug {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{
				Level:    level,
				Format:   cfg.Logging.Format,
				Output:   cmd.ErrOrStderr(),
				FilePath: cfg.Logging.File,
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.Root, ".spool.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another spool run is already processing %s", cfg.Paths.Root)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runID := uuid.NewString()
			logger = logger.With(logging.String("run_id", runID))

			store, storeErr := ledger.Open(cfg)
			if storeErr != nil {
				logger.Warn("run history unavailable", logging.Error(storeErr))
			} else {
				defer store.Close()
				if err := store.RecordRunStart(runCtx, runID, cfg.Paths.Root, dryRun); err != nil {
					logger.Warn("record run start", logging.Error(err))
				}
			}

			coordinator, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}

			started := time.Now()
			results, summary, runErr := coordinator.Run(runCtx, pipeline.Options{DryRun: dryRun})

			if storeErr == nil {
				// Recording uses a fresh context so a SIGINT that canceled the
				// run does not also lose its history rows.
				recordCtx := context.Background()
				if err := store.RecordOutcomes(recordCtx, runID, results); err != nil {
					logger.Warn("record outcomes", logging.Error(err))
				}
				if err := store.RecordRunFinish(recordCtx, runID, summary); err != nil {
					logger.Warn("record run finish", logging.Error(err))
				}
			}

			if len(results) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Source", "Target", "Detail"},
					resultRows(cfg, results), nil))
			}
			fmt.Fprintf(out, "Done in %s. OK=%d SKIP=%d MANUAL=%d FAIL=%d DRY-RUN=%d\n",
				time.Since(started).Round(time.Second),
				summary.OK, summary.Skip, summary.Manual, summary.Fail, summary.DryRun)

			if runErr != nil {
				return runErr
			}
			if summary.Fail > 0 {
				return fmt.Errorf("%d file(s) failed; sources moved to %s for review", summary.Fail, cfg.ErrorsDir())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report planned destinations without moving or transcoding")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files in the completed tree")
	cmd.Flags().BoolVar(&skipHEVC, "skip-hevc", false, "Copy files that are already HEVC instead of re-encoding")
	cmd.Flags().BoolVar(&forceAudioAAC, "force-audio-aac", false, "Always re-encode audio to AAC")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent transcode workers (0 uses the configured value)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

// resultRows relativizes paths against the pipeline root so the final table
// stays readable for deep trees.
func resultRows(cfg *config.Config, results []staging.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Status,
			relativeToRoot(cfg, result.Source),
			relativeToRoot(cfg, result.Target),
			result.Detail,
		})
	}
	return rows
}

func relativeToRoot(cfg *config.Config, path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(cfg.Paths.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
