package staging

import "spool/internal/media/ffprobe"

// Per-file status labels reported by the pipeline. These appear verbatim in
// the run table and the history ledger.
const (
	StatusStaged        = "STAGED"
	StatusStagedHEVC    = "STAGED (HEVC copy)"
	StatusStagedNoCodec = "STAGED (no codec info)"
	StatusSkip          = "SKIP"
	StatusOK            = "OK"
	StatusCopy          = "COPY"
	StatusMoved         = "MOVED"
	StatusFail          = "FAIL"
	StatusManualReview  = "MANUAL REVIEW"
	StatusDryRun        = "DRY-RUN"
)

// Result records the final disposition of one file. Target is empty when the
// file never produced output. Detail carries the human-readable qualifier
// shown next to the status, like an exit code or a skip reason.
type Result struct {
	Source string
	Target string
	Status string
	Detail string
}

// StagedFile is a renamed intermediate sitting in the staging tree, awaiting
// the transcode phase. RelPath is the canonical path below the staging root,
// which doubles as the relocation path below errors on failure so the renamed
// Series/Season structure survives for review. TargetRel is the destination
// below the completed root, always carrying an .mp4 extension.
type StagedFile struct {
	Source    string
	RelPath   string
	TargetRel string

	// CopyOnly files skip the encoder: either the source is already HEVC, or
	// probing failed and a transcode would be flying blind.
	CopyOnly bool

	ForceAudioAAC    bool
	IncludeSubtitles bool

	// Video is nil when ffprobe could not read the file.
	Video *ffprobe.VideoSummary
}
