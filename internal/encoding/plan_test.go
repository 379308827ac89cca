package encoding

import (
	"reflect"
	"testing"

	"spool/internal/media/ffprobe"
)

func TestBuildPlan1080p(t *testing.T) {
	video := ffprobe.VideoSummary{Codec: "h264", Width: 1920, Height: 1080}
	plan := BuildPlan("/in/movie.mkv", "/out/movie.mp4", video, "libx265", false, true)

	want := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-stats",
		"-i", "/in/movie.mkv",
		"-map", "0",
		"-c:v", "libx265",
		"-b:v", "7000k",
		"-maxrate", "9000k",
		"-bufsize", "14000k",
		"-profile:v", "main",
		"-pix_fmt", "yuv420p",
		"-tag:v", "hvc1",
		"-c:a", "copy",
		"-c:s", "copy",
		"-movflags", "+faststart",
		"/out/movie.mp4",
	}
	if !reflect.DeepEqual(plan.Args, want) {
		t.Fatalf("args mismatch:\ngot  %v\nwant %v", plan.Args, want)
	}
	if plan.FourK || plan.HDR || plan.AACFlag {
		t.Fatalf("unexpected plan flags: %+v", plan)
	}
}

func TestBuildPlan4KHDR(t *testing.T) {
	video := ffprobe.VideoSummary{
		Codec:          "h264",
		Width:          3840,
		Height:         2160,
		ColorPrimaries: "bt2020",
		ColorTransfer:  "smpte2084",
	}
	plan := BuildPlan("/in/movie.mkv", "/out/movie.mp4", video, "libx265", false, false)

	if !plan.FourK || !plan.HDR {
		t.Fatalf("expected 4K HDR plan, got %+v", plan)
	}
	assertArgPair(t, plan.Args, "-b:v", "20000k")
	assertArgPair(t, plan.Args, "-maxrate", "25000k")
	assertArgPair(t, plan.Args, "-bufsize", "40000k")
	assertArgPair(t, plan.Args, "-profile:v", "main10")
	assertArgPair(t, plan.Args, "-pix_fmt", "p010le")
}

func TestBuildPlan4KSDRKeepsEightBit(t *testing.T) {
	video := ffprobe.VideoSummary{Codec: "h264", Width: 3840, Height: 2160}
	plan := BuildPlan("/in/a.mkv", "/out/a.mp4", video, "libx265", false, false)

	assertArgPair(t, plan.Args, "-profile:v", "main10")
	assertArgPair(t, plan.Args, "-pix_fmt", "yuv420p")
}

func TestBuildPlanAudioForcedForAVI(t *testing.T) {
	video := ffprobe.VideoSummary{Codec: "mpeg4", Width: 720, Height: 480}
	plan := BuildPlan("/in/old.AVI", "/out/old.mp4", video, "libx265", false, false)

	if !plan.AACFlag {
		t.Fatal("avi source should force AAC audio")
	}
	assertArgPair(t, plan.Args, "-c:a", "aac")
	assertArgPair(t, plan.Args, "-b:a", "192k")
}

func TestBuildPlanSubtitlesDropped(t *testing.T) {
	video := ffprobe.VideoSummary{Codec: "h264", Width: 1920, Height: 1080}
	plan := BuildPlan("/in/a.mkv", "/out/a.mp4", video, "libx265", false, false)

	for i, arg := range plan.Args {
		if arg == "-c:s" {
			t.Fatalf("unexpected subtitle copy at arg %d", i)
		}
	}
	assertArg(t, plan.Args, "-sn")
}

func TestSelectEncoder(t *testing.T) {
	if got := SelectEncoder("hevc_nvenc"); got != "hevc_nvenc" {
		t.Fatalf("configured encoder should win, got %q", got)
	}
	if got := SelectEncoder("  "); got == "" {
		t.Fatal("default encoder must not be empty")
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			if i+1 >= len(args) || args[i+1] != value {
				t.Fatalf("%s: got %q want %q", flag, args[i+1], value)
			}
			return
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
}

func assertArg(t *testing.T, args []string, flag string) {
	t.Helper()
	for _, arg := range args {
		if arg == flag {
			return
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
}
