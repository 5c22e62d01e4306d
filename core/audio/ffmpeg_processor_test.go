package audio

import (
	"strings"
	"testing"
)

func TestBuildTrimArgsPreciseWithFades(t *testing.T) {
	args := buildTrimArgs("in.mp3", "out.mp3", 1.5, 4.5, TrimOptions{Precise: true, Fades: true})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "atrim=start=1.500000:end=4.500000") {
		t.Fatalf("missing atrim filter: %q", joined)
	}
	if !strings.Contains(joined, "asetpts=PTS-STARTPTS") {
		t.Fatalf("missing asetpts: %q", joined)
	}
	if !strings.Contains(joined, "afade=t=in:d=0.005") {
		t.Fatalf("missing fade in: %q", joined)
	}
	// Fade out starts 5 ms before the clip ends: 3.0 - 0.005.
	if !strings.Contains(joined, "afade=t=out:st=2.995000:d=0.005") {
		t.Fatalf("missing fade out: %q", joined)
	}
	if !strings.Contains(joined, "libmp3lame") {
		t.Fatalf("precise trim must re-encode: %q", joined)
	}
	if args[len(args)-1] != "out.mp3" {
		t.Fatalf("output not last: %v", args)
	}
}

func TestBuildTrimArgsPreciseWithoutFades(t *testing.T) {
	args := buildTrimArgs("in.mp3", "out.mp3", 0, 30, TrimOptions{Precise: true})

	joined := strings.Join(args, " ")
	if strings.Contains(joined, "afade") {
		t.Fatalf("fades present without being requested: %q", joined)
	}
	if !strings.Contains(joined, "atrim=start=0.000000:end=30.000000") {
		t.Fatalf("missing atrim filter: %q", joined)
	}
}

func TestBuildTrimArgsFastPath(t *testing.T) {
	args := buildTrimArgs("in.mp3", "out.mp3", 2, 7, TrimOptions{})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-ss 2.000000 -to 7.000000") {
		t.Fatalf("missing seek range: %q", joined)
	}
	if !strings.Contains(joined, "-c copy") {
		t.Fatalf("fast path must stream-copy: %q", joined)
	}
	if strings.Contains(joined, "afade") || strings.Contains(joined, "atrim") {
		t.Fatalf("fast path must not use the filter graph: %q", joined)
	}
}

func TestBuildTrimArgsShortClipFadeClamped(t *testing.T) {
	// A clip shorter than the fade window must not produce a negative fade
	// start.
	args := buildTrimArgs("in.mp3", "out.mp3", 0, 0.003, TrimOptions{Precise: true, Fades: true})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "afade=t=out:st=0.000000:d=0.005") {
		t.Fatalf("fade start not clamped: %q", joined)
	}
}

func TestTrimRejectsInvertedRange(t *testing.T) {
	p := NewFFmpegProcessor("ffmpeg", "ffprobe")

	if err := p.Trim("in.mp3", "out.mp3", 5, 5, TrimOptions{}); err == nil {
		t.Fatalf("zero-length range accepted")
	}
	if err := p.Trim("in.mp3", "out.mp3", 10, 5, TrimOptions{}); err == nil {
		t.Fatalf("inverted range accepted")
	}
}
