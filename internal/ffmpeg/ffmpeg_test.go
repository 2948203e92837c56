package ffmpeg

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractArgs(t *testing.T) {
	args := extractArgs("in.mp4", "/tmp/work")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i in.mp4") {
		t.Fatalf("missing input: %s", joined)
	}
	want := filepath.Join("/tmp/work", FramePattern)
	if args[len(args)-1] != want {
		t.Fatalf("frame pattern = %s, want %s", args[len(args)-1], want)
	}
}

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("/tmp/work", 23.976, "libx265", 20, "out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-r 23.976",
		"-c:v libx265",
		"-crf 20",
		"-pix_fmt yuv420p",
		"-y out.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
}

func TestAudioArgsMapsVideoAndAudio(t *testing.T) {
	args := audioArgs("render.mp4", "target.mp4", "final.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i render.mp4",
		"-i target.mp4",
		"-c:v copy",
		"-map 0:v:0",
		"-map 1:a:0",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
	if args[len(args)-1] != "final.mp4" {
		t.Fatalf("output should be last arg, got %s", args[len(args)-1])
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner("", "")
	if r.FFmpeg != "ffmpeg" || r.FFprobe != "ffprobe" {
		t.Fatalf("unexpected defaults: %+v", r)
	}
}

func TestTailTruncatesOutput(t *testing.T) {
	out := []byte("a\nb\nc\nd\ne\nf")
	got := tail(out)
	if got != "c\nd\ne\nf" {
		t.Fatalf("tail = %q", got)
	}
	if tail([]byte("short")) != "short" {
		t.Fatal("short output should pass through")
	}
}
