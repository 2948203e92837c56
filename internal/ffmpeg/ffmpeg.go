// Package ffmpeg drives the external ffmpeg/ffprobe binaries for frame
// extraction, video encoding and audio muxing.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FramePattern is the numbered frame filename pattern used inside a temp
// workspace. Frame order is the frame's position in the source video.
const FramePattern = "%04d.png"

// DefaultFPS is used for reassembly when the original rate is not kept.
const DefaultFPS = 30.0

// Runner invokes the external binaries.
type Runner struct {
	FFmpeg  string
	FFprobe string
}

// NewRunner creates a runner for the given binary names or paths.
func NewRunner(ffmpegBin, ffprobeBin string) *Runner {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Runner{FFmpeg: ffmpegBin, FFprobe: ffprobeBin}
}

// Available verifies the ffmpeg binary can be found. A missing encoder is
// unrecoverable, so callers treat this as a hard pre-flight failure.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg is not installed: %w", err)
	}
	return nil
}

// ExtractFrames decodes every frame of the target video into numbered PNG
// files inside dir.
func (r *Runner) ExtractFrames(ctx context.Context, target, dir string) error {
	return r.run(ctx, extractArgs(target, dir))
}

// EncodeVideo assembles the numbered frames in dir into a video at the
// given frame rate, encoder and CRF quality.
func (r *Runner) EncodeVideo(ctx context.Context, dir string, fps float64, encoder string, quality int, output string) error {
	return r.run(ctx, encodeArgs(dir, fps, encoder, quality, output))
}

// RestoreAudio muxes the audio track of the original target into the
// rendered video. The caller falls back to the silent render on failure.
func (r *Runner) RestoreAudio(ctx context.Context, rendered, target, output string) error {
	return r.run(ctx, audioArgs(rendered, target, output))
}

func (r *Runner) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.FFmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", r.FFmpeg, strings.Join(args, " "), err, tail(output))
	}
	return nil
}

func extractArgs(target, dir string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", target,
		filepath.Join(dir, FramePattern),
	}
}

func encodeArgs(dir string, fps float64, encoder string, quality int, output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", filepath.Join(dir, FramePattern),
		"-c:v", encoder,
		"-crf", strconv.Itoa(quality),
		"-pix_fmt", "yuv420p",
		"-vf", "colorspace=bt709:iall=bt601-6-625:fast=1",
		"-y", output,
	}
}

func audioArgs(rendered, target, output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", rendered,
		"-i", target,
		"-c:v", "copy",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-y", output,
	}
}

// tail returns the last few lines of combined output for error messages.
func tail(output []byte) string {
	text := strings.TrimSpace(string(output))
	lines := strings.Split(text, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "\n")
}
