package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result is parsed ffprobe output.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Probe executes ffprobe against path and decodes the JSON response.
func (r *Runner) Probe(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("probe: empty path")
	}

	cmd := exec.CommandContext(ctx, r.FFprobe,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("probe %s: %w: %s", path, err, tail(output))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("probe parse: %w", err)
	}
	return result, nil
}

// DetectFPS probes the first video stream's frame rate. It falls back to
// DefaultFPS when no rate can be determined.
func (r *Runner) DetectFPS(ctx context.Context, path string) float64 {
	result, err := r.Probe(ctx, path)
	if err != nil {
		return DefaultFPS
	}
	return result.FPS()
}

// FPS returns the first video stream's frame rate, or DefaultFPS.
func (r Result) FPS() float64 {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		if fps, ok := stream.FrameRate(); ok {
			return fps
		}
	}
	return DefaultFPS
}

// FrameRate parses the stream's r_frame_rate rational.
func (s Stream) FrameRate() (float64, bool) {
	return parseRate(s.RFrameRate)
}

// VideoStreamCount returns the number of video streams.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

// HasAudio reports whether the container carries an audio track.
func (r Result) HasAudio() bool {
	return r.AudioStreamCount() > 0
}

// DurationSeconds returns the container duration in seconds, or 0.
func (r Result) DurationSeconds() float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64); err == nil && v > 0 {
		return v
	}
	return 0
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// parseRate parses an ffprobe rational like "30000/1001" or "25/1".
func parseRate(rate string) (float64, bool) {
	rate = strings.TrimSpace(rate)
	if rate == "" || rate == "0/0" {
		return 0, false
	}

	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if !found {
		return n, n > 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	fps := n / d
	return fps, fps > 0
}
