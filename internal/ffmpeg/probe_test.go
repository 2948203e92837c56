package ffmpeg

import (
	"math"
	"testing"
)

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"25/1", 25, true},
		{"30000/1001", 29.97002997, true},
		{"30", 30, true},
		{"0/0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"25/0", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseRate(tc.in)
		if ok != tc.ok {
			t.Errorf("parseRate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("parseRate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestResultFPS(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "audio", RFrameRate: "0/0"},
		{CodecType: "video", RFrameRate: "24000/1001"},
	}}
	if got := result.FPS(); math.Abs(got-23.976023976) > 1e-6 {
		t.Fatalf("FPS = %v", got)
	}

	empty := Result{}
	if got := empty.FPS(); got != DefaultFPS {
		t.Fatalf("empty result should fall back to %v, got %v", DefaultFPS, got)
	}
}

func TestResultStreamHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
			{CodecType: "subtitle"},
		},
		Format: Format{Duration: "12.5"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("video count = %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("audio count = %d", result.AudioStreamCount())
	}
	if !result.HasAudio() {
		t.Fatal("HasAudio should be true")
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("duration = %v", result.DurationSeconds())
	}

	silent := Result{Format: Format{Duration: "garbage"}}
	if silent.HasAudio() {
		t.Fatal("HasAudio should be false")
	}
	if silent.DurationSeconds() != 0 {
		t.Fatalf("bad duration should be 0, got %v", silent.DurationSeconds())
	}
}
