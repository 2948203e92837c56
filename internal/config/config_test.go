package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.KeepAudio {
		t.Fatal("keep_audio should default to true")
	}
	if cfg.KeepFPS {
		t.Fatal("keep_fps should default to false")
	}
	if got := cfg.VideoQuality; got != 18 {
		t.Fatalf("unexpected default video quality: %d", got)
	}
	if !cfg.HasProcessor(ProcessorFaceSwapper) {
		t.Fatal("face-swapper should be the default processor")
	}
	if cfg.HasProcessor(ProcessorFaceEnhancer) {
		t.Fatal("face-enhancer should not be selected by default")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad encoder", func(c *Config) { c.VideoEncoder = "mpeg4" }},
		{"quality too high", func(c *Config) { c.VideoQuality = 52 }},
		{"negative quality", func(c *Config) { c.VideoQuality = -1 }},
		{"bad provider", func(c *Config) { c.ExecutionProvider = "tpu" }},
		{"bad swap model", func(c *Config) { c.SwapModel = "deepfacelab" }},
		{"bad enhance model", func(c *Config) { c.EnhanceModel = "esrgan" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"no processors", func(c *Config) { c.FrameProcessors = nil }},
		{"unknown processor", func(c *Config) { c.FrameProcessors = []string{"face-mover"} }},
		{"nsfw threshold", func(c *Config) { c.NSFW.Threshold = 1.5 }},
		{"nsfw interval", func(c *Config) { c.NSFW.FrameInterval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateNormalizesCase(t *testing.T) {
	cfg := Default()
	cfg.ExecutionProvider = "  CUDA "
	cfg.SwapModel = "Inswapper"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.ExecutionProvider != "cuda" {
		t.Fatalf("provider not normalized: %q", cfg.ExecutionProvider)
	}
	if cfg.SwapModel != "inswapper" {
		t.Fatalf("swap model not normalized: %q", cfg.SwapModel)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
frame_processors = ["face-swapper", "face-enhancer"]
keep_fps = true
video_encoder = "libx265"
video_quality = 22
workers = 3

[models]
dir = "/opt/reface/models"
swapper = "inswapper_128.onnx"

[nsfw]
enabled = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.KeepFPS {
		t.Fatal("keep_fps should be overridden")
	}
	if cfg.VideoEncoder != "libx265" || cfg.VideoQuality != 22 || cfg.Workers != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.NSFW.Enabled {
		t.Fatal("nsfw gate should be disabled")
	}
	// Untouched sections keep their defaults.
	if cfg.KeepAudio != true {
		t.Fatal("keep_audio default lost")
	}
	if got := cfg.ModelPath(cfg.Models.Swapper); got != filepath.Join("/opt/reface/models", "inswapper_128.onnx") {
		t.Fatalf("unexpected swapper path: %s", got)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("explicit missing config file should error")
	}
}

func TestModelPathAbsolutePassthrough(t *testing.T) {
	cfg := Default()
	abs := filepath.Join(string(filepath.Separator), "models", "det.onnx")
	if got := cfg.ModelPath(abs); got != abs {
		t.Fatalf("absolute path should pass through, got %s", got)
	}
	if got := cfg.ModelPath(""); got != "" {
		t.Fatalf("empty model entry should stay empty, got %s", got)
	}
}
