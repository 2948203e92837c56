// Package config holds the run configuration for the face swap pipeline.
//
// Configuration is assembled in three layers: repository defaults, an
// optional TOML file, and command line flags applied by the CLI. Paths to
// the source, target and output are flag-only and never read from disk.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Models contains the on-disk locations of the pretrained models.
// Relative entries are resolved against Dir.
type Models struct {
	Dir        string `toml:"dir"`
	Detector   string `toml:"detector"`
	Landmarker string `toml:"landmarker"`
	ArcFace    string `toml:"arcface"`
	Swapper    string `toml:"swapper"`
	Emap       string `toml:"emap"`
	Enhancer   string `toml:"enhancer"`
	NSFW       string `toml:"nsfw"`

	// ORTLibrary overrides the ONNX Runtime shared library location.
	// Empty means the platform default search path.
	ORTLibrary string `toml:"ort_library"`
}

// Detection contains face detection and blending tuning knobs.
type Detection struct {
	Size          int     `toml:"size"`
	ConfThreshold float32 `toml:"conf_threshold"`
	NMSThreshold  float32 `toml:"nms_threshold"`
	BlurSize      int     `toml:"blur_size"`
	ColorTransfer bool    `toml:"color_transfer"`
	MouthMask     bool    `toml:"mouth_mask"`
	Sharpness     float32 `toml:"sharpness"`
}

// NSFW contains content gate configuration.
type NSFW struct {
	Enabled       bool    `toml:"enabled"`
	Threshold     float32 `toml:"threshold"`
	FrameInterval int     `toml:"frame_interval"`
}

// Log contains logger configuration.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete pipeline configuration.
type Config struct {
	SourcePath string `toml:"-"`
	TargetPath string `toml:"-"`
	OutputPath string `toml:"-"`

	FrameProcessors   []string `toml:"frame_processors"`
	KeepFPS           bool     `toml:"keep_fps"`
	KeepAudio         bool     `toml:"keep_audio"`
	KeepFrames        bool     `toml:"keep_frames"`
	ManyFaces         bool     `toml:"many_faces"`
	VideoEncoder      string   `toml:"video_encoder"`
	VideoQuality      int      `toml:"video_quality"`
	Workers           int      `toml:"workers"`
	ExecutionProvider string   `toml:"execution_provider"`
	SwapModel         string   `toml:"swap_model"`
	EnhanceModel      string   `toml:"enhance_model"`

	WorkDir       string `toml:"work_dir"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`

	Models    Models    `toml:"models"`
	Detection Detection `toml:"detection"`
	NSFW      NSFW      `toml:"nsfw"`
	Log       Log       `toml:"log"`
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults; a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reface.toml"
	}
	return filepath.Join(home, ".config", "reface", "config.toml")
}

// ModelPath resolves a model entry against the models directory.
func (c *Config) ModelPath(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Models.Dir, name)
}

// HasProcessor reports whether the named frame processor is selected.
func (c *Config) HasProcessor(name string) bool {
	for _, p := range c.FrameProcessors {
		if p == name {
			return true
		}
	}
	return false
}
