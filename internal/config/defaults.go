package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// ProcessorFaceSwapper swaps the source face onto every processed frame.
	ProcessorFaceSwapper = "face-swapper"
	// ProcessorFaceEnhancer restores detected faces on every processed frame.
	ProcessorFaceEnhancer = "face-enhancer"
)

const (
	defaultVideoEncoder  = "libx264"
	defaultVideoQuality  = 18
	defaultProvider      = "cpu"
	defaultSwapModel     = "inswapper"
	defaultEnhanceModel  = "gfpgan"
	defaultDetectionSize = 640
	defaultConfThreshold = 0.5
	defaultNMSThreshold  = 0.4
	defaultBlurSize      = 31
	defaultNSFWThreshold = 0.85
	defaultNSFWInterval  = 100
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"

	defaultDetectorModel   = "scrfd_10g.onnx"
	defaultLandmarkerModel = "2d106det.onnx"
	defaultArcFaceModel    = "arcface.onnx"
	defaultSwapperModel    = "inswapper.onnx"
	defaultEmapFile        = "emap.bin"
	defaultEnhancerModel   = "gfpgan_1.4.onnx"
	defaultNSFWModel       = "open_nsfw.onnx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		FrameProcessors:   []string{ProcessorFaceSwapper},
		KeepAudio:         true,
		VideoEncoder:      defaultVideoEncoder,
		VideoQuality:      defaultVideoQuality,
		Workers:           SuggestWorkers(),
		ExecutionProvider: defaultProvider,
		SwapModel:         defaultSwapModel,
		EnhanceModel:      defaultEnhanceModel,
		WorkDir:           filepath.Join(os.TempDir(), "reface"),
		FFmpegBinary:      "ffmpeg",
		FFprobeBinary:     "ffprobe",
		Models: Models{
			Dir:        "models",
			Detector:   defaultDetectorModel,
			Landmarker: defaultLandmarkerModel,
			ArcFace:    defaultArcFaceModel,
			Swapper:    defaultSwapperModel,
			Emap:       defaultEmapFile,
			Enhancer:   defaultEnhancerModel,
			NSFW:       defaultNSFWModel,
		},
		Detection: Detection{
			Size:          defaultDetectionSize,
			ConfThreshold: defaultConfThreshold,
			NMSThreshold:  defaultNMSThreshold,
			BlurSize:      defaultBlurSize,
			ColorTransfer: true,
		},
		NSFW: NSFW{
			Enabled:       true,
			Threshold:     defaultNSFWThreshold,
			FrameInterval: defaultNSFWInterval,
		},
		Log: Log{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// SuggestWorkers picks a worker count for the frame pool. Half the logical
// CPUs, with a conservative cap on darwin where memory pressure from
// per-worker model loads bites sooner.
func SuggestWorkers() int {
	if runtime.GOOS == "darwin" {
		return 2
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}
