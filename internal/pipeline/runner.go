package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/analyser"
	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/detector"
	"github.com/dudu/reface/internal/ffmpeg"
	"github.com/dudu/reface/internal/frame"
	"github.com/dudu/reface/internal/inference"
)

// Runner executes the configured processors over a target image or video.
type Runner struct {
	cfg      *config.Config
	log      *slog.Logger
	ff       *ffmpeg.Runner
	provider inference.Provider
}

// New validates the execution provider and prepares a runner. It does not
// load any models; that happens per run.
func New(cfg *config.Config, log *slog.Logger) (*Runner, error) {
	provider, err := inference.ParseProvider(cfg.ExecutionProvider)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		log:      log,
		ff:       ffmpeg.NewRunner(cfg.FFmpegBinary, cfg.FFprobeBinary),
		provider: provider,
	}, nil
}

// Run processes the configured target end to end and writes the result to
// the output path.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.preFlight(); err != nil {
		return err
	}

	if err := inference.Initialize(r.cfg.Models.ORTLibrary); err != nil {
		return err
	}
	defer inference.Shutdown()

	if err := r.verifySourceFace(); err != nil {
		return err
	}

	if err := r.screenTarget(); err != nil {
		return err
	}

	switch {
	case IsImage(r.cfg.TargetPath):
		return r.processImage(ctx)
	case IsVideo(r.cfg.TargetPath):
		return r.processVideo(ctx)
	}
	return fmt.Errorf("unsupported target type: %s", r.cfg.TargetPath)
}

// preFlight fails fast on missing binaries, inputs, or model files before
// any heavy work starts.
func (r *Runner) preFlight() error {
	if _, err := os.Stat(r.cfg.TargetPath); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	if r.cfg.HasProcessor(config.ProcessorFaceSwapper) {
		if r.cfg.SourcePath == "" {
			return fmt.Errorf("face swapping requires a source image")
		}
		if !IsImage(r.cfg.SourcePath) {
			return fmt.Errorf("source must be a still image: %s", r.cfg.SourcePath)
		}
		if _, err := os.Stat(r.cfg.SourcePath); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}

	if IsVideo(r.cfg.TargetPath) {
		if err := r.ff.Available(); err != nil {
			return err
		}
	}

	for _, path := range r.requiredModels() {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("model file: %w", err)
		}
	}
	return nil
}

// requiredModels lists the model files the configured run will load.
func (r *Runner) requiredModels() []string {
	paths := []string{r.cfg.ModelPath(r.cfg.Models.Detector)}
	if r.cfg.Detection.MouthMask {
		paths = append(paths, r.cfg.ModelPath(r.cfg.Models.Landmarker))
	}
	if r.cfg.HasProcessor(config.ProcessorFaceSwapper) {
		paths = append(paths,
			r.cfg.ModelPath(r.cfg.Models.ArcFace),
			r.cfg.ModelPath(r.cfg.Models.Swapper))
		if r.cfg.SwapModel == "inswapper" {
			paths = append(paths, r.cfg.ModelPath(r.cfg.Models.Emap))
		}
	}
	if r.cfg.HasProcessor(config.ProcessorFaceEnhancer) {
		paths = append(paths, r.cfg.ModelPath(r.cfg.Models.Enhancer))
	}
	if r.cfg.NSFW.Enabled {
		paths = append(paths, r.cfg.ModelPath(r.cfg.Models.NSFW))
	}
	return paths
}

// verifySourceFace fails the run before screening and frame extraction when
// the swap source has no detectable face. The swapper embeds the source
// again per worker; this check only keeps a face-less source from wasting a
// full extraction pass.
func (r *Runner) verifySourceFace() error {
	if !r.cfg.HasProcessor(config.ProcessorFaceSwapper) {
		return nil
	}

	img := gocv.IMRead(r.cfg.SourcePath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read source image %s", r.cfg.SourcePath)
	}
	defer img.Close()

	det, err := detector.NewSCRFD(detector.Options{
		ModelPath:     r.cfg.ModelPath(r.cfg.Models.Detector),
		Provider:      r.provider,
		InputSize:     r.cfg.Detection.Size,
		ConfThreshold: r.cfg.Detection.ConfThreshold,
		NMSThreshold:  r.cfg.Detection.NMSThreshold,
	})
	if err != nil {
		return err
	}
	defer det.Close()

	faces, err := det.Detect(img)
	if err != nil {
		return fmt.Errorf("detect source face: %w", err)
	}
	if detector.Best(faces) == nil {
		return fmt.Errorf("no face detected in source image %s", r.cfg.SourcePath)
	}
	return nil
}

// screenTarget aborts the run when the content classifier flags the target.
func (r *Runner) screenTarget() error {
	if !r.cfg.NSFW.Enabled {
		return nil
	}

	classifier, err := analyser.New(r.cfg.ModelPath(r.cfg.Models.NSFW), r.provider, r.cfg.NSFW.Threshold)
	if err != nil {
		return err
	}
	defer classifier.Close()

	if IsVideo(r.cfg.TargetPath) {
		return classifier.CheckVideo(r.cfg.TargetPath, r.cfg.NSFW.FrameInterval)
	}
	return classifier.CheckImage(r.cfg.TargetPath)
}

func (r *Runner) processImage(ctx context.Context) error {
	img := gocv.IMRead(r.cfg.TargetPath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read target image %s", r.cfg.TargetPath)
	}
	defer img.Close()

	for _, name := range r.cfg.FrameProcessors {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.log.Info("processing image", "processor", name)
		factory, err := frame.ForName(name, r.cfg, r.provider)
		if err != nil {
			return err
		}
		proc, err := factory()
		if err != nil {
			return err
		}
		err = proc.ProcessFrame(&img)
		proc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if ok := gocv.IMWrite(r.cfg.OutputPath, img); !ok {
		return fmt.Errorf("write output image %s", r.cfg.OutputPath)
	}
	r.log.Info("image done", "output", r.cfg.OutputPath)
	return nil
}

func (r *Runner) processVideo(ctx context.Context) error {
	ws, err := newWorkspace(r.cfg.WorkDir)
	if err != nil {
		return err
	}
	defer func() {
		if r.cfg.KeepFrames {
			r.log.Info("keeping frames", "dir", ws.FramesDir())
			return
		}
		if err := ws.Remove(); err != nil {
			r.log.Warn("workspace cleanup failed", "error", err)
		}
	}()

	r.log.Info("extracting frames", "target", r.cfg.TargetPath)
	if err := r.ff.ExtractFrames(ctx, r.cfg.TargetPath, ws.FramesDir()); err != nil {
		return err
	}
	paths, err := ws.FramePaths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no frames extracted from %s", r.cfg.TargetPath)
	}

	pool := frame.NewPool(r.cfg.Workers, r.provider)
	for _, name := range r.cfg.FrameProcessors {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.log.Info("processing frames", "processor", name, "frames", len(paths), "workers", r.cfg.Workers)
		factory, err := frame.ForName(name, r.cfg, r.provider)
		if err != nil {
			return err
		}
		if err := pool.Run(factory, name, paths); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	fps := ffmpeg.DefaultFPS
	if r.cfg.KeepFPS {
		fps = r.ff.DetectFPS(ctx, r.cfg.TargetPath)
	}

	rendered := ws.RenderedPath(r.cfg.TargetPath)
	r.log.Info("encoding video", "fps", fps, "encoder", r.cfg.VideoEncoder, "crf", r.cfg.VideoQuality)
	if err := r.ff.EncodeVideo(ctx, ws.FramesDir(), fps, r.cfg.VideoEncoder, r.cfg.VideoQuality, rendered); err != nil {
		return err
	}

	if r.cfg.KeepAudio {
		if err := r.ff.RestoreAudio(ctx, rendered, r.cfg.TargetPath, r.cfg.OutputPath); err != nil {
			r.log.Warn("audio restore failed, writing silent output", "error", err)
			return moveFile(rendered, r.cfg.OutputPath)
		}
		r.log.Info("video done", "output", r.cfg.OutputPath)
		return nil
	}

	if err := moveFile(rendered, r.cfg.OutputPath); err != nil {
		return err
	}
	r.log.Info("video done", "output", r.cfg.OutputPath)
	return nil
}
