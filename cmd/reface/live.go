package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/camera"
	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/frame"
	"github.com/dudu/reface/internal/inference"
	"github.com/dudu/reface/internal/logging"
	"github.com/dudu/reface/internal/pipeline"
	"github.com/dudu/reface/internal/ui"
)

func newLiveCommand(opts *rootOptions) *cobra.Command {
	var (
		source   string
		deviceID int
		width    int
		height   int
		fps      int
		overlay  bool
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Swap faces on a webcam feed in a preview window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return errors.New("--source is required")
			}
			if !pipeline.IsImage(source) {
				return errors.New("source must be a still image")
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			cfg.SourcePath = source

			log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return runLive(cmd, cfg, log, camera.Options{
				DeviceID: deviceID,
				Width:    width,
				Height:   height,
				FPS:      fps,
			}, overlay)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&source, "source", "s", "", "source face image")
	f.IntVarP(&deviceID, "camera", "c", 0, "camera device index")
	f.IntVar(&width, "width", 1280, "requested capture width")
	f.IntVar(&height, "height", 720, "requested capture height")
	f.IntVar(&fps, "fps", 30, "requested capture frame rate")
	f.BoolVar(&overlay, "overlay", true, "draw the frame rate overlay")
	f.StringVar(&opts.provider, "execution-provider", "cpu", "inference provider (cpu, cuda, coreml, directml)")
	f.BoolVar(&opts.manyFaces, "many-faces", false, "process every detected face")

	return cmd
}

func runLive(cmd *cobra.Command, cfg *config.Config, log *slog.Logger, camOpts camera.Options, overlay bool) error {
	provider, err := inference.ParseProvider(cfg.ExecutionProvider)
	if err != nil {
		return err
	}

	if err := inference.Initialize(cfg.Models.ORTLibrary); err != nil {
		return err
	}
	defer inference.Shutdown()

	log.Info("loading models", "provider", provider)
	proc, err := frame.NewFaceSwapper(cfg, provider)
	if err != nil {
		return err
	}
	defer proc.Close()

	capture, err := camera.Open(camOpts)
	if err != nil {
		return err
	}
	defer capture.Close()
	log.Info("camera ready", "width", capture.Width(), "height", capture.Height())

	window := ui.NewWindow("reface", overlay)
	defer window.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	img := gocv.NewMat()
	defer img.Close()

	for ctx.Err() == nil {
		if !capture.Read(&img) {
			return errors.New("camera stopped delivering frames")
		}
		if img.Empty() {
			continue
		}

		if err := proc.ProcessFrame(&img); err != nil {
			log.Warn("frame skipped", "error", err)
		}
		window.Show(&img)

		// Esc or q closes the preview.
		switch window.WaitKey(time.Millisecond) {
		case 27, 'q':
			return nil
		}
	}
	return ctx.Err()
}
