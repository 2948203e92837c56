package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dudu/reface/internal/analyser"
	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/logging"
	"github.com/dudu/reface/internal/pipeline"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	source string
	target string
	output string

	processors []string
	keepFPS    bool
	keepAudio  bool
	keepFrames bool
	manyFaces  bool
	encoder    string
	quality    int
	workers    int
	provider   string
	swapModel  string
	enhance    string
	skipNSFW   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "reface",
		Short:         "Swap and restore faces in images and videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "configuration file path")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")

	f := cmd.Flags()
	f.StringVarP(&opts.source, "source", "s", "", "source face image")
	f.StringVarP(&opts.target, "target", "t", "", "target image or video")
	f.StringVarP(&opts.output, "output", "o", "", "output file path")
	f.StringSliceVar(&opts.processors, "frame-processor", []string{config.ProcessorFaceSwapper},
		"frame processors to run in order (face-swapper, face-enhancer)")
	f.BoolVar(&opts.keepFPS, "keep-fps", false, "keep the target frame rate instead of 30 fps")
	f.BoolVar(&opts.keepAudio, "keep-audio", true, "copy the target audio into the output")
	f.BoolVar(&opts.keepFrames, "keep-frames", false, "keep the extracted frame directory")
	f.BoolVar(&opts.manyFaces, "many-faces", false, "process every detected face")
	f.StringVar(&opts.encoder, "video-encoder", "libx264", "output video encoder (libx264, libx265)")
	f.IntVar(&opts.quality, "video-quality", 18, "output video CRF, lower is better")
	f.IntVar(&opts.workers, "workers", config.SuggestWorkers(), "frame pool worker count")
	f.StringVar(&opts.provider, "execution-provider", "cpu", "inference provider (cpu, cuda, coreml, directml)")
	f.StringVar(&opts.swapModel, "swap-model", "inswapper", "face swap model (inswapper, simswap512)")
	f.StringVar(&opts.enhance, "enhance-model", "gfpgan", "face restoration model (gfpgan, codeformer, gpen)")
	f.BoolVar(&opts.skipNSFW, "skip-content-check", false, "disable the content classifier gate")

	cmd.AddCommand(newProbeCommand(opts))
	cmd.AddCommand(newLiveCommand(opts))

	return cmd
}

// loadConfig layers command line overrides on top of the config file. Only
// flags the user actually set override file values.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("frame-processor") {
		cfg.FrameProcessors = opts.processors
	}
	if flags.Changed("keep-fps") {
		cfg.KeepFPS = opts.keepFPS
	}
	if flags.Changed("keep-audio") {
		cfg.KeepAudio = opts.keepAudio
	}
	if flags.Changed("keep-frames") {
		cfg.KeepFrames = opts.keepFrames
	}
	if flags.Changed("many-faces") {
		cfg.ManyFaces = opts.manyFaces
	}
	if flags.Changed("video-encoder") {
		cfg.VideoEncoder = opts.encoder
	}
	if flags.Changed("video-quality") {
		cfg.VideoQuality = opts.quality
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("execution-provider") {
		cfg.ExecutionProvider = opts.provider
	}
	if flags.Changed("swap-model") {
		cfg.SwapModel = opts.swapModel
	}
	if flags.Changed("enhance-model") {
		cfg.EnhanceModel = opts.enhance
	}
	if flags.Changed("skip-content-check") {
		cfg.NSFW.Enabled = !opts.skipNSFW
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}

	cfg.SourcePath = opts.source
	cfg.TargetPath = opts.target
	cfg.OutputPath = opts.output

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	if opts.target == "" || opts.output == "" {
		return errors.New("both --target and --output are required")
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	runner, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, analyser.ErrUnsafeContent) {
			return fmt.Errorf("aborted: %w", err)
		}
		return err
	}
	return nil
}
