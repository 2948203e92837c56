package frame

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/detector"
	"github.com/dudu/reface/internal/enhancer"
	"github.com/dudu/reface/internal/inference"
	"github.com/dudu/reface/internal/swapper"
)

// FaceEnhancer restores every selected face in a frame with a pretrained
// face restoration model.
type FaceEnhancer struct {
	detector  *detector.SCRFD
	restorer  enhancer.Restorer
	blender   *swapper.Blender
	manyFaces bool
}

// NewFaceEnhancer loads the detection and restoration models.
func NewFaceEnhancer(cfg *config.Config, provider inference.Provider) (*FaceEnhancer, error) {
	det, err := detector.NewSCRFD(detector.Options{
		ModelPath:     cfg.ModelPath(cfg.Models.Detector),
		Provider:      provider,
		InputSize:     cfg.Detection.Size,
		ConfThreshold: cfg.Detection.ConfThreshold,
		NMSThreshold:  cfg.Detection.NMSThreshold,
	})
	if err != nil {
		return nil, err
	}

	restorer, err := enhancer.NewRestorer(cfg.EnhanceModel, cfg.ModelPath(cfg.Models.Enhancer), provider)
	if err != nil {
		det.Close()
		return nil, err
	}

	return &FaceEnhancer{
		detector: det,
		restorer: restorer,
		blender: swapper.NewBlender(swapper.BlendOptions{
			BlurSize: cfg.Detection.BlurSize,
		}),
		manyFaces: cfg.ManyFaces,
	}, nil
}

// Name implements Processor.
func (p *FaceEnhancer) Name() string { return config.ProcessorFaceEnhancer }

// ProcessFrame restores the selected faces in place.
func (p *FaceEnhancer) ProcessFrame(frame *gocv.Mat) error {
	faces, err := p.detector.Detect(*frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	for _, face := range detector.Select(faces, p.manyFaces) {
		aligned := swapper.Align(*frame, face.Landmarks, p.restorer.InputSize())
		restored, err := p.restorer.Restore(aligned.Face)
		if err != nil {
			aligned.Close()
			continue
		}

		p.blender.Paste(restored, frame, aligned.Transform, &face)

		restored.Close()
		aligned.Close()
	}
	return nil
}

// Close releases all model sessions.
func (p *FaceEnhancer) Close() error {
	var errs []error
	if p.restorer != nil {
		if err := p.restorer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close face enhancer: %v", errs)
	}
	return nil
}
