package frame

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/detector"
	"github.com/dudu/reface/internal/inference"
	"github.com/dudu/reface/internal/swapper"
)

// FaceSwapper replaces faces in a frame with the source identity.
type FaceSwapper struct {
	detector  *detector.SCRFD
	landmarks *detector.Landmarker
	generator swapper.Generator
	blender   *swapper.Blender
	source    *swapper.Embedding
	manyFaces bool
}

// NewFaceSwapper loads the swap models and embeds the source face. A source
// image without a detectable face is a construction error.
func NewFaceSwapper(cfg *config.Config, provider inference.Provider) (*FaceSwapper, error) {
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

	encoder, err := swapper.NewEncoder(cfg.ModelPath(cfg.Models.ArcFace), provider)
	if err != nil {
		det.Close()
		return nil, err
	}
	defer encoder.Close()

	generator, err := swapper.NewGenerator(cfg.SwapModel,
		cfg.ModelPath(cfg.Models.Swapper), cfg.ModelPath(cfg.Models.Emap), provider)
	if err != nil {
		det.Close()
		return nil, err
	}

	var landmarks *detector.Landmarker
	if cfg.Detection.MouthMask {
		landmarks, err = detector.NewLandmarker(cfg.ModelPath(cfg.Models.Landmarker), provider)
		if err != nil {
			generator.Close()
			det.Close()
			return nil, err
		}
	}

	p := &FaceSwapper{
		detector:  det,
		landmarks: landmarks,
		generator: generator,
		blender: swapper.NewBlender(swapper.BlendOptions{
			BlurSize:      cfg.Detection.BlurSize,
			ColorTransfer: cfg.Detection.ColorTransfer,
			MouthMask:     cfg.Detection.MouthMask,
			Sharpness:     cfg.Detection.Sharpness,
		}),
		manyFaces: cfg.ManyFaces,
	}

	if err := p.embedSource(encoder, cfg.SourcePath); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// embedSource detects the source face and stores its identity embedding.
func (p *FaceSwapper) embedSource(encoder *swapper.Encoder, sourcePath string) error {
	img := gocv.IMRead(sourcePath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read source image %s", sourcePath)
	}
	defer img.Close()

	faces, err := p.detector.Detect(img)
	if err != nil {
		return fmt.Errorf("detect source face: %w", err)
	}
	face := detector.Best(faces)
	if face == nil {
		return fmt.Errorf("no face detected in source image %s", sourcePath)
	}

	aligned := swapper.Align(img, face.Landmarks, swapper.ArcFaceSize)
	defer aligned.Close()

	embedding, err := encoder.Extract(aligned.Face)
	if err != nil {
		return fmt.Errorf("embed source face: %w", err)
	}
	p.source = embedding
	return nil
}

// Name implements Processor.
func (p *FaceSwapper) Name() string { return config.ProcessorFaceSwapper }

// ProcessFrame swaps the selected faces in the frame in place. Faces that
// fail to align or swap are left untouched.
func (p *FaceSwapper) ProcessFrame(frame *gocv.Mat) error {
	faces, err := p.detector.Detect(*frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	for _, face := range detector.Select(faces, p.manyFaces) {
		if p.landmarks != nil {
			// Refinement failure only degrades the mask.
			_ = p.landmarks.Refine(*frame, &face)
		}

		aligned := swapper.Align(*frame, face.Landmarks, p.generator.InputSize())
		swapped, err := p.generator.Swap(aligned.Face, p.source)
		if err != nil {
			aligned.Close()
			continue
		}

		p.blender.Paste(swapped, frame, aligned.Transform, &face)

		swapped.Close()
		aligned.Close()
	}
	return nil
}

// SourceEmbedding exposes the embedded source identity.
func (p *FaceSwapper) SourceEmbedding() *swapper.Embedding {
	return p.source
}

// Close releases all model sessions.
func (p *FaceSwapper) Close() error {
	var errs []error
	if p.landmarks != nil {
		if err := p.landmarks.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.generator != nil {
		if err := p.generator.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.detector != nil {
		if err := p.detector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close face swapper: %v", errs)
	}
	return nil
}
