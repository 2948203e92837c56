package enhancer

import (
	"fmt"

	"github.com/dudu/reface/internal/inference"
)

const restoreSize = 512

// NewGFPGAN creates a GFPGAN 1.4 face restorer (512x512, [0,1] range).
func NewGFPGAN(modelPath string, provider inference.Provider) (Restorer, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"input"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create GFPGAN session: %w", err)
	}
	return &restorer{session: session, size: restoreSize, rng: rangeUnit}, nil
}

// NewCodeFormer creates a CodeFormer face restorer (512x512, [-1,1] range).
// Exports of the model differ in whether the fidelity weight "w" is baked
// in; when the single-input form fails we retry with the explicit weight.
func NewCodeFormer(modelPath string, provider inference.Provider) (Restorer, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"x"}, []string{"output"})
	if err == nil {
		return &restorer{session: session, size: restoreSize, rng: rangeSymmetric}, nil
	}

	session, err = inference.NewSession(modelPath, provider, []string{"x", "w"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create CodeFormer session: %w", err)
	}
	weight := float32(0.5)
	return &restorer{session: session, size: restoreSize, rng: rangeSymmetric, weight: &weight}, nil
}

// NewGPEN creates a GPEN-BFR face restorer (512x512, [-1,1] range).
func NewGPEN(modelPath string, provider inference.Provider) (Restorer, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"input"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create GPEN session: %w", err)
	}
	return &restorer{session: session, size: restoreSize, rng: rangeSymmetric}, nil
}
