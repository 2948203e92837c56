// Package frame defines the per-frame processors and the pool that fans
// them out over extracted video frames.
package frame

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/inference"
)

// Processor is a named stage applied to each frame in place.
type Processor interface {
	Name() string
	ProcessFrame(frame *gocv.Mat) error
	Close() error
}

// Factory builds a fresh processor instance. The pool invokes it once per
// worker so each worker owns its model sessions, mirroring per-process
// model loads.
type Factory func() (Processor, error)

// ForName maps a processor name to its factory.
func ForName(name string, cfg *config.Config, provider inference.Provider) (Factory, error) {
	switch name {
	case config.ProcessorFaceSwapper:
		return func() (Processor, error) { return NewFaceSwapper(cfg, provider) }, nil
	case config.ProcessorFaceEnhancer:
		return func() (Processor, error) { return NewFaceEnhancer(cfg, provider) }, nil
	}
	return nil, fmt.Errorf("unknown frame processor %q", name)
}
