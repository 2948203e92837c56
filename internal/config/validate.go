package config

import (
	"fmt"
	"strings"
)

var validEncoders = map[string]bool{
	"libx264": true,
	"libx265": true,
}

var validProviders = map[string]bool{
	"cpu":      true,
	"cuda":     true,
	"coreml":   true,
	"directml": true,
}

var validProcessors = map[string]bool{
	ProcessorFaceSwapper:  true,
	ProcessorFaceEnhancer: true,
}

var validSwapModels = map[string]bool{
	"inswapper":  true,
	"simswap512": true,
}

var validEnhanceModels = map[string]bool{
	"gfpgan":     true,
	"codeformer": true,
	"gpen":       true,
}

// Validate checks cross-field constraints and normalizes string fields.
func (c *Config) Validate() error {
	c.VideoEncoder = strings.TrimSpace(c.VideoEncoder)
	c.ExecutionProvider = strings.ToLower(strings.TrimSpace(c.ExecutionProvider))
	c.SwapModel = strings.ToLower(strings.TrimSpace(c.SwapModel))
	c.EnhanceModel = strings.ToLower(strings.TrimSpace(c.EnhanceModel))

	if !validEncoders[c.VideoEncoder] {
		return fmt.Errorf("video encoder %q is not supported (libx264 or libx265)", c.VideoEncoder)
	}
	if c.VideoQuality < 0 || c.VideoQuality > 51 {
		return fmt.Errorf("video quality %d out of CRF range 0-51", c.VideoQuality)
	}
	if !validProviders[c.ExecutionProvider] {
		return fmt.Errorf("execution provider %q is not supported (cpu, cuda, coreml or directml)", c.ExecutionProvider)
	}
	if !validSwapModels[c.SwapModel] {
		return fmt.Errorf("swap model %q is not supported (inswapper or simswap512)", c.SwapModel)
	}
	if !validEnhanceModels[c.EnhanceModel] {
		return fmt.Errorf("enhance model %q is not supported (gfpgan, codeformer or gpen)", c.EnhanceModel)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if len(c.FrameProcessors) == 0 {
		return fmt.Errorf("at least one frame processor must be selected")
	}
	for _, p := range c.FrameProcessors {
		if !validProcessors[p] {
			return fmt.Errorf("unknown frame processor %q", p)
		}
	}
	if c.NSFW.Threshold < 0 || c.NSFW.Threshold > 1 {
		return fmt.Errorf("nsfw threshold %v out of range 0-1", c.NSFW.Threshold)
	}
	if c.NSFW.FrameInterval < 1 {
		return fmt.Errorf("nsfw frame interval must be at least 1, got %d", c.NSFW.FrameInterval)
	}
	if c.Detection.Size < 64 {
		return fmt.Errorf("detection size %d too small", c.Detection.Size)
	}
	return nil
}
