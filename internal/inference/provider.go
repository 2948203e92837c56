package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Provider selects the hardware backend used for model inference.
type Provider string

const (
	ProviderCPU      Provider = "cpu"
	ProviderCUDA     Provider = "cuda"
	ProviderCoreML   Provider = "coreml"
	ProviderDirectML Provider = "directml"
)

// ParseProvider validates a provider name from configuration.
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderDirectML:
		return Provider(name), nil
	}
	return "", fmt.Errorf("unknown execution provider %q", name)
}

func (p Provider) String() string { return string(p) }

// apply appends the execution provider to the session options. An
// accelerator that cannot be appended is an error; selecting it was an
// explicit request, so there is no silent CPU fallback.
func (p Provider) apply(options *ort.SessionOptions) error {
	switch p {
	case ProviderCPU, "":
		return nil
	case ProviderCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cudaOptions.Destroy()
		return options.AppendExecutionProviderCUDA(cudaOptions)
	case ProviderCoreML:
		return options.AppendExecutionProviderCoreML(0)
	case ProviderDirectML:
		return options.AppendExecutionProviderDirectML(0)
	}
	return fmt.Errorf("unknown execution provider %q", string(p))
}
