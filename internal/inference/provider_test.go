package inference

import "testing"

func TestParseProvider(t *testing.T) {
	for _, name := range []string{"cpu", "cuda", "coreml", "directml"} {
		p, err := ParseProvider(name)
		if err != nil {
			t.Fatalf("ParseProvider(%q): %v", name, err)
		}
		if p.String() != name {
			t.Fatalf("round trip mismatch: %q != %q", p.String(), name)
		}
	}
}

func TestParseProviderRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "gpu", "CUDA", "rocm"} {
		if _, err := ParseProvider(name); err == nil {
			t.Fatalf("ParseProvider(%q) should fail", name)
		}
	}
}

func TestNewSessionRequiresInitialize(t *testing.T) {
	if _, err := NewSession("missing.onnx", ProviderCPU, []string{"in"}, []string{"out"}); err == nil {
		t.Fatal("session creation without Initialize should fail")
	}
}
