package frame

import (
	"testing"

	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/inference"
)

func TestChunksContiguous(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e", "f", "g"}
	chunks := Chunks(paths, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}

	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	if len(flat) != len(paths) {
		t.Fatalf("flattened %d paths, want %d", len(flat), len(paths))
	}
	for i, p := range flat {
		if p != paths[i] {
			t.Fatalf("path %d = %q, want %q", i, p, paths[i])
		}
	}
}

func TestChunksFewerPathsThanWorkers(t *testing.T) {
	chunks := Chunks([]string{"a", "b"}, 8)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) != 1 {
			t.Fatalf("chunk %d has %d paths, want 1", i, len(c))
		}
	}
}

func TestChunksEmpty(t *testing.T) {
	if got := Chunks(nil, 4); got != nil {
		t.Fatalf("chunks of empty input = %v, want nil", got)
	}
}

func TestFanOut(t *testing.T) {
	tests := []struct {
		name      string
		workers   int
		provider  inference.Provider
		chunkSize int
		want      bool
	}{
		{"cpu with large chunks", 4, inference.ProviderCPU, 10, true},
		{"single worker", 1, inference.ProviderCPU, 10, false},
		{"tiny chunks", 4, inference.ProviderCPU, 2, false},
		{"cuda stays single session", 4, inference.ProviderCUDA, 10, false},
		{"coreml stays single session", 4, inference.ProviderCoreML, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers, tt.provider)
			if got := p.fanOut(tt.chunkSize); got != tt.want {
				t.Fatalf("fanOut(%d) = %v, want %v", tt.chunkSize, got, tt.want)
			}
		})
	}
}

func TestForNameUnknown(t *testing.T) {
	cfg := config.Default()
	if _, err := ForName("face-inverter", &cfg, inference.ProviderCPU); err == nil {
		t.Fatal("expected error for unknown processor name")
	}
}

func TestForNameKnown(t *testing.T) {
	cfg := config.Default()
	for _, name := range []string{config.ProcessorFaceSwapper, config.ProcessorFaceEnhancer} {
		factory, err := ForName(name, &cfg, inference.ProviderCPU)
		if err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
		if factory == nil {
			t.Fatalf("ForName(%q) returned nil factory", name)
		}
	}
}
