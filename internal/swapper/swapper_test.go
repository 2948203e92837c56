package swapper

import (
	"encoding/binary"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddingNormalized(t *testing.T) {
	var e Embedding
	e[0] = 3
	e[1] = 4

	n := e.Normalized()
	var sum float64
	for _, v := range n {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("normalized embedding has norm^2 %v", sum)
	}
	if math.Abs(float64(n[0]-0.6)) > 1e-5 || math.Abs(float64(n[1]-0.8)) > 1e-5 {
		t.Fatalf("unexpected components: %v %v", n[0], n[1])
	}
}

func TestEmbeddingNormalizedZeroVector(t *testing.T) {
	var e Embedding
	n := e.Normalized()
	for i, v := range n {
		if v != 0 {
			t.Fatalf("zero vector changed at %d: %v", i, v)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	var a, b Embedding
	a[0] = 1
	b[0] = 1
	if got := CosineSimilarity(&a, &b); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("identical embeddings similarity = %v", got)
	}
	b[0] = 0
	b[1] = 1
	if got := CosineSimilarity(&a, &b); got != 0 {
		t.Fatalf("orthogonal embeddings similarity = %v", got)
	}
}

func writeEmapFile(t *testing.T, fill func(i, j int) float32) string {
	t.Helper()
	buf := make([]byte, 512*512*4)
	for i := 0; i < 512; i++ {
		for j := 0; j < 512; j++ {
			binary.LittleEndian.PutUint32(buf[(i*512+j)*4:], math.Float32bits(fill(i, j)))
		}
	}
	path := filepath.Join(t.TempDir(), "emap.bin")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEmapRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emap.bin")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEmap(path); err == nil {
		t.Fatal("truncated emap should fail to load")
	}
}

func TestEmapLatentIdentity(t *testing.T) {
	// Identity matrix: latent is just the normalized embedding.
	path := writeEmapFile(t, func(i, j int) float32 {
		if i == j {
			return 1
		}
		return 0
	})
	emap, err := LoadEmap(path)
	if err != nil {
		t.Fatalf("load emap: %v", err)
	}

	var e Embedding
	e[0] = 3
	e[1] = 4
	latent := emap.Latent(&e)
	if math.Abs(float64(latent[0]-0.6)) > 1e-5 || math.Abs(float64(latent[1]-0.8)) > 1e-5 {
		t.Fatalf("identity latent mismatch: %v %v", latent[0], latent[1])
	}
}

func TestUnitByteClamping(t *testing.T) {
	if unitByte(-0.5) != 0 {
		t.Fatal("negative values should clamp to 0")
	}
	if unitByte(2.0) != 255 {
		t.Fatal("values above 1 should clamp to 255")
	}
	if got := unitByte(0.5); got != 127 {
		t.Fatalf("unitByte(0.5) = %d", got)
	}
}

func TestUnitChwToBGRChannelOrder(t *testing.T) {
	const size = 2
	plane := size * size
	// R=1, G=0.5, B=0 for every pixel.
	data := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		data[i] = 1.0
		data[plane+i] = 0.5
		data[2*plane+i] = 0.0
	}
	mat := unitChwToBGR(data, size)
	defer mat.Close()

	px := mat.GetVecbAt(0, 0)
	if px[0] != 0 || px[1] != 127 || px[2] != 255 {
		t.Fatalf("BGR order wrong: got %v", px)
	}
}

func TestNewGeneratorUnknownModel(t *testing.T) {
	if _, err := NewGenerator("faceshifter", "m.onnx", "emap.bin", "cpu"); err == nil {
		t.Fatal("unknown generator model should error")
	}
}

func TestNewBlenderForcesOddBlur(t *testing.T) {
	b := NewBlender(BlendOptions{BlurSize: 30})
	if b.opts.BlurSize%2 == 0 {
		t.Fatalf("blur size should be odd, got %d", b.opts.BlurSize)
	}
}

func TestConvexHullPointsReturnsInputCoordinates(t *testing.T) {
	// Square corners plus an interior point. The hull must consist of the
	// corners themselves, not index values reinterpreted as coordinates.
	corners := map[image.Point]bool{
		image.Pt(10, 10): true,
		image.Pt(90, 10): true,
		image.Pt(90, 90): true,
		image.Pt(10, 90): true,
	}
	points := []image.Point{
		{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 50, Y: 50}, {X: 90, Y: 90}, {X: 10, Y: 90},
	}

	hull := convexHullPoints(points)
	if len(hull) != 4 {
		t.Fatalf("hull has %d vertices, want 4: %v", len(hull), hull)
	}
	for _, p := range hull {
		if !corners[p] {
			t.Fatalf("hull vertex %v is not an input corner", p)
		}
	}
}
