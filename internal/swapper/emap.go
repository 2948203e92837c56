package swapper

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Emap is the 512x512 matrix that maps an ArcFace embedding into the latent
// space expected by the inswapper generator.
type Emap [512][512]float32

// LoadEmap reads the matrix from a little-endian float32 binary file.
func LoadEmap(path string) (*Emap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emap: %w", err)
	}

	const want = 512 * 512 * 4
	if len(data) != want {
		return nil, fmt.Errorf("emap size mismatch: want %d bytes, got %d", want, len(data))
	}

	var emap Emap
	for i := range emap {
		for j := range emap[i] {
			bits := binary.LittleEndian.Uint32(data[(i*512+j)*4:])
			emap[i][j] = math.Float32frombits(bits)
		}
	}
	return &emap, nil
}

// Latent computes norm(embedding @ emap), the generator's identity input.
func (e *Emap) Latent(embedding *Embedding) *Embedding {
	var latent Embedding
	for j := 0; j < 512; j++ {
		var sum float32
		for i := 0; i < 512; i++ {
			sum += embedding[i] * e[i][j]
		}
		latent[j] = sum
	}
	normalized := latent.Normalized()
	return &normalized
}
