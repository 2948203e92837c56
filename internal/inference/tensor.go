package inference

import (
	"encoding/binary"
	"math"
)

// BlobFloat32 reinterprets raw gocv blob bytes as float32 tensor data.
func BlobFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		result[i] = math.Float32frombits(bits)
	}
	return result
}
