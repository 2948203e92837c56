package swapper

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// Embedding is a 512-dimensional face identity vector.
type Embedding [512]float32

// Normalized returns an L2-normalized copy of the embedding.
func (e *Embedding) Normalized() Embedding {
	var out Embedding
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < 1e-10 {
		return *e
	}
	for i, v := range e {
		out[i] = v / float32(norm)
	}
	return out
}

// CosineSimilarity returns the cosine similarity of two L2-normalized
// embeddings.
func CosineSimilarity(a, b *Embedding) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// Encoder extracts face embeddings with an ArcFace ONNX model.
type Encoder struct {
	session *inference.Session
}

// NewEncoder creates an ArcFace encoder.
func NewEncoder(modelPath string, provider inference.Provider) (*Encoder, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"input.1"}, []string{"683"})
	if err != nil {
		return nil, fmt.Errorf("create ArcFace session: %w", err)
	}
	return &Encoder{session: session}, nil
}

// Extract computes the L2-normalized embedding of an aligned 112x112 face.
func (e *Encoder) Extract(alignedFace gocv.Mat) (*Embedding, error) {
	if alignedFace.Rows() != ArcFaceSize || alignedFace.Cols() != ArcFaceSize {
		return nil, fmt.Errorf("expected %dx%d aligned face, got %dx%d",
			ArcFaceSize, ArcFaceSize, alignedFace.Cols(), alignedFace.Rows())
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(alignedFace, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	asFloat := gocv.NewMat()
	rgb.ConvertTo(&asFloat, gocv.MatTypeCV32FC3)
	defer asFloat.Close()

	blob := gocv.BlobFromImage(asFloat, 1.0/255.0, image.Pt(ArcFaceSize, ArcFaceSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, ArcFaceSize, ArcFaceSize),
		inference.BlobFloat32(blob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 512})
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := e.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("embedding inference: %w", err)
	}

	var raw Embedding
	copy(raw[:], outputTensor.GetData())
	normalized := raw.Normalized()
	return &normalized, nil
}

// Close releases encoder resources.
func (e *Encoder) Close() error {
	return e.session.Destroy()
}
