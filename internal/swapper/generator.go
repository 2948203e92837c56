package swapper

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// Generator produces a swapped face crop from an aligned target crop and a
// source identity embedding.
type Generator interface {
	// InputSize is the aligned crop size the model expects.
	InputSize() int
	Swap(targetFace gocv.Mat, source *Embedding) (gocv.Mat, error)
	Close() error
}

// NewGenerator creates the configured swap generator.
func NewGenerator(model, modelPath, emapPath string, provider inference.Provider) (Generator, error) {
	switch model {
	case "inswapper":
		return NewInswapper(modelPath, emapPath, provider)
	case "simswap512":
		return NewSimSwap512(modelPath, provider)
	}
	return nil, fmt.Errorf("unknown swap model %q", model)
}

// Inswapper wraps the insightface inswapper model (128x128 crops).
type Inswapper struct {
	session *inference.Session
	emap    *Emap
}

const inswapperSize = 128

// NewInswapper creates an inswapper generator. The emap file holds the
// embedding-to-latent matrix shipped alongside the model.
func NewInswapper(modelPath, emapPath string, provider inference.Provider) (*Inswapper, error) {
	emap, err := LoadEmap(emapPath)
	if err != nil {
		return nil, err
	}

	session, err := inference.NewSession(modelPath, provider, []string{"target", "source"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create inswapper session: %w", err)
	}

	return &Inswapper{session: session, emap: emap}, nil
}

func (g *Inswapper) InputSize() int { return inswapperSize }

// Swap generates a swapped 128x128 BGR face crop.
func (g *Inswapper) Swap(targetFace gocv.Mat, source *Embedding) (gocv.Mat, error) {
	if targetFace.Rows() != inswapperSize || targetFace.Cols() != inswapperSize {
		return gocv.NewMat(), fmt.Errorf("expected %dx%d target crop, got %dx%d",
			inswapperSize, inswapperSize, targetFace.Cols(), targetFace.Rows())
	}

	latent := g.emap.Latent(source)

	targetTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, inswapperSize, inswapperSize),
		rgbUnitBlob(targetFace, inswapperSize),
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create target tensor: %w", err)
	}
	defer targetTensor.Destroy()

	sourceTensor, err := ort.NewTensor(ort.NewShape(1, 512), latent[:])
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create source tensor: %w", err)
	}
	defer sourceTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 3, inswapperSize, inswapperSize})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = g.session.Run(
		[]ort.Value{targetTensor, sourceTensor},
		[]ort.Value{outputTensor},
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("swap inference: %w", err)
	}

	return unitChwToBGR(outputTensor.GetData(), inswapperSize), nil
}

// Close releases generator resources.
func (g *Inswapper) Close() error {
	return g.session.Destroy()
}

// SimSwap512 wraps the unofficial SimSwap 512x512 model.
type SimSwap512 struct {
	session *inference.Session
}

const simswapSize = 512

// NewSimSwap512 creates a SimSwap generator.
func NewSimSwap512(modelPath string, provider inference.Provider) (*SimSwap512, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"target", "source"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create simswap session: %w", err)
	}
	return &SimSwap512{session: session}, nil
}

func (g *SimSwap512) InputSize() int { return simswapSize }

// Swap generates a swapped 512x512 BGR face crop. SimSwap consumes the
// normalized embedding directly, without a latent transform.
func (g *SimSwap512) Swap(targetFace gocv.Mat, source *Embedding) (gocv.Mat, error) {
	if targetFace.Rows() != simswapSize || targetFace.Cols() != simswapSize {
		return gocv.NewMat(), fmt.Errorf("expected %dx%d target crop, got %dx%d",
			simswapSize, simswapSize, targetFace.Cols(), targetFace.Rows())
	}

	normalized := source.Normalized()

	targetTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, simswapSize, simswapSize),
		rgbUnitBlob(targetFace, simswapSize),
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create target tensor: %w", err)
	}
	defer targetTensor.Destroy()

	sourceTensor, err := ort.NewTensor(ort.NewShape(1, 512), normalized[:])
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create source tensor: %w", err)
	}
	defer sourceTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 3, simswapSize, simswapSize})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = g.session.Run(
		[]ort.Value{targetTensor, sourceTensor},
		[]ort.Value{outputTensor},
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("swap inference: %w", err)
	}

	return unitChwToBGR(outputTensor.GetData(), simswapSize), nil
}

// Close releases generator resources.
func (g *SimSwap512) Close() error {
	return g.session.Destroy()
}

// rgbUnitBlob converts a BGR crop into a [0,1] RGB NCHW tensor payload.
func rgbUnitBlob(img gocv.Mat, size int) []float32 {
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	return inference.BlobFloat32(blob.ToBytes())
}

// unitChwToBGR repacks [0,1] RGB NCHW model output into a BGR byte image.
func unitChwToBGR(data []float32, size int) gocv.Mat {
	plane := size * size
	pixels := make([]byte, plane*3)
	for i := 0; i < plane; i++ {
		pixels[i*3+0] = unitByte(data[2*plane+i]) // B
		pixels[i*3+1] = unitByte(data[plane+i])   // G
		pixels[i*3+2] = unitByte(data[i])         // R
	}
	result, _ := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC3, pixels)
	return result
}

func unitByte(v float32) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
