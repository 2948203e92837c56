// Package enhancer restores aligned face crops with pretrained models.
package enhancer

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// Restorer enhances an aligned face crop, returning it at the model's
// native resolution.
type Restorer interface {
	InputSize() int
	Restore(face gocv.Mat) (gocv.Mat, error)
	Close() error
}

// NewRestorer creates the configured face restoration model.
func NewRestorer(model, modelPath string, provider inference.Provider) (Restorer, error) {
	switch model {
	case "gfpgan":
		return NewGFPGAN(modelPath, provider)
	case "codeformer":
		return NewCodeFormer(modelPath, provider)
	case "gpen":
		return NewGPEN(modelPath, provider)
	}
	return nil, fmt.Errorf("unknown enhance model %q", model)
}

// pixelRange describes the value range a model works in.
type pixelRange int

const (
	rangeUnit     pixelRange = iota // [0, 1]
	rangeSymmetric                  // [-1, 1]
)

// restorer is the shared session plumbing for single-image face
// restoration models: resize, RGB NCHW in, RGB NCHW out, repack to BGR.
type restorer struct {
	session *inference.Session
	size    int
	rng     pixelRange
	// weight is an optional scalar fidelity input (CodeFormer's "w").
	weight *float32
}

func (r *restorer) InputSize() int { return r.size }

func (r *restorer) Restore(face gocv.Mat) (gocv.Mat, error) {
	resized := gocv.NewMat()
	if face.Rows() != r.size || face.Cols() != r.size {
		gocv.Resize(face, &resized, image.Pt(r.size, r.size), 0, 0, gocv.InterpolationLanczos4)
	} else {
		face.CopyTo(&resized)
	}
	defer resized.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(r.size), int64(r.size)),
		r.preprocess(resized),
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	inputs := []ort.Value{inputTensor}
	if r.weight != nil {
		weightTensor, werr := ort.NewTensor(ort.NewShape(1), []float64{float64(*r.weight)})
		if werr != nil {
			return gocv.NewMat(), fmt.Errorf("create weight tensor: %w", werr)
		}
		defer weightTensor.Destroy()
		inputs = append(inputs, weightTensor)
	}

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 3, int64(r.size), int64(r.size)})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := r.session.Run(inputs, []ort.Value{outputTensor}); err != nil {
		return gocv.NewMat(), fmt.Errorf("restoration inference: %w", err)
	}

	return r.postprocess(outputTensor.GetData()), nil
}

// preprocess converts a BGR crop into normalized RGB NCHW data.
func (r *restorer) preprocess(img gocv.Mat) []float32 {
	plane := r.size * r.size
	data := make([]float32, 3*plane)

	for y := 0; y < r.size; y++ {
		for x := 0; x < r.size; x++ {
			px := img.GetVecbAt(y, x)
			b := float32(px[0]) / 255.0
			g := float32(px[1]) / 255.0
			rr := float32(px[2]) / 255.0
			if r.rng == rangeSymmetric {
				b = b*2 - 1
				g = g*2 - 1
				rr = rr*2 - 1
			}
			idx := y*r.size + x
			data[idx] = rr
			data[plane+idx] = g
			data[2*plane+idx] = b
		}
	}
	return data
}

// postprocess repacks normalized RGB NCHW output into a BGR byte image.
func (r *restorer) postprocess(output []float32) gocv.Mat {
	plane := r.size * r.size
	pixels := make([]byte, plane*3)

	for i := 0; i < plane; i++ {
		rr := output[i]
		g := output[plane+i]
		b := output[2*plane+i]
		if r.rng == rangeSymmetric {
			rr = (rr + 1) / 2
			g = (g + 1) / 2
			b = (b + 1) / 2
		}
		pixels[i*3+0] = denormByte(b)
		pixels[i*3+1] = denormByte(g)
		pixels[i*3+2] = denormByte(rr)
	}

	result, _ := gocv.NewMatFromBytes(r.size, r.size, gocv.MatTypeCV8UC3, pixels)
	return result
}

func (r *restorer) Close() error {
	return r.session.Destroy()
}

func denormByte(v float32) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
