package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

const (
	landmarkInputSize = 192
	landmarkInputMean = 127.5
	landmarkInputStd  = 128.0
)

// Landmarker refines detected faces with the insightface 2d106det model,
// attaching a 106-point landmark set used for mask generation.
type Landmarker struct {
	session *inference.Session
}

// NewLandmarker creates a 106-point landmark detector.
func NewLandmarker(modelPath string, provider inference.Provider) (*Landmarker, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"data"}, []string{"fc1"})
	if err != nil {
		return nil, fmt.Errorf("create landmark session: %w", err)
	}
	return &Landmarker{session: session}, nil
}

// Refine computes 106 landmarks for face and stores them on it.
func (l *Landmarker) Refine(img gocv.Mat, face *Face) error {
	bbox := face.BoundingBox
	center := bbox.Center()
	// 1.5x crop expansion around the larger box dimension
	scale := float32(landmarkInputSize) / (max(bbox.Width(), bbox.Height()) * 1.5)

	transform := cropTransform(center, scale)
	aligned := gocv.NewMat()
	gocv.WarpAffine(img, &aligned, transform, image.Pt(landmarkInputSize, landmarkInputSize))
	transform.Close()
	defer aligned.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(aligned, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	norm := gocv.NewMat()
	rgb.ConvertTo(&norm, gocv.MatTypeCV32FC3)
	defer norm.Close()
	gocv.AddWeighted(norm, 1.0/landmarkInputStd, norm, 0, -landmarkInputMean/landmarkInputStd, &norm)

	blob := gocv.BlobFromImage(norm, 1.0, image.Pt(landmarkInputSize, landmarkInputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, landmarkInputSize, landmarkInputSize),
		inference.BlobFloat32(blob.ToBytes()),
	)
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 212})
	if err != nil {
		return fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := l.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return fmt.Errorf("landmark inference: %w", err)
	}

	landmarks := decodeLandmarks(outputTensor.GetData(), center, scale)
	face.Landmarks106 = &landmarks
	return nil
}

// Close releases landmarker resources.
func (l *Landmarker) Close() error {
	return l.session.Destroy()
}

// cropTransform builds the scale-and-center affine matrix for the face crop.
func cropTransform(center Point, scale float32) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, float64(scale))
	m.SetDoubleAt(0, 1, 0)
	m.SetDoubleAt(0, 2, landmarkInputSize/2-float64(center.X*scale))
	m.SetDoubleAt(1, 0, 0)
	m.SetDoubleAt(1, 1, float64(scale))
	m.SetDoubleAt(1, 2, landmarkInputSize/2-float64(center.Y*scale))
	return m
}

// decodeLandmarks maps model output in [-1,1] back to image coordinates.
func decodeLandmarks(output []float32, center Point, scale float32) Landmarks106 {
	var landmarks Landmarks106
	const half = float32(landmarkInputSize) / 2
	for i := range landmarks {
		x := (output[i*2] + 1) * half
		y := (output[i*2+1] + 1) * half
		landmarks[i] = Point{
			X: (x-half)/scale + center.X,
			Y: (y-half)/scale + center.Y,
		}
	}
	return landmarks
}
