package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// scrfd decodes three feature levels, each with score, bbox and keypoint
// outputs and two anchors per position.
var scrfdStrides = []int{8, 16, 32}

const scrfdAnchorsPerPos = 2

// SCRFD is the SCRFD single-shot face detector.
type SCRFD struct {
	session       *inference.Session
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// Options configures a SCRFD detector.
type Options struct {
	ModelPath     string
	Provider      inference.Provider
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
}

// NewSCRFD creates a SCRFD detector from an ONNX model.
func NewSCRFD(opts Options) (*SCRFD, error) {
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(opts.ModelPath, opts.Provider, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:       session,
		inputSize:     opts.InputSize,
		confThreshold: opts.ConfThreshold,
		nmsThreshold:  opts.NMSThreshold,
	}, nil
}

// Detect finds the faces in an image, sorted by descending score.
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	origWidth := img.Cols()
	origHeight := img.Rows()

	blob, scale := s.preprocess(img)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		inference.BlobFloat32(blob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)
	for level, stride := range scrfdStrides {
		cells := (s.inputSize / stride) * (s.inputSize / stride) * scrfdAnchorsPerPos
		for slot, width := range []int64{1, 4, 10} {
			t, terr := inference.CreateEmptyTensor[float32]([]int64{int64(cells), width})
			if terr != nil {
				return nil, fmt.Errorf("create output tensor: %w", terr)
			}
			idx := slot*3 + level
			outputs[idx] = t
			outputTensors[idx] = t
		}
	}
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}

	faces := s.decode(outputTensors, scale, origWidth, origHeight)
	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the square model input and returns
// the NCHW blob together with the applied scale factor.
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	width := img.Cols()
	height := img.Rows()
	scale := float32(s.inputSize) / float32(max(width, height))

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	// (x - 127.5) / 128
	norm := gocv.NewMat()
	rgb.ConvertTo(&norm, gocv.MatTypeCV32FC3)
	rgb.Close()
	gocv.AddWeighted(norm, 1.0/128.0, norm, 0, -127.5/128.0, &norm)

	blob := gocv.BlobFromImage(norm, 1.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	norm.Close()

	return blob, scale
}

// decode converts raw model outputs into faces in original image coordinates.
func (s *SCRFD) decode(outputs []*ort.Tensor[float32], scale float32, origWidth, origHeight int) []Face {
	var faces []Face

	for level, stride := range scrfdStrides {
		cells := s.inputSize / stride
		scores := outputs[level].GetData()
		boxes := outputs[level+3].GetData()
		keypoints := outputs[level+6].GetData()

		anchor := 0
		for y := 0; y < cells; y++ {
			for x := 0; x < cells; x++ {
				for a := 0; a < scrfdAnchorsPerPos; a++ {
					score := sigmoid(scores[anchor])
					if score <= s.confThreshold {
						anchor++
						continue
					}

					cx := (float32(x) + 0.5) * float32(stride)
					cy := (float32(y) + 0.5) * float32(stride)

					// bbox outputs are distances to the box edges
					bi := anchor * 4
					box := BoundingBox{
						X1: clampf((cx-boxes[bi]*float32(stride))/scale, 0, float32(origWidth)),
						Y1: clampf((cy-boxes[bi+1]*float32(stride))/scale, 0, float32(origHeight)),
						X2: clampf((cx+boxes[bi+2]*float32(stride))/scale, 0, float32(origWidth)),
						Y2: clampf((cy+boxes[bi+3]*float32(stride))/scale, 0, float32(origHeight)),
					}

					ki := anchor * 10
					kp := func(n int) Point {
						return Point{
							X: (cx + keypoints[ki+n*2]*float32(stride)) / scale,
							Y: (cy + keypoints[ki+n*2+1]*float32(stride)) / scale,
						}
					}

					faces = append(faces, Face{
						BoundingBox: box,
						Landmarks: Landmarks{
							LeftEye:    kp(0),
							RightEye:   kp(1),
							Nose:       kp(2),
							LeftMouth:  kp(3),
							RightMouth: kp(4),
						},
						Score: score,
					})
					anchor++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources.
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
