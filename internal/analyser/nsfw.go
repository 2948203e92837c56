// Package analyser gates pipeline input on an NSFW classifier.
package analyser

import (
	"errors"
	"fmt"
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// ErrUnsafeContent is returned when the classifier flags the target.
var ErrUnsafeContent = errors.New("target flagged by content check")

const (
	nsfwInputSize = 224
	cacheSize     = 64
)

// Yahoo open_nsfw channel means (BGR).
var nsfwMean = gocv.NewScalar(104, 117, 123, 0)

// Classifier scores images with an open_nsfw ONNX model. Verdicts are
// cached per path so a target checked by both the gate and a retry is
// only scored once.
type Classifier struct {
	session   *inference.Session
	threshold float32
	verdicts  *lru.Cache[string, bool]
}

// New creates a classifier. Scores above threshold flag the content.
func New(modelPath string, provider inference.Provider, threshold float32) (*Classifier, error) {
	session, err := inference.NewSession(modelPath, provider, []string{"input"}, []string{"output"})
	if err != nil {
		return nil, fmt.Errorf("create content check session: %w", err)
	}
	verdicts, _ := lru.New[string, bool](cacheSize)
	return &Classifier{
		session:   session,
		threshold: threshold,
		verdicts:  verdicts,
	}, nil
}

// Score returns the NSFW probability for a single frame.
func (c *Classifier) Score(img gocv.Mat) (float32, error) {
	blob := gocv.BlobFromImage(img, 1.0, image.Pt(nsfwInputSize, nsfwInputSize),
		nsfwMean, false, false)
	defer blob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, nsfwInputSize, nsfwInputSize),
		inference.BlobFloat32(blob.ToBytes()),
	)
	if err != nil {
		return 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, 2})
	if err != nil {
		return 0, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return 0, fmt.Errorf("content check inference: %w", err)
	}

	// Two-class output: [safe, nsfw].
	return outputTensor.GetData()[1], nil
}

// CheckImage scores the image at path and returns ErrUnsafeContent when it
// exceeds the threshold.
func (c *Classifier) CheckImage(path string) error {
	if flagged, ok := c.verdicts.Get(path); ok {
		return verdictErr(flagged)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read image %s", path)
	}
	defer img.Close()

	score, err := c.Score(img)
	if err != nil {
		return err
	}

	flagged := Flagged(score, c.threshold)
	c.verdicts.Add(path, flagged)
	return verdictErr(flagged)
}

// CheckVideo samples every interval-th frame of the video at path and
// returns ErrUnsafeContent if any sampled frame exceeds the threshold.
func (c *Classifier) CheckVideo(path string, interval int) error {
	if flagged, ok := c.verdicts.Get(path); ok {
		return verdictErr(flagged)
	}

	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", path, err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	flagged := false
	for index := 0; capture.Read(&frame); index++ {
		if frame.Empty() || index%interval != 0 {
			continue
		}
		score, err := c.Score(frame)
		if err != nil {
			return err
		}
		if Flagged(score, c.threshold) {
			flagged = true
			break
		}
	}

	c.verdicts.Add(path, flagged)
	return verdictErr(flagged)
}

// Close releases classifier resources.
func (c *Classifier) Close() error {
	return c.session.Destroy()
}

// Flagged reports whether a score exceeds the threshold.
func Flagged(score, threshold float32) bool {
	return score > threshold
}

func verdictErr(flagged bool) error {
	if flagged {
		return ErrUnsafeContent
	}
	return nil
}
