package swapper

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/detector"
)

var maskWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// BlendOptions tunes the paste-back blend.
type BlendOptions struct {
	BlurSize      int
	ColorTransfer bool
	MouthMask     bool
	Sharpness     float32
}

// Blender pastes generated face crops back onto full frames.
type Blender struct {
	opts BlendOptions
}

// NewBlender creates a blender.
func NewBlender(opts BlendOptions) *Blender {
	if opts.BlurSize%2 == 0 {
		opts.BlurSize++
	}
	return &Blender{opts: opts}
}

// Paste warps the swapped crop back into the frame (modified in place) and
// blends it under a feathered face mask. The transform is the alignment
// matrix the crop was produced with.
func (b *Blender) Paste(swapped gocv.Mat, frame *gocv.Mat, transform gocv.Mat, face *detector.Face) {
	invTransform := gocv.NewMat()
	gocv.InvertAffineTransform(transform, &invTransform)
	defer invTransform.Close()

	frameSize := image.Pt(frame.Cols(), frame.Rows())
	warped := gocv.NewMat()
	gocv.WarpAffine(swapped, &warped, invTransform, frameSize)
	defer warped.Close()

	var mask gocv.Mat
	if face.Landmarks106 != nil {
		mask = hullMask(frame.Rows(), frame.Cols(), face.Landmarks106)
	} else {
		mask = ellipseMask(frame.Rows(), frame.Cols(), face.Landmarks)
	}
	defer mask.Close()

	if b.opts.ColorTransfer {
		transferColor(&warped, frame)
	}

	feathered := gocv.NewMat()
	gocv.GaussianBlur(mask, &feathered, image.Pt(b.opts.BlurSize, b.opts.BlurSize), 0, 0, gocv.BorderDefault)
	defer feathered.Close()

	var original gocv.Mat
	var mouthMask gocv.Mat
	var mouthBox image.Rectangle
	restoreMouth := b.opts.MouthMask && face.Landmarks106 != nil
	if restoreMouth {
		original = frame.Clone()
		defer original.Close()
		mouthMask, mouthBox = lowerLipMask(frame.Rows(), frame.Cols(), face.Landmarks106)
		defer mouthMask.Close()
	}

	warped.CopyToWithMask(frame, feathered)

	if restoreMouth && !mouthMask.Empty() && !mouthBox.Empty() {
		frameROI := frame.Region(mouthBox)
		originalROI := original.Region(mouthBox)
		maskROI := mouthMask.Region(mouthBox)
		originalROI.CopyToWithMask(&frameROI, maskROI)
		maskROI.Close()
		originalROI.Close()
		frameROI.Close()
	}

	if b.opts.Sharpness > 0 {
		sharpenRegion(frame, face.BoundingBox, b.opts.Sharpness)
	}
}

// hullMask fills the convex hull of the 106-point face outline.
func hullMask(height, width int, landmarks *detector.Landmarks106) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)

	outline := landmarks.Points(detector.OutlineIndices())
	imagePoints := make([]image.Point, len(outline))
	for i, p := range outline {
		imagePoints[i] = image.Pt(int(p.X), int(p.Y))
	}

	hullPoints := convexHullPoints(imagePoints)
	if len(hullPoints) < 3 {
		return mask
	}

	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{hullPoints})
	defer ptsVec.Close()
	gocv.FillPoly(&mask, ptsVec, maskWhite)

	return mask
}

// convexHullPoints returns the hull vertices of points in contour order.
// ConvexHull in index mode fills an Nx1 CV_32S Mat of indices into the
// input vector, not coordinates.
func convexHullPoints(points []image.Point) []image.Point {
	pointsVec := gocv.NewPointVectorFromPoints(points)
	defer pointsVec.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pointsVec, &hull, true, false)

	vertices := make([]image.Point, 0, hull.Rows())
	for i := 0; i < hull.Rows(); i++ {
		idx := int(hull.GetIntAt(i, 0))
		if idx < 0 || idx >= len(points) {
			continue
		}
		vertices = append(vertices, points[idx])
	}
	return vertices
}

// ellipseMask approximates the face area from the 5-point landmarks.
func ellipseMask(height, width int, landmarks detector.Landmarks) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)

	centerX := (landmarks.LeftEye.X + landmarks.RightEye.X + landmarks.Nose.X +
		landmarks.LeftMouth.X + landmarks.RightMouth.X) / 5
	centerY := (landmarks.LeftEye.Y + landmarks.RightEye.Y + landmarks.Nose.Y +
		landmarks.LeftMouth.Y + landmarks.RightMouth.Y) / 5

	eyeDist := landmarks.RightEye.X - landmarks.LeftEye.X
	faceWidth := eyeDist * 2.5
	faceHeight := eyeDist * 3.0

	gocv.Ellipse(&mask,
		image.Pt(int(centerX), int(centerY)),
		image.Pt(int(faceWidth/2), int(faceHeight/2)),
		0, 0, 360, maskWhite, -1)

	return mask
}

// lowerLipMask builds a soft mask over the mouth so the target's mouth
// movement survives the swap.
func lowerLipMask(height, width int, landmarks *detector.Landmarks106) (gocv.Mat, image.Rectangle) {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)

	points := landmarks.Points(detector.LowerLipIndices())
	if len(points) < 3 {
		return mask, image.Rectangle{}
	}

	var centerX, centerY float32
	for _, p := range points {
		centerX += p.X
		centerY += p.Y
	}
	centerX /= float32(len(points))
	centerY /= float32(len(points))

	const expansion = 1.2
	const padding = 10
	expanded := make([]image.Point, len(points))
	minX, minY := width, height
	maxX, maxY := 0, 0
	for i, p := range points {
		x := int((p.X-centerX)*expansion + centerX)
		y := int((p.Y-centerY)*expansion + centerY)
		expanded[i] = image.Pt(x, y)
		minX = min(minX, x)
		minY = min(minY, y)
		maxX = max(maxX, x)
		maxY = max(maxY, y)
	}
	box := image.Rect(
		max(0, minX-padding), max(0, minY-padding),
		min(width, maxX+padding), min(height, maxY+padding),
	)

	ptsVec := gocv.NewPointsVectorFromPoints([][]image.Point{expanded})
	defer ptsVec.Close()
	gocv.FillPoly(&mask, ptsVec, maskWhite)
	gocv.GaussianBlur(mask, &mask, image.Pt(15, 15), 5, 5, gocv.BorderDefault)

	return mask, box
}

// transferColor matches the warped face's LAB statistics to the frame's.
func transferColor(source, target *gocv.Mat) {
	sourceLab := gocv.NewMat()
	defer sourceLab.Close()
	targetLab := gocv.NewMat()
	defer targetLab.Close()
	gocv.CvtColor(*source, &sourceLab, gocv.ColorBGRToLab)
	gocv.CvtColor(*target, &targetLab, gocv.ColorBGRToLab)

	sourceMean := gocv.NewMat()
	defer sourceMean.Close()
	sourceStd := gocv.NewMat()
	defer sourceStd.Close()
	targetMean := gocv.NewMat()
	defer targetMean.Close()
	targetStd := gocv.NewMat()
	defer targetStd.Close()
	gocv.MeanStdDev(sourceLab, &sourceMean, &sourceStd)
	gocv.MeanStdDev(targetLab, &targetMean, &targetStd)

	sourceFloat := gocv.NewMat()
	defer sourceFloat.Close()
	sourceLab.ConvertTo(&sourceFloat, gocv.MatTypeCV32FC3)

	channels := gocv.Split(sourceFloat)
	adjusted := make([]gocv.Mat, len(channels))
	for i := range channels {
		adjusted[i] = gocv.NewMat()

		srcStd := sourceStd.GetDoubleAt(i, 0)
		if srcStd < 1e-6 {
			srcStd = 1e-6
		}
		scale := targetStd.GetDoubleAt(i, 0) / srcStd
		offset := targetMean.GetDoubleAt(i, 0) - sourceMean.GetDoubleAt(i, 0)*scale

		gocv.AddWeighted(channels[i], scale, channels[i], 0, offset, &adjusted[i])
		channels[i].Close()
	}

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(adjusted, &merged)
	for i := range adjusted {
		adjusted[i].Close()
	}

	resultLab := gocv.NewMat()
	defer resultLab.Close()
	merged.ConvertTo(&resultLab, gocv.MatTypeCV8UC3)

	resultBGR := gocv.NewMat()
	defer resultBGR.Close()
	gocv.CvtColor(resultLab, &resultBGR, gocv.ColorLabToBGR)
	resultBGR.CopyTo(source)
}

// sharpenRegion applies an unsharp mask inside the face bounding box.
func sharpenRegion(frame *gocv.Mat, bbox detector.BoundingBox, amount float32) {
	x1 := max(0, int(bbox.X1))
	y1 := max(0, int(bbox.Y1))
	x2 := min(frame.Cols(), int(bbox.X2))
	y2 := min(frame.Rows(), int(bbox.Y2))
	if x2 <= x1 || y2 <= y1 {
		return
	}

	roi := frame.Region(image.Rect(x1, y1, x2, y2))
	defer roi.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(roi, &blurred, image.Pt(0, 0), 2, 2, gocv.BorderDefault)

	sharpened := gocv.NewMat()
	defer sharpened.Close()
	gocv.AddWeighted(roi, 1.0+float64(amount), blurred, -float64(amount), 0, &sharpened)
	sharpened.CopyTo(&roi)
}
