// Package detector finds faces and facial landmarks in frames.
package detector

// Point is a 2D point in image coordinates.
type Point struct {
	X, Y float32
}

// BoundingBox is a face bounding box with top-left and bottom-right corners.
type BoundingBox struct {
	X1, Y1 float32
	X2, Y2 float32
}

func (b BoundingBox) Width() float32  { return b.X2 - b.X1 }
func (b BoundingBox) Height() float32 { return b.Y2 - b.Y1 }
func (b BoundingBox) Area() float32   { return b.Width() * b.Height() }

// Center returns the box center point.
func (b BoundingBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Landmarks holds the 5 facial landmark points produced by the detector.
type Landmarks struct {
	LeftEye    Point
	RightEye   Point
	Nose       Point
	LeftMouth  Point
	RightMouth Point
}

// AsSlice returns the landmarks as a flat [x0,y0,...,x4,y4] slice.
func (l Landmarks) AsSlice() []float32 {
	return []float32{
		l.LeftEye.X, l.LeftEye.Y,
		l.RightEye.X, l.RightEye.Y,
		l.Nose.X, l.Nose.Y,
		l.LeftMouth.X, l.LeftMouth.Y,
		l.RightMouth.X, l.RightMouth.Y,
	}
}

// Landmarks106 holds the 106-point landmark set from the 2d106det model.
type Landmarks106 [106]Point

// Points gathers the landmark points at the given indices.
func (l *Landmarks106) Points(indices []int) []Point {
	points := make([]Point, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(l) {
			points = append(points, l[idx])
		}
	}
	return points
}

// OutlineIndices returns the face contour indices (chin to ears) in the
// insightface 106-point layout.
func OutlineIndices() []int {
	indices := make([]int, 33)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// LowerLipIndices returns the mouth area indices used for mouth masking.
func LowerLipIndices() []int {
	return []int{65, 66, 62, 70, 69, 18, 19, 20, 21, 22, 23, 24, 0, 8, 7, 6, 5, 4, 3, 2, 65}
}

// Face is a detected face.
type Face struct {
	BoundingBox  BoundingBox
	Landmarks    Landmarks     // 5-point from the detector
	Landmarks106 *Landmarks106 // optional refinement
	Score        float32
}
