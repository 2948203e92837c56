// Package swapper implements face alignment, embedding extraction,
// swap generation and paste-back blending.
package swapper

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/detector"
)

// arcfaceTemplate holds the reference landmark positions for a 112x112
// aligned face, from insightface.
var arcfaceTemplate = []detector.Point{
	{X: 38.2946, Y: 51.6963},
	{X: 73.5318, Y: 51.5014},
	{X: 56.0252, Y: 71.7366},
	{X: 41.5493, Y: 92.3655},
	{X: 70.7299, Y: 92.2041},
}

// ArcFaceSize is the aligned crop size expected by the embedding model.
const ArcFaceSize = 112

// Aligned holds an aligned face crop and the transform that produced it.
type Aligned struct {
	Face      gocv.Mat
	Transform gocv.Mat // 2x3 affine, image -> crop
}

// Close releases the crop and transform.
func (a *Aligned) Close() {
	a.Face.Close()
	a.Transform.Close()
}

// Align warps the face described by landmarks into a size x size crop
// matching the ArcFace template scaled to that size.
func Align(img gocv.Mat, landmarks detector.Landmarks, size int) *Aligned {
	dst := templateMat(size)
	defer dst.Close()

	src := gocv.NewMatWithSize(5, 2, gocv.MatTypeCV32F)
	defer src.Close()
	for i, v := range landmarks.AsSlice() {
		src.SetFloatAt(i/2, i%2, v)
	}

	transform := similarityTransform(src, dst)

	face := gocv.NewMat()
	gocv.WarpAffine(img, &face, transform, image.Pt(size, size))

	return &Aligned{Face: face, Transform: transform}
}

// templateMat returns the ArcFace template scaled from 112 to size.
func templateMat(size int) gocv.Mat {
	scale := float32(size) / float32(ArcFaceSize)
	m := gocv.NewMatWithSize(5, 2, gocv.MatTypeCV32F)
	for i, pt := range arcfaceTemplate {
		m.SetFloatAt(i, 0, pt.X*scale)
		m.SetFloatAt(i, 1, pt.Y*scale)
	}
	return m
}

// similarityTransform solves for the 2D similarity (rotation, uniform scale,
// translation) mapping src points onto dst points by least squares.
func similarityTransform(src, dst gocv.Mat) gocv.Mat {
	n := src.Rows()

	var srcCx, srcCy, dstCx, dstCy float32
	for i := 0; i < n; i++ {
		srcCx += src.GetFloatAt(i, 0)
		srcCy += src.GetFloatAt(i, 1)
		dstCx += dst.GetFloatAt(i, 0)
		dstCy += dst.GetFloatAt(i, 1)
	}
	srcCx /= float32(n)
	srcCy /= float32(n)
	dstCx /= float32(n)
	dstCy /= float32(n)

	var srcNorm, dstNorm float64
	var a11, a12, a21, a22 float64
	for i := 0; i < n; i++ {
		sx := float64(src.GetFloatAt(i, 0) - srcCx)
		sy := float64(src.GetFloatAt(i, 1) - srcCy)
		dx := float64(dst.GetFloatAt(i, 0) - dstCx)
		dy := float64(dst.GetFloatAt(i, 1) - dstCy)

		srcNorm += sx*sx + sy*sy
		dstNorm += dx*dx + dy*dy

		a11 += sx * dx
		a12 += sx * dy
		a21 += sy * dx
		a22 += sy * dy
	}
	srcNorm = math.Sqrt(srcNorm)
	dstNorm = math.Sqrt(dstNorm)

	// cos ∝ a11+a22, sin ∝ a21-a12 for the optimal rotation
	norm := math.Sqrt((a11+a22)*(a11+a22) + (a21-a12)*(a21-a12))
	if norm < 1e-10 {
		norm = 1
	}
	cosTheta := (a11 + a22) / norm
	sinTheta := (a21 - a12) / norm

	scale := 1.0
	if srcNorm > 1e-10 {
		scale = dstNorm / srcNorm
	}

	transform := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	transform.SetDoubleAt(0, 0, scale*cosTheta)
	transform.SetDoubleAt(0, 1, -scale*sinTheta)
	transform.SetDoubleAt(1, 0, scale*sinTheta)
	transform.SetDoubleAt(1, 1, scale*cosTheta)
	transform.SetDoubleAt(0, 2, float64(dstCx)-scale*(cosTheta*float64(srcCx)-sinTheta*float64(srcCy)))
	transform.SetDoubleAt(1, 2, float64(dstCy)-scale*(sinTheta*float64(srcCx)+cosTheta*float64(srcCy)))

	return transform
}
