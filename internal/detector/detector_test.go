package detector

import (
	"math"
	"testing"
)

func TestBoundingBoxHelpers(t *testing.T) {
	box := BoundingBox{X1: 10, Y1: 20, X2: 110, Y2: 70}
	if box.Width() != 100 {
		t.Fatalf("width = %v", box.Width())
	}
	if box.Height() != 50 {
		t.Fatalf("height = %v", box.Height())
	}
	if box.Area() != 5000 {
		t.Fatalf("area = %v", box.Area())
	}
	c := box.Center()
	if c.X != 60 || c.Y != 45 {
		t.Fatalf("center = %+v", c)
	}
}

func TestIoU(t *testing.T) {
	a := BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}

	if got := iou(a, a); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("identical boxes iou = %v", got)
	}
	if got := iou(a, BoundingBox{X1: 20, Y1: 20, X2: 30, Y2: 30}); got != 0 {
		t.Fatalf("disjoint boxes iou = %v", got)
	}
	// Half-overlapping boxes: intersection 50, union 150.
	b := BoundingBox{X1: 5, Y1: 0, X2: 15, Y2: 10}
	if got := iou(a, b); math.Abs(float64(got)-50.0/150.0) > 1e-6 {
		t.Fatalf("overlap iou = %v", got)
	}
}

func TestNMSSuppressesOverlaps(t *testing.T) {
	faces := []Face{
		{BoundingBox: BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.6},
		{BoundingBox: BoundingBox{X1: 1, Y1: 1, X2: 11, Y2: 11}, Score: 0.9},
		{BoundingBox: BoundingBox{X1: 100, Y1: 100, X2: 110, Y2: 110}, Score: 0.5},
	}
	kept := nms(faces, 0.4)
	if len(kept) != 2 {
		t.Fatalf("expected 2 faces after nms, got %d", len(kept))
	}
	if kept[0].Score != 0.9 {
		t.Fatalf("highest score should win, got %v", kept[0].Score)
	}
	if kept[1].Score != 0.5 {
		t.Fatalf("distant face should survive, got %v", kept[1].Score)
	}
}

func TestNMSEmpty(t *testing.T) {
	if got := nms(nil, 0.4); len(got) != 0 {
		t.Fatalf("nms(nil) = %v", got)
	}
}

func TestSelect(t *testing.T) {
	faces := []Face{
		{Score: 0.5},
		{Score: 0.9},
		{Score: 0.7},
	}
	if got := Select(faces, true); len(got) != 3 {
		t.Fatalf("many-faces should keep all, got %d", len(got))
	}
	one := Select(faces, false)
	if len(one) != 1 || one[0].Score != 0.9 {
		t.Fatalf("single selection should pick best, got %+v", one)
	}
	if got := Select(nil, false); len(got) != 0 {
		t.Fatalf("empty selection = %v", got)
	}
}

func TestLandmarks106Points(t *testing.T) {
	var lm Landmarks106
	for i := range lm {
		lm[i] = Point{X: float32(i), Y: float32(i)}
	}
	pts := lm.Points([]int{0, 5, 105, 200})
	if len(pts) != 3 {
		t.Fatalf("out-of-range index should be skipped, got %d points", len(pts))
	}
	if pts[1].X != 5 {
		t.Fatalf("unexpected point: %+v", pts[1])
	}
}

func TestDecodeLandmarksRoundTrip(t *testing.T) {
	// A model output of all zeros maps every point to the crop center.
	output := make([]float32, 212)
	center := Point{X: 320, Y: 240}
	lm := decodeLandmarks(output, center, 0.5)
	for i, p := range lm {
		if math.Abs(float64(p.X-center.X)) > 1e-3 || math.Abs(float64(p.Y-center.Y)) > 1e-3 {
			t.Fatalf("point %d = %+v, want crop center", i, p)
		}
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); math.Abs(float64(got-0.5)) > 1e-6 {
		t.Fatalf("sigmoid(0) = %v", got)
	}
	if got := sigmoid(10); got < 0.999 {
		t.Fatalf("sigmoid(10) = %v", got)
	}
}
