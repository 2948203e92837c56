// Package ui renders the live preview window.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

var overlayColor = color.RGBA{G: 255, A: 255}

// Window shows processed frames with a frame rate overlay.
type Window struct {
	window      *gocv.Window
	showOverlay bool

	lastSample time.Time
	frames     int
	fps        float64
}

// NewWindow opens a preview window. The window must be driven from the main
// OS thread on macOS.
func NewWindow(title string, showOverlay bool) *Window {
	window := gocv.NewWindow(title)
	window.ResizeWindow(1280, 720)
	window.MoveWindow(100, 100)
	return &Window{
		window:      window,
		showOverlay: showOverlay,
		lastSample:  time.Now(),
	}
}

// Show draws the frame, updating the rate estimate once per second.
func (w *Window) Show(frame *gocv.Mat) {
	w.frames++
	if elapsed := time.Since(w.lastSample); elapsed >= time.Second {
		w.fps = float64(w.frames) / elapsed.Seconds()
		w.frames = 0
		w.lastSample = time.Now()
	}

	if w.showOverlay {
		text := fmt.Sprintf("FPS: %.1f", w.fps)
		gocv.PutText(frame, text, image.Pt(10, 30),
			gocv.FontHersheyPlain, 2, overlayColor, 2)
	}

	w.window.IMShow(*frame)
}

// WaitKey pumps the window event loop and returns the pressed key, or -1.
func (w *Window) WaitKey(delay time.Duration) int {
	return w.window.WaitKey(int(delay.Milliseconds()))
}

// FPS is the most recent display rate estimate.
func (w *Window) FPS() float64 { return w.fps }

// Close destroys the window.
func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
