// Package camera wraps webcam capture for the live preview mode.
package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Options configures a capture device. Zero values fall back to 720p at
// whatever rate the device offers.
type Options struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// Capture reads frames from a webcam. Safe for use from one reader and a
// concurrent Close.
type Capture struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	width  int
	height int
}

// Open acquires the capture device and applies the requested mode. The
// device may negotiate a different resolution; Width and Height report what
// it actually delivers.
func Open(opts Options) (*Capture, error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}

	device, err := gocv.OpenVideoCapture(opts.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", opts.DeviceID, err)
	}

	device.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	device.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	if opts.FPS > 0 {
		device.Set(gocv.VideoCaptureFPS, float64(opts.FPS))
	}

	return &Capture{
		device: device,
		width:  int(device.Get(gocv.VideoCaptureFrameWidth)),
		height: int(device.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Read grabs the next frame into dst. It returns false once the device is
// closed or stops delivering frames.
func (c *Capture) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return false
	}
	return c.device.Read(dst)
}

// Width is the negotiated frame width.
func (c *Capture) Width() int { return c.width }

// Height is the negotiated frame height.
func (c *Capture) Height() int { return c.height }

// Close releases the device. Subsequent Reads return false.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}
	err := c.device.Close()
	c.device = nil
	return err
}
