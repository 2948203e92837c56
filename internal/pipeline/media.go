// Package pipeline orchestrates face processing over still images and
// videos, from pre-flight checks through frame extraction, processing,
// and final encode.
package pipeline

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".bmp":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".avi":  true,
	".m4v":  true,
	".mkv":  true,
	".mov":  true,
	".mp4":  true,
	".webm": true,
}

// IsImage reports whether path looks like a still image.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVideo reports whether path looks like a video file.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}
