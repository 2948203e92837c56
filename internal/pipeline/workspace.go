package pipeline

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// workspace is a per-run scratch directory holding extracted frames and the
// rendered video before audio restore.
type workspace struct {
	root   string
	frames string
}

func newWorkspace(workDir string) (*workspace, error) {
	if workDir == "" {
		workDir = os.TempDir()
	}
	root := filepath.Join(workDir, "reface-"+uuid.NewString())
	frames := filepath.Join(root, "frames")
	if err := os.MkdirAll(frames, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{root: root, frames: frames}, nil
}

// FramesDir is the directory frames are extracted into.
func (w *workspace) FramesDir() string { return w.frames }

// RenderedPath is where the silent re-encoded video lands.
func (w *workspace) RenderedPath(targetPath string) string {
	ext := filepath.Ext(targetPath)
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(w.root, "rendered"+ext)
}

// FramePaths lists the extracted frame files in playback order. Ordering is
// by numeric stem, not lexicographic, so frame 10000 sorts after 9999.
func (w *workspace) FramePaths() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(w.frames, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		ni, nj := frameNumber(paths[i]), frameNumber(paths[j])
		if ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

func frameNumber(path string) int {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := strconv.Atoi(stem)
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Remove deletes the workspace and everything in it.
func (w *workspace) Remove() error {
	return os.RemoveAll(w.root)
}

// moveFile renames src to dst, copying across filesystems when rename is
// not possible.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
