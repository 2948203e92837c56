package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dudu/reface/internal/config"
	"github.com/dudu/reface/internal/inference"
)

func TestIsImage(t *testing.T) {
	for _, path := range []string{"face.png", "FACE.JPG", "dir/photo.jpeg", "a.webp", "b.bmp"} {
		if !IsImage(path) {
			t.Errorf("IsImage(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"clip.mp4", "face.png.mov", "noext", "notes.txt"} {
		if IsImage(path) {
			t.Errorf("IsImage(%q) = true, want false", path)
		}
	}
}

func TestIsVideo(t *testing.T) {
	for _, path := range []string{"clip.mp4", "CLIP.MOV", "dir/take2.mkv", "a.webm", "b.avi"} {
		if !IsVideo(path) {
			t.Errorf("IsVideo(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"face.png", "noext", "archive.zip"} {
		if IsVideo(path) {
			t.Errorf("IsVideo(%q) = true, want false", path)
		}
	}
}

func TestWorkspaceFramePathsSorted(t *testing.T) {
	ws, err := newWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Remove()

	for _, name := range []string{"0003.png", "0001.png", "0002.png", "skip.txt"} {
		if err := os.WriteFile(filepath.Join(ws.FramesDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := ws.FramePaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d frame paths, want 3", len(paths))
	}
	for i, want := range []string{"0001.png", "0002.png", "0003.png"} {
		if filepath.Base(paths[i]) != want {
			t.Fatalf("path %d = %s, want %s", i, filepath.Base(paths[i]), want)
		}
	}
}

func TestWorkspaceFramePathsNumericOrder(t *testing.T) {
	ws, err := newWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Remove()

	for _, name := range []string{"10000.png", "9999.png", "0002.png"} {
		if err := os.WriteFile(filepath.Join(ws.FramesDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := ws.FramePaths()
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"0002.png", "9999.png", "10000.png"} {
		if filepath.Base(paths[i]) != want {
			t.Fatalf("path %d = %s, want %s", i, filepath.Base(paths[i]), want)
		}
	}
}

func TestWorkspaceRemove(t *testing.T) {
	ws, err := newWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ws.FramesDir()); !os.IsNotExist(err) {
		t.Fatalf("frames dir still present after Remove: %v", err)
	}
}

func TestWorkspaceUniqueRoots(t *testing.T) {
	dir := t.TempDir()
	a, err := newWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Remove()
	b, err := newWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Remove()

	if a.FramesDir() == b.FramesDir() {
		t.Fatal("two workspaces share a frames dir")
	}
}

func TestRenderedPathKeepsExtension(t *testing.T) {
	ws, err := newWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Remove()

	if got := filepath.Ext(ws.RenderedPath("/in/clip.mkv")); got != ".mkv" {
		t.Fatalf("rendered ext = %s, want .mkv", got)
	}
	if got := filepath.Ext(ws.RenderedPath("noext")); got != ".mp4" {
		t.Fatalf("rendered ext = %s, want .mp4 fallback", got)
	}
}

func TestVerifySourceFaceSkippedWithoutSwapper(t *testing.T) {
	cfg := config.Default()
	cfg.FrameProcessors = []string{config.ProcessorFaceEnhancer}
	cfg.SourcePath = "does-not-exist.png"

	r := &Runner{cfg: &cfg, provider: inference.ProviderCPU}
	if err := r.verifySourceFace(); err != nil {
		t.Fatalf("verifySourceFace without face-swapper: %v", err)
	}
}

func TestVerifySourceFaceUnreadableSource(t *testing.T) {
	source := filepath.Join(t.TempDir(), "source.png")
	if err := os.WriteFile(source, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.SourcePath = source

	r := &Runner{cfg: &cfg, provider: inference.ProviderCPU}
	if err := r.verifySourceFace(); err == nil {
		t.Fatal("expected error for unreadable source image")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("moved content = %q", data)
	}
}
