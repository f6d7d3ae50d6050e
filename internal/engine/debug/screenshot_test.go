package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFlipRows(t *testing.T) {
	// 1x2 image: bottom row red, top row blue in OpenGL order
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	img, err := FlipRows(pixels, 1, 2)
	if err != nil {
		t.Fatalf("FlipRows failed: %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); b == 0 || r != 0 {
		t.Error("expected top row to be blue")
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r == 0 {
		t.Error("expected bottom row to be red")
	}
}

func TestFlipRows_SizeMismatch(t *testing.T) {
	if _, err := FlipRows(make([]byte, 7), 1, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestCaptureFromPixels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "vox")
	sc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	pixels := make([]byte, 4*3*4)
	first, err := sc.CaptureFromPixels(pixels, 4, 3)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	second, err := sc.CaptureFromPixels(pixels, 4, 3)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct filenames, got %s twice", first)
	}
	if filepath.Base(first) != "vox_2024-05-01_12-00-00_000.png" {
		t.Errorf("unexpected filename %s", filepath.Base(first))
	}

	f, err := os.Open(first)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("expected 4x3 image, got %v", b)
	}
}
