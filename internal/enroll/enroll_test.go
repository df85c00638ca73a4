package enroll

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkratochvil/facemark/internal/detect"
)

type stubDetector struct {
	regions []detect.Region
	err     error
}

func (s *stubDetector) DetectPrimary(ctx context.Context, image []byte) ([]detect.Region, error) {
	return s.regions, s.err
}

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestAddPhoto(t *testing.T) {
	dir := t.TempDir()
	det := &stubDetector{regions: []detect.Region{
		{Top: 50, Right: 150, Bottom: 150, Left: 50},
		{Top: 10, Right: 30, Bottom: 30, Left: 10}, // smaller, ignored
	}}
	e := NewEnroller(det, dir)

	rel, err := e.AddPhoto(context.Background(), "12", "Jane", testImage(t, 200, 200))
	if err != nil {
		t.Fatalf("add photo failed: %v", err)
	}
	if rel != filepath.Join("12_Jane", "face_01.jpg") {
		t.Errorf("unexpected relative path %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read crop: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}

	// Largest region is 100x100, padded by 20 on each side.
	if img.Bounds().Dx() != 140 || img.Bounds().Dy() != 140 {
		t.Errorf("crop is %dx%d, want 140x140", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// Second photo gets the next index.
	rel, err = e.AddPhoto(context.Background(), "12", "Jane", testImage(t, 200, 200))
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if rel != filepath.Join("12_Jane", "face_02.jpg") {
		t.Errorf("unexpected second path %q", rel)
	}
}

func TestAddPhoto_PaddingClampedToBounds(t *testing.T) {
	dir := t.TempDir()
	det := &stubDetector{regions: []detect.Region{{Top: 0, Right: 60, Bottom: 60, Left: 0}}}
	e := NewEnroller(det, dir)

	rel, err := e.AddPhoto(context.Background(), "7", "Al", testImage(t, 100, 100))
	if err != nil {
		t.Fatalf("add photo failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	// Top-left padding is clamped at the image edge, bottom-right fits.
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 80 {
		t.Errorf("crop is %dx%d, want 80x80", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestAddPhoto_NoFace(t *testing.T) {
	e := NewEnroller(&stubDetector{}, t.TempDir())
	_, err := e.AddPhoto(context.Background(), "12", "Jane", testImage(t, 100, 100))
	if !errors.Is(err, detect.ErrNoFace) {
		t.Fatalf("expected ErrNoFace, got %v", err)
	}
}

func TestAddPhoto_RequiresIdentity(t *testing.T) {
	e := NewEnroller(&stubDetector{}, t.TempDir())
	if _, err := e.AddPhoto(context.Background(), "", "Jane", nil); err == nil {
		t.Fatal("expected error for empty code")
	}
}
