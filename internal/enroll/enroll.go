// Package enroll adds training photos to the dataset. Uploaded images are
// cropped to the largest detected face before being written to the
// student's dataset folder, so the trainer sees tight face crops.
package enroll

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/jkratochvil/facemark/internal/detect"
)

// cropPadding is the margin in pixels kept around the detected face box.
const cropPadding = 20

type faceDetector interface {
	DetectPrimary(ctx context.Context, image []byte) ([]detect.Region, error)
}

// Enroller writes face crops into the dataset directory.
type Enroller struct {
	detector   faceDetector
	datasetDir string
}

// NewEnroller creates an enroller rooted at the dataset directory.
func NewEnroller(detector faceDetector, datasetDir string) *Enroller {
	return &Enroller{detector: detector, datasetDir: datasetDir}
}

// AddPhoto detects the largest face in the image, crops it with padding and
// saves it as the next face_NN.jpg under the student's folder. Returns the
// path of the written file relative to the dataset root.
func (e *Enroller) AddPhoto(ctx context.Context, code, name string, imageData []byte) (string, error) {
	if code == "" || name == "" {
		return "", fmt.Errorf("student code and name are required")
	}

	regions, err := e.detector.DetectPrimary(ctx, imageData)
	if err != nil {
		return "", fmt.Errorf("detect faces: %w", err)
	}
	if len(regions) == 0 {
		return "", detect.ErrNoFace
	}

	crop, err := cropFace(imageData, largestRegion(regions))
	if err != nil {
		return "", err
	}

	folder := filepath.Join(e.datasetDir, code+"_"+name)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create student folder: %w", err)
	}

	filename, err := nextFaceFilename(folder)
	if err != nil {
		return "", err
	}

	path := filepath.Join(folder, filename)
	if err := renameio.WriteFile(path, crop, 0o644); err != nil {
		return "", fmt.Errorf("write face crop: %w", err)
	}

	return filepath.Join(code+"_"+name, filename), nil
}

// largestRegion picks the region with the biggest area.
func largestRegion(regions []detect.Region) detect.Region {
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best
}

// cropFace cuts the region plus padding out of the image, clamped to the
// image bounds, and re-encodes it as JPEG.
func cropFace(imageData []byte, region detect.Region) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	rect := image.Rect(
		max(region.Left-cropPadding, bounds.Min.X),
		max(region.Top-cropPadding, bounds.Min.Y),
		min(region.Right+cropPadding, bounds.Max.X),
		min(region.Bottom+cropPadding, bounds.Max.Y),
	)
	if rect.Empty() {
		return nil, fmt.Errorf("face region %v outside image bounds %v", region, bounds)
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode face crop: %w", err)
	}
	return buf.Bytes(), nil
}

// nextFaceFilename returns face_NN.jpg with the first unused index.
func nextFaceFilename(folder string) (string, error) {
	for i := 1; i <= 9999; i++ {
		name := fmt.Sprintf("face_%02d.jpg", i)
		_, err := os.Stat(filepath.Join(folder, name))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("no free face filename in %s", folder)
}
