// Package identify runs the full recognition pipeline for one image:
// locate faces, encode them and classify each encoding against the
// published model.
package identify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jkratochvil/facemark/internal/classifier"
	"github.com/jkratochvil/facemark/internal/detect"
	"github.com/jkratochvil/facemark/internal/store"
)

type faceLocator interface {
	Locate(ctx context.Context, image []byte) ([]detect.Region, error)
}

type faceEncoder interface {
	Encode(ctx context.Context, image []byte, regions []detect.Region) ([][]float32, error)
}

// Detection is one classified face region. Known is true only when the
// nearest-neighbor distance passed the acceptance threshold and the label
// resolved to an enrolled student.
type Detection struct {
	Region    detect.Region `json:"region"`
	Label     string        `json:"label"`
	Name      string        `json:"name,omitempty"`
	Known     bool          `json:"known"`
	Distance  float64       `json:"distance"`
	Embedding []float32     `json:"-"`
}

// Identifier classifies faces in images against the currently published
// model snapshot.
type Identifier struct {
	locator   faceLocator
	encoder   faceEncoder
	models    *classifier.Ref
	students  store.StudentRepository // optional, resolves labels to names
	threshold float64
}

// NewIdentifier creates an identifier. students may be nil, in which case
// labels are not resolved against the roster.
func NewIdentifier(locator faceLocator, encoder faceEncoder, models *classifier.Ref, students store.StudentRepository, threshold float64) *Identifier {
	return &Identifier{
		locator:   locator,
		encoder:   encoder,
		models:    models,
		students:  students,
		threshold: threshold,
	}
}

// Identify locates, encodes and classifies every face in the image. With no
// published model it returns an empty result rather than failing, so a
// fresh deployment degrades to "nobody recognized".
func (id *Identifier) Identify(ctx context.Context, image []byte) ([]Detection, error) {
	model := id.models.Snapshot()
	if model == nil {
		return nil, nil
	}

	regions, err := id.locator.Locate(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("locate faces: %w", err)
	}
	if len(regions) == 0 {
		return nil, nil
	}

	vectors, err := id.encoder.Encode(ctx, image, regions)
	if err != nil {
		return nil, fmt.Errorf("encode faces: %w", err)
	}
	if len(vectors) != len(regions) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d regions", len(vectors), len(regions))
	}

	detections := make([]Detection, 0, len(regions))
	for i, region := range regions {
		label, distance := model.Classify(vectors[i])
		det := Detection{
			Region:    region,
			Label:     label,
			Distance:  distance,
			Known:     distance <= id.threshold,
			Embedding: vectors[i],
		}

		if det.Known && id.students != nil {
			student, err := id.students.GetStudent(ctx, label)
			switch {
			case errors.Is(err, store.ErrNotFound):
				// Model trained on a student no longer enrolled.
				det.Known = false
			case err != nil:
				return nil, fmt.Errorf("resolve label %q: %w", label, err)
			default:
				det.Name = student.Name
			}
		}

		detections = append(detections, det)
	}

	return detections, nil
}

// DedupeByLabel keeps the first detection per known label, so one person
// appearing twice in a frame counts once. Unknown detections are all kept.
func DedupeByLabel(detections []Detection) []Detection {
	seen := make(map[string]bool, len(detections))
	out := make([]Detection, 0, len(detections))
	for _, det := range detections {
		if det.Known {
			if seen[det.Label] {
				continue
			}
			seen[det.Label] = true
		}
		out = append(out, det)
	}
	return out
}
