package detect

import "context"

// detectorAPI is the subset of the sidecar client the locator needs.
// Satisfied by *Client; tests provide a stub.
type detectorAPI interface {
	DetectPrimary(ctx context.Context, imageData []byte) ([]Region, error)
	DetectCascade(ctx context.Context, imageData []byte, opts CascadeOptions) ([]Region, error)
}

// Locator runs both detectors and merges their outputs into one
// de-duplicated set of face regions.
//
// The primary detector is more accurate but misses small, angled, or
// partially occluded faces. The cascade detector recovers some of those
// misses at the cost of more false positives, so it is tuned toward
// precision and its regions are only ever additive.
type Locator struct {
	api          detectorAPI
	cascade      CascadeOptions
	iouThreshold float64
}

// NewLocator creates a locator over the given sidecar client.
func NewLocator(api detectorAPI, cascade CascadeOptions, iouThreshold float64) *Locator {
	return &Locator{
		api:          api,
		cascade:      cascade,
		iouThreshold: iouThreshold,
	}
}

// Locate returns the merged, de-duplicated face regions for the image.
// An image with no detectable faces yields an empty slice and no error.
func (l *Locator) Locate(ctx context.Context, imageData []byte) ([]Region, error) {
	primary, err := l.api.DetectPrimary(ctx, imageData)
	if err != nil {
		return nil, err
	}

	secondary, err := l.api.DetectCascade(ctx, imageData, l.cascade)
	if err != nil {
		return nil, err
	}

	return Merge(primary, secondary, l.iouThreshold), nil
}

// Merge combines primary and secondary detections. Primary regions are always
// kept. A secondary region is discarded when its maximum IoU against any
// already-accepted region exceeds the threshold; otherwise it is appended as
// a face the primary detector missed. Order matters: primary wins ties.
func Merge(primary, secondary []Region, iouThreshold float64) []Region {
	merged := make([]Region, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)

	for _, cand := range secondary {
		maxIoU := 0.0
		for _, accepted := range merged {
			if iou := IoU(cand, accepted); iou > maxIoU {
				maxIoU = iou
			}
		}
		if maxIoU > iouThreshold {
			continue // same face, primary (or earlier secondary) wins
		}
		merged = append(merged, cand)
	}

	return merged
}
