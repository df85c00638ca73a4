package detect

import (
	"context"
	"errors"
)

// ErrNoFace is returned when an image contains no detectable face.
var ErrNoFace = errors.New("no detectable face")

// EncodeFirstFace detects faces with the primary detector and returns the
// identity vector of the first region. Enrollment photos are expected to hold
// exactly one face; extra detections are ignored the same way the training
// pipeline ignores them.
func (c *Client) EncodeFirstFace(ctx context.Context, imageData []byte) ([]float32, error) {
	regions, err := c.DetectPrimary(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, ErrNoFace
	}

	vectors, err := c.Encode(ctx, imageData, regions[:1])
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
