// Package detect locates faces in images. It combines two independent
// detectors exposed by the detection sidecar: a gradient-based primary
// detector and a cascade-style secondary detector tuned toward precision.
package detect

// Region is an axis-aligned face bounding box in image-pixel coordinates.
// The (top, right, bottom, left) order matches the detection sidecar output.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Width returns the horizontal extent of the region.
func (r Region) Width() int {
	return r.Right - r.Left
}

// Height returns the vertical extent of the region.
func (r Region) Height() int {
	return r.Bottom - r.Top
}

// Area returns the region area, or 0 for a degenerate region.
func (r Region) Area() int {
	if r.Right <= r.Left || r.Bottom <= r.Top {
		return 0
	}
	return r.Width() * r.Height()
}

// IoU calculates Intersection over Union between two regions.
// Degenerate or non-overlapping regions yield 0.
func IoU(a, b Region) float64 {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right, b.Right)
	bottom := min(a.Bottom, b.Bottom)

	if right <= left || bottom <= top {
		return 0 // No intersection
	}

	intersection := float64((right - left) * (bottom - top))
	union := float64(a.Area()+b.Area()) - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}
