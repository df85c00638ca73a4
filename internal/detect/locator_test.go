package detect

import (
	"context"
	"reflect"
	"testing"
)

// stubDetector returns canned regions for both detectors.
type stubDetector struct {
	primary   []Region
	secondary []Region

	primaryErr   error
	secondaryErr error

	gotCascade CascadeOptions
}

func (s *stubDetector) DetectPrimary(ctx context.Context, imageData []byte) ([]Region, error) {
	return s.primary, s.primaryErr
}

func (s *stubDetector) DetectCascade(ctx context.Context, imageData []byte, opts CascadeOptions) ([]Region, error) {
	s.gotCascade = opts
	return s.secondary, s.secondaryErr
}

func TestMerge_OverlappingSecondaryDiscarded(t *testing.T) {
	primary := []Region{{Top: 10, Right: 110, Bottom: 110, Left: 10}}
	// IoU against the primary region is ~0.85, far above the 0.3 threshold.
	secondary := []Region{{Top: 12, Right: 112, Bottom: 112, Left: 12}}

	merged := Merge(primary, secondary, 0.3)

	if len(merged) != 1 {
		t.Fatalf("expected 1 region after merge, got %d", len(merged))
	}
	if merged[0] != primary[0] {
		t.Errorf("expected primary region to win, got %v", merged[0])
	}
}

func TestMerge_DistinctSecondaryKept(t *testing.T) {
	primary := []Region{{Top: 10, Right: 110, Bottom: 110, Left: 10}}
	secondary := []Region{{Top: 200, Right: 300, Bottom: 300, Left: 200}}

	merged := Merge(primary, secondary, 0.3)

	if len(merged) != 2 {
		t.Fatalf("expected 2 regions after merge, got %d", len(merged))
	}
}

func TestMerge_ThresholdBoundary(t *testing.T) {
	primary := []Region{{Top: 0, Right: 100, Bottom: 100, Left: 0}}
	// Horizontal shift producing IoU just below 0.3: overlap 46x100 against
	// union 15400 gives ~0.2987.
	secondary := []Region{{Top: 0, Right: 154, Bottom: 100, Left: 54}}

	merged := Merge(primary, secondary, 0.3)
	if len(merged) != 2 {
		t.Fatalf("IoU <= threshold must keep both regions, got %d", len(merged))
	}
}

func TestMerge_SecondaryOnlyAdditive(t *testing.T) {
	// Two overlapping secondary regions against an empty primary set: the
	// first is accepted, the second collapses into it.
	secondary := []Region{
		{Top: 0, Right: 100, Bottom: 100, Left: 0},
		{Top: 2, Right: 102, Bottom: 102, Left: 2},
	}

	merged := Merge(nil, secondary, 0.3)

	if len(merged) != 1 {
		t.Fatalf("expected overlapping secondary regions to collapse, got %d", len(merged))
	}
}

func TestLocator_Deterministic(t *testing.T) {
	stub := &stubDetector{
		primary: []Region{
			{Top: 10, Right: 110, Bottom: 110, Left: 10},
			{Top: 10, Right: 420, Bottom: 110, Left: 320},
		},
		secondary: []Region{
			{Top: 12, Right: 112, Bottom: 112, Left: 12},  // duplicate of first primary
			{Top: 200, Right: 300, Bottom: 300, Left: 200}, // new face
		},
	}
	locator := NewLocator(stub, CascadeOptions{MinNeighbors: 4, MinSize: 30}, 0.3)

	first, err := locator.Locate(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := locator.Locate(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("locate is not deterministic: %v vs %v", first, second)
	}
	if len(first) != 3 {
		t.Errorf("expected 3 merged regions, got %d", len(first))
	}
}

func TestLocator_PassesCascadeOptions(t *testing.T) {
	stub := &stubDetector{}
	opts := CascadeOptions{MinNeighbors: 6, MinSize: 40}
	locator := NewLocator(stub, opts, 0.3)

	if _, err := locator.Locate(context.Background(), []byte("img")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.gotCascade != opts {
		t.Errorf("expected cascade options %+v, got %+v", opts, stub.gotCascade)
	}
}

func TestLocator_NoFaces(t *testing.T) {
	locator := NewLocator(&stubDetector{}, CascadeOptions{}, 0.3)

	regions, err := locator.Locate(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("expected empty region set, got %v", regions)
	}
}
