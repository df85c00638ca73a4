package classifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/encoding"
)

// PhotoEncoder turns one enrollment photo into an identity vector.
// Satisfied by *detect.Client.
type PhotoEncoder interface {
	EncodeFirstFace(ctx context.Context, imageData []byte) ([]float32, error)
}

// Summary describes one training run.
type Summary struct {
	Identities    int
	TotalImages   int
	NewEncodings  int
	CachedHits    int
	Skipped       int // unreadable files or photos with no detectable face
	Pruned        int // cache entries dropped for removed photos
	Samples       int
	NeighborCount int
}

func (s Summary) String() string {
	return fmt.Sprintf("model trained with %d faces across %d identities (%d newly encoded, %d cached, %d skipped)",
		s.Samples, s.Identities, s.NewEncodings, s.CachedHits, s.Skipped)
}

// Trainer builds the classifier from the enrollment dataset through the
// encoding cache. Training runs are serialized: the cache has a single
// writer, so a concurrent invocation blocks until the first finishes.
type Trainer struct {
	mu      sync.Mutex
	dataset config.DatasetConfig
	encoder PhotoEncoder
	ref     *Ref

	// Progress, when set, is called after each processed image.
	Progress func(done, total int)
}

// NewTrainer creates a trainer that publishes successful models to ref.
func NewTrainer(dataset config.DatasetConfig, encoder PhotoEncoder, ref *Ref) *Trainer {
	return &Trainer{
		dataset: dataset,
		encoder: encoder,
		ref:     ref,
	}
}

// Train walks the dataset, collects identity vectors via the encoding cache,
// prunes stale cache entries, fits the model, and atomically replaces the
// model artifact. On failure the previous cache and model artifacts stay
// valid and the previous model stays published.
func (t *Trainer) Train(ctx context.Context) (*Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cache, err := encoding.Open(t.dataset.CachePath)
	if err != nil {
		return nil, err
	}

	folders, err := encoding.WalkDataset(t.dataset.Dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Identities: len(folders)}
	for _, folder := range folders {
		summary.TotalImages += len(folder.Images)
	}

	var samples [][]float32
	var labels []string
	seen := make(map[string]struct{})

	done := 0
	for _, folder := range folders {
		for _, relPath := range folder.Images {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			vec, err := cache.GetOrCompute(ctx, relPath, func(ctx context.Context) ([]float32, error) {
				data, err := os.ReadFile(filepath.Join(t.dataset.Dir, relPath))
				if err != nil {
					return nil, err
				}
				return t.encoder.EncodeFirstFace(ctx, data)
			})

			done++
			if t.Progress != nil {
				t.Progress(done, summary.TotalImages)
			}

			if err != nil {
				// Corrupt file or no detectable face: the photo contributes
				// nothing, the pass continues.
				summary.Skipped++
				continue
			}

			seen[relPath] = struct{}{}
			samples = append(samples, vec)
			labels = append(labels, folder.Code)
		}
	}

	summary.Pruned = cache.Prune(seen)
	summary.CachedHits, summary.NewEncodings = cache.Stats()

	if err := cache.Save(); err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no face data found in dataset %s", t.dataset.Dir)
	}

	model, err := Fit(samples, labels)
	if err != nil {
		return nil, err
	}
	if err := model.Save(t.dataset.ModelPath); err != nil {
		return nil, err
	}

	summary.Samples = len(samples)
	summary.NeighborCount = model.NeighborCount

	if t.ref != nil {
		t.ref.Swap(model)
	}
	return summary, nil
}
