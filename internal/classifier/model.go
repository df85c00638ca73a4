// Package classifier fits and queries the nearest-neighbor identity model.
package classifier

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/renameio"
)

// MetricEuclidean is the only supported distance metric. Identity vectors
// from the dlib-style encoder separate people at euclidean distances around
// 0.6, which is where the acceptance threshold lives.
const MetricEuclidean = "euclidean"

// HNSW index parameters for 128-dim identity vectors.
const (
	hnswMaxNeighbors   = 16
	hnswSearchOverhang = 3 // request extra candidates before exact re-ranking
)

// Model is a fitted nearest-neighbor classifier: the full labeled sample set
// plus the neighbor count and metric to query with. The artifact on disk is a
// gob blob of the exported fields; the search index is rebuilt on load.
type Model struct {
	Samples       [][]float32
	Labels        []string
	NeighborCount int
	Metric        string

	indexOnce sync.Once
	index     *hnsw.Graph[int]
}

// NeighborCountFor derives the neighbor count from the sample count:
// round(sqrt(n)), floored to 1.
func NeighborCountFor(sampleCount int) int {
	n := int(math.Round(math.Sqrt(float64(sampleCount))))
	if n < 1 {
		n = 1
	}
	return n
}

// Fit builds a model over the labeled samples. Samples and labels must be
// parallel slices.
func Fit(samples [][]float32, labels []string) (*Model, error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("got %d samples for %d labels", len(samples), len(labels))
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot fit a model over zero samples")
	}

	return &Model{
		Samples:       samples,
		Labels:        labels,
		NeighborCount: NeighborCountFor(len(samples)),
		Metric:        MetricEuclidean,
	}, nil
}

// buildIndex constructs the in-memory HNSW graph over the samples, keyed by
// sample index.
func (m *Model) buildIndex() {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i, sample := range m.Samples {
		if len(sample) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, sample))
	}
	m.index = g
}

// euclideanDistance is the exact metric used for re-ranking and for the
// reported neighbor distance.
func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// neighbor is one labeled sample with its exact distance to a query.
type neighbor struct {
	label    string
	distance float64
}

// neighbors returns the k nearest labeled samples to the query, exact
// distances, closest first. HNSW supplies candidates; exact distances decide.
func (m *Model) neighbors(query []float32, k int) []neighbor {
	m.indexOnce.Do(m.buildIndex)

	if k > len(m.Samples) {
		k = len(m.Samples)
	}
	nodes := m.index.Search(query, k*hnswSearchOverhang)

	result := make([]neighbor, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, neighbor{
			label:    m.Labels[n.Key],
			distance: euclideanDistance(query, m.Samples[n.Key]),
		})
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].distance < result[j-1].distance; j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	if len(result) > k {
		result = result[:k]
	}
	return result
}

// Classify returns the distance-weighted majority label over the model's
// NeighborCount nearest samples, together with the distance to the single
// nearest sample. The caller applies the acceptance threshold to the
// distance; Classify itself never rejects.
func (m *Model) Classify(query []float32) (label string, nearest float64) {
	nn := m.neighbors(query, m.NeighborCount)
	if len(nn) == 0 {
		return "", math.Inf(1)
	}

	votes := make(map[string]float64, len(nn))
	for _, n := range nn {
		weight := 1.0
		if n.distance > 0 {
			weight = 1.0 / n.distance
		} else {
			weight = math.Inf(1) // exact sample match dominates
		}
		votes[n.label] += weight
	}

	best := nn[0].label
	for l, w := range votes {
		if w > votes[best] || (w == votes[best] && l < best) {
			best = l
		}
	}
	return best, nn[0].distance
}

// Save atomically replaces the model artifact at path. A failed write leaves
// the previous artifact intact.
func (m *Model) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing model %s: %w", path, err)
	}
	return nil
}

// Load reads a model artifact from path. os.IsNotExist errors pass through so
// callers can treat a missing artifact as "no model yet".
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", path, err)
	}
	if m.NeighborCount < 1 {
		return nil, fmt.Errorf("model %s has invalid neighbor count %d", path, m.NeighborCount)
	}
	return &m, nil
}
