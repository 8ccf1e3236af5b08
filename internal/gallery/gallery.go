// Package gallery holds the in-memory matcher for enrolled worker faces.
// A Gallery is built fresh at every scanner session start and never mutated
// afterwards; re-enrollments become visible on the next session.
package gallery

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/coder/hnsw"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/vision"
)

// hnswMaxNeighbors is the M parameter for the HNSW graph.
const hnswMaxNeighbors = 16

// Outcome classifies a gallery probe.
type Outcome string

const (
	// OutcomeMatch means the nearest enrolled worker is within the threshold.
	OutcomeMatch Outcome = "match"
	// OutcomeUnknown means a face was probed but no enrolled worker is close enough.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeEmptyGallery means no workers are enrolled at all.
	OutcomeEmptyGallery Outcome = "empty_gallery"
)

// MatchResult is the transient result of probing the gallery with a live
// descriptor. Never persisted.
type MatchResult struct {
	Outcome  Outcome
	WorkerID int64
	Name     string
	Distance float64
}

// Gallery maps enrolled workers to descriptors and answers nearest-neighbor
// probes under a fixed distance threshold.
type Gallery struct {
	graph      *hnsw.Graph[int64]
	idToWorker map[int64]*store.Worker
	threshold  float64
	skipped    int
	mu         sync.RWMutex
}

// Load fetches every enrolled worker and builds the matcher. Workers whose
// stored descriptor has the wrong length are skipped and counted, not
// silently matched. A fetch error is fatal to scanner startup; an empty
// result is not.
func Load(ctx context.Context, workers store.WorkerReader, threshold float64) (*Gallery, error) {
	enrolled, err := workers.ListEnrolled(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching enrolled workers: %w", err)
	}

	g := &Gallery{
		idToWorker: make(map[int64]*store.Worker, len(enrolled)),
		threshold:  threshold,
	}

	var valid []*store.Worker
	for i := range enrolled {
		w := &enrolled[i]
		if len(w.Descriptor) != vision.DescriptorDim {
			log.Printf("gallery: skipping worker %d (%s): descriptor has %d elements, expected %d",
				w.ID, w.Name, len(w.Descriptor), vision.DescriptorDim)
			g.skipped++
			continue
		}
		valid = append(valid, w)
	}

	if len(valid) == 0 {
		return g, nil
	}

	graph := hnsw.NewGraph[int64]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	graph.Distance = hnsw.CosineDistance

	for _, w := range valid {
		graph.Add(hnsw.MakeNode(w.ID, w.Descriptor))
		g.idToWorker[w.ID] = w
	}
	g.graph = graph

	return g, nil
}

// Match probes the gallery with a live descriptor. An empty gallery resolves
// every probe to OutcomeEmptyGallery; a nearest neighbor beyond the threshold
// resolves to OutcomeUnknown even though it was the closest candidate.
func (g *Gallery) Match(descriptor []float32) MatchResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.graph == nil {
		return MatchResult{Outcome: OutcomeEmptyGallery}
	}

	neighbors := g.graph.Search(descriptor, 1)
	if len(neighbors) == 0 {
		return MatchResult{Outcome: OutcomeUnknown}
	}

	best := neighbors[0]
	// Exact distance from the node's own embedding; the graph search
	// distance is approximate.
	distance := CosineDistance(descriptor, best.Value)

	worker, ok := g.idToWorker[best.Key]
	if !ok || distance > g.threshold {
		return MatchResult{Outcome: OutcomeUnknown, Distance: distance}
	}

	return MatchResult{
		Outcome:  OutcomeMatch,
		WorkerID: worker.ID,
		Name:     worker.Name,
		Distance: distance,
	}
}

// Count returns the number of enrolled workers in the gallery.
func (g *Gallery) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.idToWorker)
}

// Skipped returns the number of malformed descriptor rows rejected on load.
func (g *Gallery) Skipped() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.skipped
}

// Empty returns true if no workers are enrolled.
func (g *Gallery) Empty() bool {
	return g.Count() == 0
}

// Threshold returns the configured distance threshold.
func (g *Gallery) Threshold() float64 {
	return g.threshold
}
