package inmemory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/warren/pkg/storage"
)

// SimilarityGraph implements storage.SimilarityDriver as a symmetric set of
// directed pairs.
type SimilarityGraph struct {
	mu sync.RWMutex

	// vertices validates endpoints against the category store
	vertices storage.VertexChecker

	// edges maps each endpoint to the set of names it is related to.
	// Every pair is present in both directions.
	edges map[string]map[string]struct{}
}

// NewSimilarityGraph creates an empty similarity relation over the categories
// known to vertices.
func NewSimilarityGraph(vertices storage.VertexChecker) *SimilarityGraph {
	return &SimilarityGraph{
		vertices: vertices,
		edges:    make(map[string]map[string]struct{}),
	}
}

// Add relates a and b in both directions.
func (g *SimilarityGraph) Add(ctx context.Context, a, b string) error {
	if g.vertices == nil {
		return errors.New("similarity graph has no vertex checker")
	}

	for _, name := range []string{a, b} {
		ok, err := g.vertices.Has(ctx, name)
		if err != nil {
			return fmt.Errorf("checking category %s: %w", name, err)
		}
		if !ok {
			return storage.NotFoundError{Subject: storage.SubjectPair}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.link(a, b)
	g.link(b, a)
	return nil
}

// Remove deletes both directions of the pair. A missing pair is not an error.
func (g *SimilarityGraph) Remove(_ context.Context, a, b string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unlink(a, b)
	g.unlink(b, a)
	return nil
}

// Neighbors returns the sorted names related to name.
func (g *SimilarityGraph) Neighbors(ctx context.Context, name string) ([]string, error) {
	if g.vertices != nil {
		ok, err := g.vertices.Has(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("checking category %s: %w", name, err)
		}
		if !ok {
			return nil, storage.NotFoundError{Subject: storage.SubjectCategory, Name: name}
		}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Sorted(maps.Keys(g.edges[name])), nil
}

// RemoveVertex deletes every pair touching name.
func (g *SimilarityGraph) RemoveVertex(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for other := range g.edges[name] {
		g.unlink(other, name)
	}
	delete(g.edges, name)
	return nil
}

// Edges returns every directed pair, ordered by (From, To).
func (g *SimilarityGraph) Edges(_ context.Context) ([]storage.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []storage.Edge
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		for _, to := range slices.Sorted(maps.Keys(g.edges[from])) {
			edges = append(edges, storage.Edge{From: from, To: to})
		}
	}

	return edges, nil
}

// Len returns the number of undirected pairs, self-pairs included.
func (g *SimilarityGraph) Len(_ context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for from, tos := range g.edges {
		for to := range tos {
			if from <= to {
				n++
			}
		}
	}
	return n, nil
}

// Has reports whether the directed pair (a, b) is present.
func (g *SimilarityGraph) Has(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.edges[a][b]
	return ok
}

func (g *SimilarityGraph) link(from, to string) {
	tos, ok := g.edges[from]
	if !ok {
		tos = make(map[string]struct{})
		g.edges[strings.Clone(from)] = tos
	}
	if _, ok := tos[to]; !ok {
		tos[strings.Clone(to)] = struct{}{}
	}
}

func (g *SimilarityGraph) unlink(from, to string) {
	tos, ok := g.edges[from]
	if !ok {
		return
	}

	delete(tos, to)
	if len(tos) == 0 {
		delete(g.edges, from)
	}
}
