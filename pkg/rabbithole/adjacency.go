// Package rabbithole analyzes the similarity graph: it finds the longest
// chains of related categories ("rabbit holes") and the connected groups of
// related categories ("rabbit islands").
//
// Every analysis is computed from a fresh adjacency view; nothing is cached
// between calls.
package rabbithole

import (
	"maps"
	"slices"

	"github.com/papercomputeco/warren/pkg/storage"
)

// Adjacency maps each vertex to the set of its distinct neighbours.
// Only vertices with at least one edge are present.
type Adjacency map[string]map[string]struct{}

// NewAdjacency collapses a directed edge set into an adjacency view. Both
// directions of every edge are recorded, so a one-sided input still yields a
// symmetric view.
func NewAdjacency(edges []storage.Edge) Adjacency {
	adj := make(Adjacency)
	for _, e := range edges {
		adj.link(e.From, e.To)
		adj.link(e.To, e.From)
	}
	return adj
}

// Neighbors returns the sorted neighbours of v.
func (a Adjacency) Neighbors(v string) []string {
	return slices.Sorted(maps.Keys(a[v]))
}

// Degree returns the number of distinct neighbours of v. A self-loop counts once.
func (a Adjacency) Degree(v string) int {
	return len(a[v])
}

// Vertices returns every vertex in sorted order.
func (a Adjacency) Vertices() []string {
	return slices.Sorted(maps.Keys(a))
}

// MinDegreeVertices returns the sorted vertices whose degree equals the
// minimum degree of the view.
func (a Adjacency) MinDegreeVertices() []string {
	if len(a) == 0 {
		return nil
	}

	minDegree := -1
	for _, tos := range a {
		if minDegree < 0 || len(tos) < minDegree {
			minDegree = len(tos)
		}
	}

	var seeds []string
	for _, v := range a.Vertices() {
		if a.Degree(v) == minDegree {
			seeds = append(seeds, v)
		}
	}
	return seeds
}

func (a Adjacency) link(from, to string) {
	tos, ok := a[from]
	if !ok {
		tos = make(map[string]struct{})
		a[from] = tos
	}
	tos[to] = struct{}{}
}
