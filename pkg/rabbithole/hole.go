package rabbithole

import (
	"context"
	"slices"
	"strings"
)

// Hole is the result of a longest-path search.
type Hole struct {
	// Length is the number of edges of the longest paths found
	Length int `json:"length"`

	// Paths are the distinct maximal paths, each oriented so that its first
	// vertex sorts before its last
	Paths [][]string `json:"paths"`
}

// LongestPaths searches for the longest simple paths of the view.
//
// Exact longest simple path is intractable on general graphs, so this is a
// breadth-first heuristic seeded from the minimum-degree vertices: exact on
// trees and forests, approximate once cycles are present. Each seed runs one
// traversal in which a vertex is accepted at most once; all paths tying the
// traversal's maximum are kept, then the global maximum is taken across
// seeds. Paths with the same vertex set (a path and its reverse) collapse to
// one.
//
// ctx is checked between seeds.
func LongestPaths(ctx context.Context, adj Adjacency) (*Hole, error) {
	hole := &Hole{Paths: [][]string{}}
	if len(adj) == 0 {
		return hole, nil
	}

	best := -1
	var tied [][]string
	for _, seed := range adj.MinDegreeVertices() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		length, paths := deepestPaths(adj, seed)
		switch {
		case length > best:
			best = length
			tied = paths
		case length == best:
			tied = append(tied, paths...)
		}
	}

	hole.Length = best
	hole.Paths = dedupePaths(tied)
	return hole, nil
}

// deepestPaths runs a breadth-first traversal from seed carrying the path
// taken to each vertex. A vertex is marked visited when dequeued, so the first
// (shortest) path reaching it wins. Returns the maximum path length seen and
// every path of that length.
func deepestPaths(adj Adjacency, seed string) (int, [][]string) {
	queue := [][]string{{seed}}
	visited := make(map[string]bool, len(adj))

	maxLen := -1
	var deepest [][]string

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		vertex := path[len(path)-1]
		if visited[vertex] {
			continue
		}
		visited[vertex] = true

		length := len(path) - 1
		switch {
		case length > maxLen:
			maxLen = length
			deepest = [][]string{path}
		case length == maxLen:
			deepest = append(deepest, path)
		}

		for _, neighbor := range adj.Neighbors(vertex) {
			if visited[neighbor] {
				continue
			}
			next := make([]string, len(path)+1)
			copy(next, path)
			next[len(path)] = neighbor
			queue = append(queue, next)
		}
	}

	return maxLen, deepest
}

// dedupePaths keeps the first path seen for each vertex set and returns the
// survivors ordered by their sorted vertex-set key.
func dedupePaths(paths [][]string) [][]string {
	byKey := make(map[string][]string, len(paths))
	for _, p := range paths {
		key := pathKey(p)
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = orient(p)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func pathKey(p []string) string {
	sorted := slices.Clone(p)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}

// orient returns p, reversed when its last vertex sorts before its first.
func orient(p []string) []string {
	out := slices.Clone(p)
	if len(out) > 1 && out[len(out)-1] < out[0] {
		slices.Reverse(out)
	}
	return out
}
