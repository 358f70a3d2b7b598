package rabbithole

import "slices"

// Islands partitions the view into connected components. Each vertex of the
// view lands in exactly one island; vertices without edges are not part of the
// view and therefore never appear. Islands are sorted internally and ordered by
// their smallest vertex.
func Islands(adj Adjacency) [][]string {
	visited := make(map[string]bool, len(adj))
	islands := [][]string{}

	for _, start := range adj.Vertices() {
		if visited[start] {
			continue
		}
		islands = append(islands, component(adj, start, visited))
	}

	return islands
}

// component collects every vertex reachable from start breadth-first and
// marks them in visited.
func component(adj Adjacency, start string, visited map[string]bool) []string {
	queue := []string{start}
	visited[start] = true
	var members []string

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		members = append(members, v)

		for neighbor := range adj[v] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			queue = append(queue, neighbor)
		}
	}

	slices.Sort(members)
	return members
}
