package benchcmder

import (
	"fmt"
	"math/rand/v2"
)

// rootShare is the fraction of planned categories created at the root level.
const rootShare = 10

// PlannedCategory is one category the bench creates.
type PlannedCategory struct {
	Name   string
	Parent *string
}

// Plan is the deterministic workload of one bench run.
type Plan struct {
	// Roots are created before Children so every parent exists
	Roots    []PlannedCategory
	Children []PlannedCategory

	// Similarities are distinct unordered pairs of planned names
	Similarities [][2]string
}

// NewPlan builds a workload of n categories and up to m similarity pairs. The
// same seed always yields the same plan. About one in ten categories is a
// root; the rest hang under a random root. Pairs never relate a category to
// itself and never repeat.
func NewPlan(n, m int, seed uint64) *Plan {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	p := &Plan{}
	if n <= 0 {
		return p
	}

	roots := max(1, n/rootShare)
	names := make([]string, 0, n)
	for i := range n {
		name := fmt.Sprintf("bench_%06d_%04x", i, rng.Uint32()&0xffff)
		names = append(names, name)

		if i < roots {
			p.Roots = append(p.Roots, PlannedCategory{Name: name})
			continue
		}
		parent := p.Roots[rng.IntN(len(p.Roots))].Name
		p.Children = append(p.Children, PlannedCategory{Name: name, Parent: &parent})
	}

	maxPairs := n * (n - 1) / 2
	if m > maxPairs {
		m = maxPairs
	}

	seen := make(map[[2]string]struct{}, m)
	for len(p.Similarities) < m {
		a, b := names[rng.IntN(n)], names[rng.IntN(n)]
		if a == b {
			continue
		}
		if b < a {
			a, b = b, a
		}
		key := [2]string{a, b}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		p.Similarities = append(p.Similarities, key)
	}

	return p
}

// Names returns every planned category name, parents before children.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Roots)+len(p.Children))
	for _, c := range p.Roots {
		names = append(names, c.Name)
	}
	for _, c := range p.Children {
		names = append(names, c.Name)
	}
	return names
}
