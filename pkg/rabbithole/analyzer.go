package rabbithole

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/warren/pkg/storage"
)

// EdgeSource supplies the directed similarity pairs an analysis runs on.
type EdgeSource interface {
	Edges(ctx context.Context) ([]storage.Edge, error)
}

// Snapshot is a fixed EdgeSource, typically copied from a live graph under a lock.
type Snapshot []storage.Edge

// Edges returns the snapshot.
func (s Snapshot) Edges(_ context.Context) ([]storage.Edge, error) {
	return s, nil
}

// Report combines both analyses over the same adjacency view.
type Report struct {
	RabbitHole *Hole      `json:"rabbit_hole"`
	Islands    [][]string `json:"rabbit_islands"`
}

// Analyzer computes rabbit holes and islands from an EdgeSource.
// It is stateless: each call rebuilds the adjacency view.
type Analyzer struct {
	source EdgeSource
}

// NewAnalyzer creates an Analyzer reading from source.
func NewAnalyzer(source EdgeSource) (*Analyzer, error) {
	if source == nil {
		return nil, errors.New("edge source is required")
	}
	return &Analyzer{source: source}, nil
}

// Adjacency builds the current adjacency view.
func (a *Analyzer) Adjacency(ctx context.Context) (Adjacency, error) {
	edges, err := a.source.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading similarity edges: %w", err)
	}
	return NewAdjacency(edges), nil
}

// RabbitHole returns the longest paths of the current view.
func (a *Analyzer) RabbitHole(ctx context.Context) (*Hole, error) {
	adj, err := a.Adjacency(ctx)
	if err != nil {
		return nil, err
	}
	return LongestPaths(ctx, adj)
}

// Islands returns the connected components of the current view.
func (a *Analyzer) Islands(ctx context.Context) ([][]string, error) {
	adj, err := a.Adjacency(ctx)
	if err != nil {
		return nil, err
	}
	return Islands(adj), nil
}

// Analyze runs both analyses over a single adjacency view.
func (a *Analyzer) Analyze(ctx context.Context) (*Report, error) {
	adj, err := a.Adjacency(ctx)
	if err != nil {
		return nil, err
	}

	hole, err := LongestPaths(ctx, adj)
	if err != nil {
		return nil, err
	}

	return &Report{
		RabbitHole: hole,
		Islands:    Islands(adj),
	}, nil
}
