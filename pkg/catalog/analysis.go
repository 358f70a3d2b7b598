package catalog

import (
	"context"

	"github.com/papercomputeco/warren/pkg/rabbithole"
)

// RabbitHole returns the longest similarity chains.
func (s *Service) RabbitHole(ctx context.Context) (*rabbithole.Hole, error) {
	var hole *rabbithole.Hole
	err := s.analyze(ctx, KindRabbitHole, func(ctx context.Context, a *rabbithole.Analyzer) error {
		h, err := a.RabbitHole(ctx)
		hole = h
		return err
	})
	if err != nil {
		return nil, err
	}
	return hole, nil
}

// Islands returns the connected groups of similar categories.
func (s *Service) Islands(ctx context.Context) ([][]string, error) {
	var islands [][]string
	err := s.analyze(ctx, KindIslands, func(ctx context.Context, a *rabbithole.Analyzer) error {
		i, err := a.Islands(ctx)
		islands = i
		return err
	})
	if err != nil {
		return nil, err
	}
	return islands, nil
}

// Analyze returns the rabbit hole and the islands computed from one snapshot.
func (s *Service) Analyze(ctx context.Context) (*rabbithole.Report, error) {
	var report *rabbithole.Report
	err := s.analyze(ctx, KindBoth, func(ctx context.Context, a *rabbithole.Analyzer) error {
		r, err := a.Analyze(ctx)
		report = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
