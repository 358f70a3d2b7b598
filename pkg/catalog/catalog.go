// Package catalog is the single owner of the category hierarchy and the
// similarity graph. Every transport goes through a Service, which serializes
// store and graph operations, emits change events, records metrics and runs
// graph analyses on a bounded worker pool.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/eventstream"
	"github.com/papercomputeco/warren/pkg/eventstream/nop"
	"github.com/papercomputeco/warren/pkg/metrics"
	"github.com/papercomputeco/warren/pkg/rabbithole"
	"github.com/papercomputeco/warren/pkg/storage"
	"github.com/papercomputeco/warren/pkg/worker"
)

var (
	// ErrEmptyName is returned when a category or similarity names no category.
	ErrEmptyName = errors.New("category name is required")

	// ErrNilCategory is returned by CreateCategory for a nil record.
	ErrNilCategory = errors.New("category is required")
)

// Analysis kinds, used as job names and metric labels.
const (
	KindRabbitHole = "rabbit_hole"
	KindIslands    = "rabbit_islands"
	KindBoth       = "rabbit_hole_and_islands"
)

// Config is the configuration for a catalog Service.
type Config struct {
	// Store holds the categories and the hierarchy index
	Store storage.Driver

	// Similarities holds the similarity edge set
	Similarities storage.SimilarityDriver

	// Pool runs analyses. A default pool is created when nil.
	Pool *worker.Pool

	// Publisher receives change events. Events are dropped when nil.
	Publisher eventstream.Publisher

	// Metrics records operation counters. A private registry is used when nil.
	Metrics *metrics.Metrics

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Service serializes all catalog operations behind one lock.
type Service struct {
	// mu is held for reading by queries and for writing by mutations, so no
	// caller observes a half-applied change across store and graph
	mu sync.RWMutex

	store        storage.Driver
	similarities storage.SimilarityDriver
	pool         *worker.Pool
	publisher    eventstream.Publisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// Stats summarizes the size of the catalog.
type Stats struct {
	Categories         int `json:"categories"`
	SimilarityPairs    int `json:"similarity_pairs"`
	IslandParticipants int `json:"island_participants"`
}

// NewService creates a catalog Service over the configured store and graph.
func NewService(c *Config) (*Service, error) {
	if c.Store == nil {
		return nil, errors.New("category store is required")
	}
	if c.Similarities == nil {
		return nil, errors.New("similarity graph is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pool := c.Pool
	if pool == nil {
		var err error
		pool, err = worker.NewPool(&worker.Config{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("creating analysis pool: %w", err)
		}
	}

	publisher := c.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	m := c.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &Service{
		store:        c.Store,
		similarities: c.Similarities,
		pool:         pool,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Close drains the analysis pool and releases the publisher and store.
func (s *Service) Close() error {
	s.pool.Close()
	return errors.Join(s.publisher.Close(), s.store.Close())
}

// CreateCategory stores c, overwriting an existing category of the same name.
func (s *Service) CreateCategory(ctx context.Context, c *category.Category) (*category.Category, error) {
	if c == nil {
		return nil, ErrNilCategory
	}
	if c.Name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	created, err := s.store.Create(ctx, c)
	if err == nil {
		s.refreshSizes(ctx)
	}
	s.mu.Unlock()

	s.metrics.ObserveOp("create", err)
	if err != nil {
		return nil, fmt.Errorf("creating category %s: %w", c.Name, err)
	}

	s.logger.Debug("category created",
		zap.String("name", created.Name),
		zap.String("parent", created.Parent()),
	)
	s.publish(ctx, eventstream.NewCategoryEvent(eventstream.EventTypeCategoryCreated, created))
	return created, nil
}

// UpdateCategory applies patch to the named category.
func (s *Service) UpdateCategory(ctx context.Context, name string, patch category.Patch) (*category.Category, error) {
	s.mu.Lock()
	updated, err := s.store.Update(ctx, name, patch)
	s.mu.Unlock()

	s.metrics.ObserveOp("update", err)
	if err != nil {
		return nil, fmt.Errorf("updating category %s: %w", name, err)
	}

	s.logger.Debug("category updated", zap.String("name", name))
	s.publish(ctx, eventstream.NewCategoryEvent(eventstream.EventTypeCategoryUpdated, updated))
	return updated, nil
}

// DeleteCategory removes the named category and its similarity edges. Its
// children move up to its parent. Returns the re-parented children names.
//
// Once the store has deleted the category the call succeeds; a failure to drop
// its similarity edges is logged.
func (s *Service) DeleteCategory(ctx context.Context, name string) ([]string, error) {
	var edgeErr error

	s.mu.Lock()
	reparented, err := s.store.Delete(ctx, name)
	if err == nil {
		edgeErr = s.similarities.RemoveVertex(ctx, name)
		s.refreshSizes(ctx)
	}
	s.mu.Unlock()

	s.metrics.ObserveOp("delete", err)
	if err != nil {
		return nil, fmt.Errorf("deleting category %s: %w", name, err)
	}
	if edgeErr != nil {
		s.logger.Warn("category deleted but its similarities were not removed",
			zap.String("name", name),
			zap.Error(edgeErr),
		)
	}

	s.logger.Debug("category deleted",
		zap.String("name", name),
		zap.Strings("reparented", reparented),
	)
	s.publish(ctx, eventstream.NewDeletedEvent(name, reparented))
	return reparented, nil
}

// MoveCategory re-parents the named category. A nil newParent moves it to the
// root level.
func (s *Service) MoveCategory(ctx context.Context, name string, newParent *string) (*category.Category, error) {
	s.mu.Lock()
	moved, err := s.store.Move(ctx, name, newParent)
	s.mu.Unlock()

	s.metrics.ObserveOp("move", err)
	if err != nil {
		return nil, fmt.Errorf("moving category %s: %w", name, err)
	}

	s.logger.Debug("category moved",
		zap.String("name", name),
		zap.String("parent", moved.Parent()),
	)
	s.publish(ctx, eventstream.NewCategoryEvent(eventstream.EventTypeCategoryMoved, moved))
	return moved, nil
}

// GetCategory returns the named category.
func (s *Service) GetCategory(ctx context.Context, name string) (*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting category %s: %w", name, err)
	}
	return c, nil
}

// ListChildren returns the ordered children of parentName, or the root-level
// categories when parentName is nil.
func (s *Service) ListChildren(ctx context.Context, parentName *string) ([]*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children, err := s.store.Children(ctx, parentName)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	return children, nil
}

// Tree loads the hierarchy rooted at name.
func (s *Service) Tree(ctx context.Context, name string) (*category.Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return category.LoadTree(ctx, s.store, name)
}

// AddSimilarity records that a and b are similar.
func (s *Service) AddSimilarity(ctx context.Context, a, b string) error {
	if a == "" || b == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	err := s.similarities.Add(ctx, a, b)
	if err == nil {
		s.refreshSizes(ctx)
	}
	s.mu.Unlock()

	s.metrics.ObserveOp("add_similarity", err)
	if err != nil {
		return fmt.Errorf("adding similarity %s~%s: %w", a, b, err)
	}

	s.logger.Debug("similarity added", zap.String("a", a), zap.String("b", b))
	s.publish(ctx, eventstream.NewSimilarityEvent(eventstream.EventTypeSimilarityAdded, a, b))
	return nil
}

// RemoveSimilarity deletes the pair a, b. Removing an unknown pair succeeds.
func (s *Service) RemoveSimilarity(ctx context.Context, a, b string) error {
	if a == "" || b == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	err := s.similarities.Remove(ctx, a, b)
	if err == nil {
		s.refreshSizes(ctx)
	}
	s.mu.Unlock()

	s.metrics.ObserveOp("remove_similarity", err)
	if err != nil {
		return fmt.Errorf("removing similarity %s~%s: %w", a, b, err)
	}

	s.publish(ctx, eventstream.NewSimilarityEvent(eventstream.EventTypeSimilarityRemoved, a, b))
	return nil
}

// SimilarCategories returns the category records similar to name, sorted by name.
func (s *Service) SimilarCategories(ctx context.Context, name string) ([]*category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.similarities.Neighbors(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting similar categories of %s: %w", name, err)
	}

	result := make([]*category.Category, 0, len(names))
	for _, n := range names {
		c, err := s.store.Get(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("getting similar category %s: %w", n, err)
		}
		result = append(result, c)
	}
	return result, nil
}

// Stats returns the current catalog sizes.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	pairs, err := s.similarities.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting similarities: %w", err)
	}

	edges, err := s.similarities.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading similarity edges: %w", err)
	}

	return &Stats{
		Categories:         count,
		SimilarityPairs:    pairs,
		IslandParticipants: len(rabbithole.NewAdjacency(edges)),
	}, nil
}

// publish sends event to the configured publisher. Failures are logged and
// counted; they never fail the mutation that produced the event.
func (s *Service) publish(ctx context.Context, event *eventstream.CatalogEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.EventPublishFailuresTotal.Inc()
		s.logger.Warn("failed to publish catalog event",
			zap.String("event_type", event.EventType),
			zap.String("name", event.Name),
			zap.Error(err),
		)
	}
}

// refreshSizes updates the size gauges. Must be called with mu held.
func (s *Service) refreshSizes(ctx context.Context) {
	if count, err := s.store.Count(ctx); err == nil {
		s.metrics.Categories.Set(float64(count))
	}
	if pairs, err := s.similarities.Len(ctx); err == nil {
		s.metrics.SimilarityPairs.Set(float64(pairs))
	}
}

// analyze copies the edge set under the read lock, then runs fn on the pool
// against that snapshot.
func (s *Service) analyze(ctx context.Context, kind string, fn func(context.Context, *rabbithole.Analyzer) error) error {
	s.mu.RLock()
	edges, err := s.similarities.Edges(ctx)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("snapshotting similarity edges: %w", err)
	}

	analyzer, err := rabbithole.NewAnalyzer(rabbithole.Snapshot(edges))
	if err != nil {
		return err
	}

	started := time.Now()
	err = s.pool.Submit(ctx, kind, func(ctx context.Context) error {
		return fn(ctx, analyzer)
	})
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		s.metrics.AnalysisRejectedTotal.Inc()
	case err == nil:
		s.metrics.ObserveAnalysis(kind, started)
	}

	s.metrics.ObserveOp(kind, err)
	if err != nil {
		return fmt.Errorf("running %s analysis: %w", kind, err)
	}
	return nil
}
