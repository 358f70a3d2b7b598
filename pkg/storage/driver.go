// Package storage defines the contracts of the category hierarchy store and
// the similarity edge set.
package storage

import (
	"context"

	"github.com/papercomputeco/warren/pkg/category"
)

// Driver defines the interface for storing and retrieving categories and the
// parent to children hierarchy index. The index is the sole authority for child
// enumeration and keeps insertion order.
type Driver interface {
	// Create stores a category under its parent (or the root list when the
	// parent is nil). Re-creating an existing name overwrites it in place.
	Create(ctx context.Context, c *category.Category) (*category.Category, error)

	// Update applies a sparse patch to an existing category.
	Update(ctx context.Context, name string, patch category.Patch) (*category.Category, error)

	// Delete removes a category. Its children are re-parented to the deleted
	// category's own parent. Returns the re-parented children names.
	Delete(ctx context.Context, name string) ([]string, error)

	// Move re-parents a category. A nil newParent moves it to the root list.
	Move(ctx context.Context, name string, newParent *string) (*category.Category, error)

	// Get retrieves a category by name.
	Get(ctx context.Context, name string) (*category.Category, error)

	// Has checks if a category exists.
	Has(ctx context.Context, name string) (bool, error)

	// Children returns the ordered children of parentName (nil for the root list).
	Children(ctx context.Context, parentName *string) ([]*category.Category, error)

	// Count returns the number of stored categories.
	Count(ctx context.Context) (int, error)

	// Close releases any resources.
	Close() error
}

// Edge is one directed pair of the symmetric similarity relation.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// VertexChecker reports whether a category name is known.
// SimilarityDriver implementations use it to validate endpoints.
type VertexChecker interface {
	Has(ctx context.Context, name string) (bool, error)
}

// SimilarityDriver defines the interface for the undirected similarity relation.
// Membership is symmetric at all times.
type SimilarityDriver interface {
	// Add relates a and b in both directions. Adding an existing pair is a no-op.
	Add(ctx context.Context, a, b string) error

	// Remove deletes both directions. Removing a missing pair is a no-op success.
	Remove(ctx context.Context, a, b string) error

	// Neighbors returns the names related to name, sorted.
	Neighbors(ctx context.Context, name string) ([]string, error)

	// RemoveVertex deletes every pair touching name.
	RemoveVertex(ctx context.Context, name string) error

	// Edges returns a snapshot of every directed pair.
	Edges(ctx context.Context) ([]Edge, error)

	// Len returns the number of undirected pairs.
	Len(ctx context.Context) (int, error)
}
