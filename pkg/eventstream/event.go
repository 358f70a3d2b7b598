// Package eventstream defines the change events emitted after catalog
// mutations and the Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/warren/pkg/category"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCategoryCreated is emitted after a category is created or overwritten.
	EventTypeCategoryCreated = "warren.category.created"

	// EventTypeCategoryUpdated is emitted after a category is patched.
	EventTypeCategoryUpdated = "warren.category.updated"

	// EventTypeCategoryDeleted is emitted after a category is deleted.
	EventTypeCategoryDeleted = "warren.category.deleted"

	// EventTypeCategoryMoved is emitted after a category changes parent.
	EventTypeCategoryMoved = "warren.category.moved"

	// EventTypeSimilarityAdded is emitted after a similarity pair is recorded.
	EventTypeSimilarityAdded = "warren.similarity.added"

	// EventTypeSimilarityRemoved is emitted after a similarity pair is removed.
	EventTypeSimilarityRemoved = "warren.similarity.removed"
)

// CatalogEvent is a transport-neutral event payload for a catalog mutation.
type CatalogEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Name is the category the event is about. For similarity events it is
	// the first category of the pair.
	Name string `json:"name"`

	// Category is the category record after the mutation.
	// Nil for deletions and similarity events.
	Category *category.Category `json:"category,omitempty"`

	// Reparented lists the children moved up to the deleted category's parent.
	Reparented []string `json:"reparented,omitempty"`

	// Similarity is the affected pair for similarity events.
	Similarity *SimilarityPair `json:"similarity,omitempty"`
}

// SimilarityPair names the two categories of a similarity edge.
type SimilarityPair struct {
	CategoryName1 string `json:"category_name_1"`
	CategoryName2 string `json:"category_name_2"`
}

// NewCategoryEvent builds a category event stamped with a fresh ID and time.
func NewCategoryEvent(eventType string, c *category.Category) *CatalogEvent {
	e := newEvent(eventType)
	e.Name = c.Name
	e.Category = c.Clone()
	return e
}

// NewDeletedEvent builds a deletion event for name.
func NewDeletedEvent(name string, reparented []string) *CatalogEvent {
	e := newEvent(EventTypeCategoryDeleted)
	e.Name = name
	e.Reparented = reparented
	return e
}

// NewSimilarityEvent builds a similarity event for the pair a, b.
func NewSimilarityEvent(eventType, a, b string) *CatalogEvent {
	e := newEvent(eventType)
	e.Name = a
	e.Similarity = &SimilarityPair{CategoryName1: a, CategoryName2: b}
	return e
}

func newEvent(eventType string) *CatalogEvent {
	return &CatalogEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
	}
}
