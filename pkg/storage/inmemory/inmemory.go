// Package inmemory provides map-backed implementations of the storage drivers.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex for locking the categories and the index
	mu sync.RWMutex

	// categories is the in memory map of records keyed by category name
	categories map[string]*category.Category

	// children is the hierarchy index: parent name to insertion-ordered child names
	children map[string][]string

	// roots is the index entry for categories without a parent
	roots []string
}

// NewDriver creates a new in-memory category store.
func NewDriver() *Driver {
	return &Driver{
		categories: make(map[string]*category.Category),
		children:   make(map[string][]string),
		roots:      []string{},
	}
}

// Create stores a category. Re-creating an existing name overwrites the record
// in place; if its parent changes it is re-listed under the new parent.
func (d *Driver) Create(_ context.Context, c *category.Category) (*category.Category, error) {
	if c == nil {
		return nil, errors.New("cannot store nil category")
	}
	if c.Name == "" {
		return nil, errors.New("cannot store category without a name")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if c.ParentName != nil {
		if _, ok := d.categories[*c.ParentName]; !ok {
			return nil, storage.NotFoundError{Subject: storage.SubjectParent, Name: *c.ParentName}
		}
	}

	stored := c.Clone()

	existing, ok := d.categories[c.Name]
	if !ok {
		d.appendChild(stored.ParentName, stored.Name)
		d.categories[stored.Name] = stored
		return stored.Clone(), nil
	}

	if existing.Parent() != stored.Parent() {
		if err := d.checkAncestry(stored.Name, stored.ParentName); err != nil {
			return nil, err
		}
		d.removeChild(existing.ParentName, existing.Name)
		d.appendChild(stored.ParentName, stored.Name)
	}

	d.categories[stored.Name] = stored
	return stored.Clone(), nil
}

// Update applies the set fields of patch to the named category.
func (d *Driver) Update(_ context.Context, name string, patch category.Patch) (*category.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.categories[name]
	if !ok {
		return nil, storage.NotFoundError{Subject: storage.SubjectCategory, Name: name}
	}

	patch.Apply(c)
	return c.Clone(), nil
}

// Delete removes a category and re-parents its children to the deleted
// category's parent, appending them in their existing order.
func (d *Driver) Delete(_ context.Context, name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.categories[name]
	if !ok {
		return nil, storage.NotFoundError{Subject: storage.SubjectCategory, Name: name}
	}

	d.removeChild(c.ParentName, name)

	orphans := slices.Clone(d.children[name])
	for _, childName := range orphans {
		child := d.categories[childName]
		child.ParentName = cloneParent(c.ParentName)
		d.appendChild(child.ParentName, childName)
	}

	delete(d.children, name)
	delete(d.categories, name)

	return orphans, nil
}

// Move re-parents the named category. Its own children keep pointing at it,
// so the whole subtree moves as a unit.
func (d *Driver) Move(_ context.Context, name string, newParent *string) (*category.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.categories[name]
	if !ok {
		return nil, storage.NotFoundError{Subject: storage.SubjectCategory, Name: name}
	}

	if newParent != nil {
		if _, ok := d.categories[*newParent]; !ok {
			return nil, storage.NotFoundError{Subject: storage.SubjectNewParent, Name: *newParent}
		}
	}

	if err := d.checkAncestry(name, newParent); err != nil {
		return nil, err
	}

	// The index only holds strings the store owns; name and newParent may
	// alias a transport buffer.
	d.removeChild(c.ParentName, c.Name)
	c.ParentName = cloneParent(newParent)
	d.appendChild(c.ParentName, c.Name)

	return c.Clone(), nil
}

// Get retrieves a category by name.
func (d *Driver) Get(_ context.Context, name string) (*category.Category, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.categories[name]
	if !ok {
		return nil, storage.NotFoundError{Subject: storage.SubjectCategory, Name: name}
	}

	return c.Clone(), nil
}

// Has checks if a category exists.
func (d *Driver) Has(_ context.Context, name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.categories[name]
	return ok, nil
}

// Children returns the ordered children of parentName, or the root-level
// categories when parentName is nil.
func (d *Driver) Children(_ context.Context, parentName *string) ([]*category.Category, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if parentName != nil {
		if _, ok := d.categories[*parentName]; !ok {
			return nil, storage.NotFoundError{Subject: storage.SubjectParent, Name: *parentName}
		}
	}

	names := d.list(parentName)
	result := make([]*category.Category, 0, len(names))
	for _, name := range names {
		result = append(result, d.categories[name].Clone())
	}

	return result, nil
}

// Count returns the number of categories in the in-memory store.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.categories), nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

// checkAncestry rejects a parent that is name itself or one of its descendants.
// Must be called with mu held.
func (d *Driver) checkAncestry(name string, newParent *string) error {
	if newParent == nil {
		return nil
	}

	current := *newParent
	for {
		if current == name {
			return storage.CycleError{Name: name, NewParent: *newParent}
		}

		c, ok := d.categories[current]
		if !ok || c.ParentName == nil {
			return nil
		}
		current = *c.ParentName
	}
}

func (d *Driver) list(parent *string) []string {
	if parent == nil {
		return d.roots
	}
	return d.children[*parent]
}

func (d *Driver) appendChild(parent *string, name string) {
	if parent == nil {
		d.roots = append(d.roots, name)
		return
	}
	d.children[*parent] = append(d.children[*parent], name)
}

func (d *Driver) removeChild(parent *string, name string) {
	names := d.list(parent)
	idx := slices.Index(names, name)
	if idx < 0 {
		return
	}

	names = slices.Delete(names, idx, idx+1)
	if parent == nil {
		d.roots = names
		return
	}
	d.children[*parent] = names
}

func cloneParent(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.Clone(*p)
	return &v
}
