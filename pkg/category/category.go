// Package category defines the category record, its sparse patch type and an
// in-memory tree view of the category hierarchy.
package category

import (
	"encoding/json"
	"strings"
)

// Category is a single named node in the category hierarchy.
type Category struct {
	// Name is the globally unique identifier of the category
	Name string `json:"name"`

	// Description is optional free text
	Description *string `json:"description"`

	// Image is an optional URI
	Image *string `json:"image"`

	// ParentName links to the parent category.
	// This will be nil for root-level categories.
	ParentName *string `json:"parent_name"`
}

// New creates a category with the given name and optional parent.
func New(name string, parent *string) *Category {
	c := &Category{Name: name}
	if parent != nil {
		p := *parent
		c.ParentName = &p
	}
	return c
}

// IsRoot reports whether the category sits at the root level.
func (c *Category) IsRoot() bool {
	return c.ParentName == nil
}

// Parent returns the parent name, or the empty string for root categories.
func (c *Category) Parent() string {
	if c.ParentName == nil {
		return ""
	}
	return *c.ParentName
}

// Clone returns a deep copy so callers never alias stored records.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}

	out := &Category{Name: strings.Clone(c.Name)}
	out.Description = cloneString(c.Description)
	out.Image = cloneString(c.Image)
	out.ParentName = cloneString(c.ParentName)
	return out
}

// Optional is a patch field that tells an omitted value apart from an
// explicit null. The zero value is "not set".
type Optional struct {
	// Set is true when the field was present, even as null
	Set bool

	// Value is the new value; nil clears the field
	Value *string
}

// Some returns a set field holding s.
func Some(s string) Optional {
	return Optional{Set: true, Value: &s}
}

// Null returns a set field that clears the value.
func Null() Optional {
	return Optional{Set: true}
}

// IsZero reports whether the field was omitted.
func (o Optional) IsZero() bool {
	return !o.Set
}

// UnmarshalJSON marks the field as set. It is only called when the key is
// present in the document.
func (o *Optional) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON encodes the value, or null when it is cleared. Use the
// omitzero tag option to drop fields that are not set.
func (o Optional) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Patch is a sparse update. Fields that are not set are left untouched when
// applied; a set field with a nil value clears the stored value.
//
// Names and parents are not patchable: re-parenting goes through a move.
type Patch struct {
	Description Optional `json:"description,omitzero"`
	Image       Optional `json:"image,omitzero"`
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return !p.Description.Set && !p.Image.Set
}

// Apply merges the set fields of the patch into c.
func (p Patch) Apply(c *Category) {
	if p.Description.Set {
		c.Description = cloneString(p.Description.Value)
	}
	if p.Image.Set {
		c.Image = cloneString(p.Image.Value)
	}
}

// StringPtr is a small helper for building optional fields.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.Clone(*s)
	return &v
}
