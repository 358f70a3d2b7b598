package storage

import (
	"errors"
	"fmt"
)

// Subjects identify which referenced entity was missing.
const (
	SubjectCategory  = "category"
	SubjectParent    = "parent category"
	SubjectNewParent = "new parent category"
	SubjectPair      = "one or both categories"
)

// NotFoundError is returned when a referenced category doesn't exist in the store.
// It is deterministic: retrying the same call yields the same error.
type NotFoundError struct {
	// Subject is one of the Subject* constants
	Subject string

	// Name is the missing name, when a single one is known
	Name string
}

func (e NotFoundError) Error() string {
	subject := e.Subject
	if subject == "" {
		subject = SubjectCategory
	}

	if e.Name == "" {
		return subject + " not found"
	}

	return subject + " not found: " + e.Name
}

// Message returns the human-readable message without the offending name,
// e.g. "parent category not found".
func (e NotFoundError) Message() string {
	return NotFoundError{Subject: e.Subject}.Error()
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// CycleError is returned when a move would make a category its own ancestor.
type CycleError struct {
	Name      string
	NewParent string
}

func (e CycleError) Error() string {
	if e.Name == e.NewParent {
		return fmt.Sprintf("category %s cannot be its own parent", e.Name)
	}
	return fmt.Sprintf("cannot move category %s under its descendant %s", e.Name, e.NewParent)
}

// IsCycle reports whether err is or wraps a CycleError.
func IsCycle(err error) bool {
	var ce CycleError
	return errors.As(err, &ce)
}
