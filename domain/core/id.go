package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies one batch run for seed derivation and audit
type RunID ID

// String returns the string representation
func (id RunID) String() string { return ID(id).String() }

// FamilyName identifies a statistical test family (e.g. "independent_t", "permanova")
type FamilyName string

// String returns the string representation
func (f FamilyName) String() string { return string(f) }
