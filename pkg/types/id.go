package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies one model object. IDs are immutable once assigned and compare
// by value, so the same logical object read back from storage in a later
// process is equal to the one that was written.
type ID string

// NewID generates a new UUID v7 identifier.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return ID(uuid.New().String())
	}
	return ID(id.String())
}

// ParseID validates s and returns it as an ID. Any non-empty string without
// NUL bytes is a valid identifier; generated identifiers are UUIDs but stores
// never rely on that.
func ParseID(s string) (ID, error) {
	if s == "" || strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("parse id: %w", ErrInvalidID)
	}
	return ID(s), nil
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// String returns the identifier text.
func (id ID) String() string {
	return string(id)
}
