package listing

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalidListing is matched by every ValidationError.
var ErrInvalidListing = errors.New("invalid listing")

// ValidationError maps field names to the reason each was rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid listing: " + strings.Join(parts, "; ")
}

// Is makes ValidationError match ErrInvalidListing.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidListing
}
