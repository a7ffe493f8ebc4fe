package catalog

import (
	"errors"
	"fmt"
)

// ErrNoProducts means a category resolved but none of its products had a usable link.
var ErrNoProducts = errors.New("no products found")

// ValidationError is returned for request input that is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
