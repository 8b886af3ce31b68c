// Package valid collects field level validation errors.
package valid

import (
	"fmt"
	"strings"
)

// Error is a problem with a single field. Field is a dotted path such as
// "strategies[0].name"; it may be empty for errors about the whole value.
type Error struct {
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

// Errors accumulates validation errors and is itself an error.
type Errors []Error

// Add records a formatted error for field.
func (e *Errors) Add(field, format string, args ...any) {
	*e = append(*e, Error{Field: field, Error: fmt.Sprintf(format, args...)})
}

// Err returns e as an error, or nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Error joins the recorded errors as "field: message" pairs.
func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, err := range e {
		if err.Field == "" {
			parts[i] = err.Error
			continue
		}
		parts[i] = err.Field + ": " + err.Error
	}
	return "invalid " + strings.Join(parts, "; ")
}
