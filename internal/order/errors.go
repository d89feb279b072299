package order

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrLoginRequired     = errors.New("login required")
	ErrNotOpen           = errors.New("order is not open")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrNoAddress         = errors.New("select a shipping address")
	ErrUnknownAddress    = errors.New("unknown shipping address")
	ErrUnknownField      = errors.New("unknown custom field")
	ErrInvalidFieldValue = errors.New("unsupported custom field value")
	ErrBusy              = errors.New("order submission in progress")
)

// ValidationError lists the custom fields that failed validation, keyed by
// label.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	labels := make([]string, 0, len(e.Fields))
	for l := range e.Fields {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l+": "+e.Fields[l])
	}
	return "invalid custom fields: " + strings.Join(parts, "; ")
}
