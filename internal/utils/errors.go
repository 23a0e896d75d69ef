package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrItemNotFound returns an error for when an item is not found in a list.
func ErrItemNotFound(itemRef, listLabel string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("item not found: %s", itemRef),
		Suggestion: fmt.Sprintf("Use 'dolist items %s' to see item ids", listLabel),
	}
}

// ErrListNotFound returns an error for when a list is not found.
func ErrListNotFound(listRef string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("list not found: %s", listRef),
		Suggestion: fmt.Sprintf("Create the list with 'dolist list create %s'", listRef),
	}
}

// ErrNoListsAvailable returns an error when no lists exist.
func ErrNoListsAvailable() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("no lists available"),
		Suggestion: "Create a list with 'dolist list create <label>'",
	}
}

// ErrBackendNotConfigured returns an error when a backend is not configured.
func ErrBackendNotConfigured(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend not configured: %s", name),
		Suggestion: fmt.Sprintf("Add %s configuration to your config file", name),
	}
}

// ErrUnknownBackend returns an error for a backend name with valid options.
func ErrUnknownBackend(name string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown backend: %s", name),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrInvalidLabel returns an error for an empty or oversized label.
func ErrInvalidLabel(label string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid label: %q", label),
		Suggestion: fmt.Sprintf("Labels must be 1-%d characters and fit on one line", MaxLabelLength),
	}
}

// ErrInvalidItemID returns an error for an item id that is not a number.
func ErrInvalidItemID(ref string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid item id: %s", ref),
		Suggestion: "Item ids are numbers, shown in the first column of 'dolist items <list>'",
	}
}
