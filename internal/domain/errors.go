package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotConnected = errors.New("database not connected")
)

// NotFoundError reports an unresolved entity reference together with close
// matches the user may have meant.
type NotFoundError struct {
	Entity      string
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Query)
	}
	return fmt.Sprintf("%s %q not found (did you mean: %s)", e.Entity, e.Query, strings.Join(e.Suggestions, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(entity, query string, suggestions ...string) error {
	return &NotFoundError{Entity: entity, Query: query, Suggestions: suggestions}
}

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
