package models

import (
	"fmt"
	"strings"
)

// ConfigurationError reports scoring or rollup parameters outside their
// documented range. Values are never clamped silently.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// NewConfigurationError builds a ConfigurationError from a single problem.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// CoercionWarning records a cell that could not be coerced to its column's
// type and was treated as missing.
type CoercionWarning struct {
	Row    int
	Column string
	Value  string
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("row %d: %s=%q treated as missing", w.Row, w.Column, w.Value)
}
