package plugin

import (
	"errors"
	"fmt"
)

// ErrRegistryFrozen is returned by register calls after Freeze.
var ErrRegistryFrozen = errors.New("plugin: registry is frozen")

// ErrReported marks a failure whose message the command already printed.
var ErrReported = errors.New("plugin: failure already reported")

// InvalidMetadataError reports a metadata block that failed validation.
type InvalidMetadataError struct {
	Kind   string
	Plugin string
	Field  string
	Reason string
}

func (e *InvalidMetadataError) Error() string {
	if e.Plugin == "" {
		return fmt.Sprintf("plugin: invalid %s metadata: %s %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("plugin: invalid %s metadata for %s: %s %s", e.Kind, e.Plugin, e.Field, e.Reason)
}

// UnknownOptionError is returned when a module has no option by that key.
type UnknownOptionError struct {
	Key string
}

func (e *UnknownOptionError) Error() string {
	return "Unknown module option: " + e.Key
}

// UserError is a failure caused by user input. The execution boundary prints
// its message as a plain error line without a kind prefix.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// Failf builds a *UserError.
func Failf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}
