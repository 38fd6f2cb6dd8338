package models

import (
	"fmt"
	"strings"
)

// NotFoundError indicates that an issue key does not exist in the tracker.
// It is recoverable: the orchestrator skips the affected item and continues.
type NotFoundError struct {
	// Key is the issue key that could not be found.
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("issue %s not found", e.Key)
}

// TransportError indicates a network or API failure talking to an external
// service. It is recoverable: the orchestrator skips the affected item with
// a warning and continues.
type TransportError struct {
	// Op names the failed operation, e.g. "jira.AddComment".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates missing required configuration. It is fatal:
// the run aborts before any side effect is performed.
type ConfigurationError struct {
	// Missing lists the environment variables that were not set.
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required environment variables: [%s]", strings.Join(e.Missing, " "))
}
