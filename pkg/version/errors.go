// ABOUTME: Error taxonomy for the versioning plugin
// ABOUTME: Configuration, precondition and lookup failures

package version

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized means no version store is registered on the application
	ErrNotInitialized = errors.New("version service not initialized")

	// ErrAlreadyInitialized means the application already has a version store
	ErrAlreadyInitialized = errors.New("version service already initialized")

	// ErrSelfReference means a caller tried to version the version store itself
	ErrSelfReference = errors.New("cannot add a version of a version document")
)

// ConfigError reports an invalid setup value. It is raised at setup time,
// never while recording.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// LookupError reports bad arguments to GetVersion
type LookupError struct {
	Message string
}

func (e *LookupError) Error() string {
	return "GetVersion needs " + e.Message
}
