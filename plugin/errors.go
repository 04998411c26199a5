package plugin

import (
	"errors"
	"fmt"
)

// ErrEmptyRegistry is returned by Load when no plugin could be loaded.
var ErrEmptyRegistry = errors.New("no plugins were loaded; ensure manifest files are valid")

var (
	// ErrMissingManifest marks a unit without manifest.json or manifest.toml.
	ErrMissingManifest = errors.New("missing manifest.json")
	// ErrUnknownFunction marks a manifest whose execution_function is not in the catalog.
	ErrUnknownFunction = errors.New("execution function is invalid")
	// ErrParameterMismatch marks a schema that does not fit the bound function.
	ErrParameterMismatch = errors.New("input_schema does not match function parameters")
	// ErrDuplicateName marks a unit whose name was already loaded.
	ErrDuplicateName = errors.New("duplicate plugin name")
)

// ManifestValidationError reports a manifest that is structurally invalid.
type ManifestValidationError struct {
	Message string
}

func (e *ManifestValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ManifestValidationError{Message: fmt.Sprintf(format, args...)}
}

// LoadError describes why a single plugin unit was skipped.
type LoadError struct {
	Unit string // unit directory name
	Path string // unit directory path inside the plugin filesystem
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin '%s' skipped: %v", e.Unit, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
