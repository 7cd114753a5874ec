package mite

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a required config field is absent or
	// empty
	ErrMissingField = errors.New("required field is missing")

	// ErrMalformedConfig is returned when the config payload is not a JSON
	// object
	ErrMalformedConfig = errors.New("config is not a JSON object")

	// ErrArtifactNotFound is returned when the config file is not contained
	// in the directory specified
	ErrArtifactNotFound = errors.New("config file not found")

	// ErrBackendNotFound is returned when no backend could be resolved for
	// the configured repositoryName
	ErrBackendNotFound = errors.New("could not load repository")

	// ErrNilBackend is thrown when the backend is nil
	ErrNilBackend = errors.New("backend is nil")

	// ErrNilDB is thrown when the database pointer is nil
	ErrNilDB = errors.New("DB pointer is nil")

	// ErrNilDialect is thrown when an SQLBackend has no Dialect
	ErrNilDialect = errors.New("dialect is nil")
)

// ConfigError reports an invalid configuration payload. Field names the
// offending key when the problem is a missing value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %s", e.Err)
	}
	return fmt.Sprintf("invalid config: %s is required", e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ResolutionError reports that neither a discovered candidate nor the
// qualified-name fallback matched the requested backend name. Err holds the
// fallback's failure when it got as far as opening a module.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", ErrBackendNotFound, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrBackendNotFound, e.Name)
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBackendNotFound, e.Err}
	}
	return []error{ErrBackendNotFound}
}

// InstantiationError wraps a failure to construct the resolved backend.
type InstantiationError struct {
	Name string
	Err  error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to construct backend '%s': %s", e.Name, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleLoadError reports a plugin module which could not be loaded during
// discovery.
type ModuleLoadError struct {
	Path string
	Err  error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("failed to load backend module '%s': %s", e.Path, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}
