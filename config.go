package mite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultConfigFileName is the name of the config file BootstrapDirectory
// looks for in the migrations directory
const DefaultConfigFileName = "mite.config"

// Config holds the two settings needed to pick and connect a backend.
type Config struct {
	// RepositoryName is the backend's short name (matched case-insensitively)
	// or its fully-qualified name.
	RepositoryName string

	// ConnectionString is handed to the backend's Factory untouched.
	ConnectionString string
}

// ParseConfig reads a JSON object with the keys repositoryName and
// connectionString. Both are required. A leading UTF-8 byte order mark is
// ignored.
func ParseConfig(raw string) (Config, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	if !gjson.Valid(raw) {
		return Config{}, &ConfigError{Err: ErrMalformedConfig}
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return Config{}, &ConfigError{Err: ErrMalformedConfig}
	}

	cfg := Config{
		RepositoryName:   doc.Get("repositoryName").String(),
		ConnectionString: doc.Get("connectionString").String(),
	}
	if cfg.RepositoryName == "" {
		return cfg, &ConfigError{Field: "repositoryName", Err: ErrMissingField}
	}
	if cfg.ConnectionString == "" {
		return cfg, &ConfigError{Field: "connectionString", Err: ErrMissingField}
	}
	return cfg, nil
}

// ReadConfigFile returns the contents of the named config file inside dir.
// A missing file is reported as ErrArtifactNotFound.
func ReadConfigFile(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("%w: %s is not contained in the directory specified", ErrArtifactNotFound, path)
	}
	if err != nil {
		return "", err
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config from '%s': %w", path, err)
	}
	return string(contents), nil
}
