package config

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/pgbranch/pgbranch/internal/pkg/errors"
)

// Config file names checked per directory, in order.
var configFileNames = []string{".pgbranch.yml", ".pgbranch.yaml"}

// LocalOverlayFileName is the git-ignorable per-developer override file.
const LocalOverlayFileName = ".pgbranch.local.yml"

// FindConfigFile walks from startDir upward to the filesystem root looking
// for .pgbranch.yml then .pgbranch.yaml in each directory. It returns the
// path of the first match, or "" when none exists. A missing config file is
// not an error; callers decide whether that is fatal.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to resolve start directory")
	}

	for {
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// fileConfig is the on-disk schema. It carries the deprecated
// current_branch key so that old files still parse; the value is discarded
// on load because branch state lives in the local state store now.
type fileConfig struct {
	Config `yaml:",inline"`

	// Deprecated: superseded by the local state store. Ignored.
	CurrentBranch *string `yaml:"current_branch"`
}

// LoadFile parses the config file at path. Fields absent from the file keep
// their built-in defaults. A malformed file is a fatal error carrying the
// file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to read config file").WithContext("path", path)
	}

	fc := fileConfig{Config: *Default()}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&fc); err != nil {
		return nil, apperrors.NewConfigParseError(path, err)
	}
	if fc.CurrentBranch != nil {
		apperrors.Debug("ignoring deprecated current_branch key in %s", path)
	}

	cfg := fc.Config
	return &cfg, nil
}

// Load discovers and parses the base configuration starting at startDir.
// It returns the configuration and the path it was loaded from; when no
// file is found the built-in defaults are returned with an empty path.
func Load(startDir string) (*Config, string, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		apperrors.Info("no .pgbranch file found, using default configuration")
		return Default(), "", nil
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Save writes the configuration to path in YAML form.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to serialize config")
	}
	if err := enc.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to serialize config")
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileSystemError, "failed to write config file").WithContext("path", path)
	}
	return nil
}
