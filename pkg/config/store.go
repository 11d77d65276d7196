package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "quickapply.yaml"

// Environment variables that override the file. The DICE_* names are kept
// for setups that already export them.
const (
	EnvEmail       = "QUICKAPPLY_EMAIL"
	EnvPassword    = "QUICKAPPLY_PASSWORD"
	EnvStoragePath = "QUICKAPPLY_STORAGE_PATH"
	EnvOutputDir   = "QUICKAPPLY_OUTPUT_DIR"
	EnvDBPath      = "QUICKAPPLY_DB_PATH"

	EnvDiceEmail    = "DICE_EMAIL"
	EnvDicePassword = "DICE_PASSWORD"
)

// LookupFunc reads an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path on top of DefaultConfig, applies
// environment overrides from os.LookupEnv and validates the result. A
// missing file is not an error; the defaults are used.
func Load(fs afero.Fs, path string) (*Config, error) {
	return LoadWithEnv(fs, path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(fs afero.Fs, path string, lookup LookupFunc) (*Config, error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No file yet, use defaults
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) {
	first := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := first(EnvEmail, EnvDiceEmail); ok {
		c.Credentials.Email = strings.TrimSpace(v)
	}
	if v, ok := first(EnvPassword, EnvDicePassword); ok {
		c.Credentials.Password = v
	}
	if v, ok := first(EnvStoragePath); ok {
		c.SessionStoragePath = v
	}
	if v, ok := first(EnvOutputDir); ok {
		c.EvidenceOutputDir = v
	}
	if v, ok := first(EnvDBPath); ok {
		c.HistoryDBPath = v
	}
}

// Save writes cfg as YAML to path. The write goes to a temp file that is
// renamed into place.
func Save(fs afero.Fs, path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := afero.WriteFile(fs, tempPath, buf.Bytes(), 0o600); err != nil {
		fs.Remove(tempPath)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := fs.Rename(tempPath, path); err != nil {
		fs.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
