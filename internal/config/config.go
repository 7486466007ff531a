// Package config loads notionspec settings from a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Configuration errors.
var (
	ErrMissingToken  = errors.New("NOTION_TOKEN is not set")
	ErrMissingParent = errors.New("PARENT_PAGE_ID is not set")
)

// Config holds the settings shared by all commands.
type Config struct {
	Token        string `env:"NOTION_TOKEN"`
	ParentPageID string `env:"PARENT_PAGE_ID"`
	SpecFile     string `env:"NOTION_SPEC_FILE" envDefault:"digital_office_schema_spec.yaml"`
	IDsFile      string `env:"NOTION_IDS_FILE" envDefault:"notion-ids.json"`
	JournalFile  string `env:"NOTION_JOURNAL_FILE" envDefault:"notion-seed.jsonl"`
	BackupDir    string `env:"NOTION_BACKUP_DIR" envDefault:"notion-backup"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the .env file at dotEnvPath, when present, then the process
// environment. Variables set in the process environment win.
func Load(dotEnvPath string) (*Config, error) {
	vars, err := LoadDotEnv(dotEnvPath)
	if err != nil {
		return nil, err
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return Parse(vars)
}

// Parse builds a Config from vars.
func Parse(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RequireToken returns ErrMissingToken when no token is configured.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// RequireParent returns ErrMissingParent when no parent page is configured.
func (c *Config) RequireParent() error {
	if c.ParentPageID == "" {
		return ErrMissingParent
	}
	return nil
}

// LoadDotEnv parses a .env file. A missing file yields an empty map.
//
// Values may be wrapped in double quotes, which are unquoted with Go
// syntax. Single quoted values are rejected.
func LoadDotEnv(path string) (map[string]string, error) {
	vars := make(map[string]string)
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the working directory
	if err != nil {
		if os.IsNotExist(err) {
			return vars, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", key)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", key)
		}

		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}

		vars[key] = val
	}
	return vars, nil
}
