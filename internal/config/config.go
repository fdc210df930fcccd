// Package config provides configuration loading and structs for the shorui server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides analysis.api_key so the key can stay out of config files.
const APIKeyEnv = "SHORUI_ANALYSIS_API_KEY"

// Analysis backends.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Search   SearchConfig   `yaml:"search"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Inbox    InboxConfig    `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the job database and the search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// AnalysisConfig selects and tunes the document analysis backend.
type AnalysisConfig struct {
	Backend        string   `yaml:"backend"`
	Endpoint       string   `yaml:"endpoint"`
	APIKey         string   `yaml:"api_key"`
	APIVersion     string   `yaml:"api_version"`
	PollInterval   Duration `yaml:"poll_interval"`
	MaxWait        Duration `yaml:"max_wait"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// SearchConfig holds query defaults and limits.
type SearchConfig struct {
	DefaultTop   int      `yaml:"default_top"`
	MaxTop       int      `yaml:"max_top"`
	FacetCount   int      `yaml:"facet_count"`
	SuggestCount int      `yaml:"suggest_count"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// PipelineConfig sizes the intake worker pool.
type PipelineConfig struct {
	Workers        int      `yaml:"workers"`
	QueueSize      int      `yaml:"queue_size"`
	ProcessTimeout Duration `yaml:"process_timeout"`
}

// InboxConfig holds watched inbox directories.
type InboxConfig struct {
	Extensions  []string         `yaml:"extensions"`
	Recursive   *bool            `yaml:"recursive"`
	Directories []InboxDirectory `yaml:"directories"`
}

// InboxDirectory binds a directory to the tenant its files are submitted for.
type InboxDirectory struct {
	Path           string `yaml:"path"`
	OrganizationID string `yaml:"organization_id"`
	ClientID       string `yaml:"client_id,omitempty"`
	Category       string `yaml:"category,omitempty"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (c *InboxConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// Duration is a time.Duration written in YAML as a string such as "1s" or "2m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Analysis.APIKey = key
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i].Path = expandPath(cfg.Inbox.Directories[i].Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Analysis.Backend {
	case BackendLocal:
	case BackendHTTP:
		if c.Analysis.Endpoint == "" {
			errs = append(errs, errors.New("analysis.endpoint is required for the http backend"))
		}
		if c.Analysis.APIKey == "" {
			errs = append(errs, fmt.Errorf("analysis.api_key (or %s) is required for the http backend", APIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analysis.backend %q", c.Analysis.Backend))
	}
	if c.Search.DefaultTop > c.Search.MaxTop {
		errs = append(errs, fmt.Errorf("search.default_top %d exceeds search.max_top %d", c.Search.DefaultTop, c.Search.MaxTop))
	}
	for i, d := range c.Inbox.Directories {
		if d.Path == "" {
			errs = append(errs, fmt.Errorf("inbox.directories[%d].path is required", i))
		}
		if d.OrganizationID == "" {
			errs = append(errs, fmt.Errorf("inbox.directories[%d].organization_id is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
