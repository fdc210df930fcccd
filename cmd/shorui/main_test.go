package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/config"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"consulting invoice", "-org", "acme"},
			expected: []string{"-org", "acme", "consulting invoice"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-org", "acme", "consulting invoice"},
			expected: []string{"-org", "acme", "consulting invoice"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"consulting invoice"},
			expected: []string{"consulting invoice"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-top", "5"},
			expected: []string{"-top", "5", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"invoice"}, "invoice"},
		{"multiple words", []string{"federal", "tax"}, "federal tax"},
		{"single quoted phrase", []string{"federal tax"}, "federal tax"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" category, year ,,count:5 ")
	want := []string{"category", "year", "count:5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

func TestNewBackend(t *testing.T) {
	b, err := newBackend(&config.AnalysisConfig{Backend: config.BackendLocal}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*analysis.LocalBackend); !ok {
		t.Errorf("local backend: got %T", b)
	}
	b, err = newBackend(&config.AnalysisConfig{Backend: config.BackendHTTP, Endpoint: "https://example.test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*analysis.HTTPBackend); !ok {
		t.Errorf("http backend: got %T", b)
	}
	if _, err := newBackend(&config.AnalysisConfig{Backend: "grpc"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestInitializeComponents(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "jobs.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "index.bleve")

	c, err := initializeComponents(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Search == nil || c.Indexer == nil || c.Pipeline == nil || c.Jobs == nil {
		t.Fatalf("components not wired: %+v", c)
	}
	stats, err := c.Indexer.Statistics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentCount != 0 {
		t.Errorf("document count = %d, want 0", stats.DocumentCount)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}
