package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shorui/data/db/jobs.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/shorui/data/indices/bleve"
	}
	if cfg.Analysis.Backend == "" {
		cfg.Analysis.Backend = BackendLocal
	}
	if cfg.Analysis.APIVersion == "" {
		cfg.Analysis.APIVersion = "2023-07-31"
	}
	if cfg.Analysis.PollInterval.Duration == 0 {
		cfg.Analysis.PollInterval.Duration = time.Second
	}
	if cfg.Analysis.MaxWait.Duration == 0 {
		cfg.Analysis.MaxWait.Duration = 2 * time.Minute
	}
	if cfg.Analysis.RequestTimeout.Duration == 0 {
		cfg.Analysis.RequestTimeout.Duration = 30 * time.Second
	}
	if cfg.Search.DefaultTop == 0 {
		cfg.Search.DefaultTop = 10
	}
	if cfg.Search.MaxTop == 0 {
		cfg.Search.MaxTop = 1000
	}
	if cfg.Search.FacetCount == 0 {
		cfg.Search.FacetCount = 10
	}
	if cfg.Search.SuggestCount == 0 {
		cfg.Search.SuggestCount = 5
	}
	if cfg.Search.QueryTimeout.Duration == 0 {
		cfg.Search.QueryTimeout.Duration = 10 * time.Second
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = 256
	}
	if cfg.Pipeline.ProcessTimeout.Duration == 0 {
		cfg.Pipeline.ProcessTimeout.Duration = 3 * time.Minute
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".pdf", ".docx", ".xlsx", ".txt"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
