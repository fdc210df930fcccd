package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/config"
	"github.com/hyperjump/shorui/internal/detect"
	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/indexer"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/internal/registry"
	"github.com/hyperjump/shorui/internal/search"
	"github.com/hyperjump/shorui/internal/storage"
	"github.com/hyperjump/shorui/internal/validate"
)

// Components holds initialized services.
type Components struct {
	Registry  *registry.Registry
	Analysis  *analysis.Engine
	Detector  *detect.Detector
	Validator *validate.Validator
	Jobs      *storage.SQLiteStorage
	Index     *index.BleveStore
	Indexer   *indexer.Indexer
	Search    *search.Engine
	Pipeline  *pipeline.Service
}

func (c *Components) Close() {
	if c.Jobs != nil {
		_ = c.Jobs.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// newBackend returns the analysis backend selected by cfg.
func newBackend(cfg *config.AnalysisConfig, logger *zap.Logger) (analysis.Backend, error) {
	switch cfg.Backend {
	case "", config.BackendLocal:
		return analysis.NewLocalBackend(logger), nil
	case config.BackendHTTP:
		return analysis.NewHTTPBackend(cfg.Endpoint, cfg.APIKey,
			analysis.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Duration}),
			analysis.WithAPIVersion(cfg.APIVersion),
			analysis.WithHTTPLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown analysis backend %q", cfg.Backend)
	}
}

// initializeAnalysis builds the components that do not touch storage: enough for the analyze command.
func initializeAnalysis(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	backend, err := newBackend(&cfg.Analysis, logger)
	if err != nil {
		return nil, err
	}
	reg := registry.Default()
	engine := analysis.NewEngine(backend, reg,
		analysis.WithPollInterval(cfg.Analysis.PollInterval.Duration),
		analysis.WithMaxWait(cfg.Analysis.MaxWait.Duration),
		analysis.WithLogger(logger),
	)
	c := &Components{
		Registry:  reg,
		Analysis:  engine,
		Detector:  detect.New(engine, reg, detect.WithLogger(logger)),
		Validator: validate.New(reg),
	}
	c.Pipeline = pipeline.NewService(nil, c.Detector, engine, c.Validator, nil, pipeline.WithLogger(logger))
	return c, nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c, err := initializeAnalysis(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Jobs, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}
	c.Index, err = index.Open(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	c.Indexer = indexer.NewIndexer(c.Index, indexer.WithLogger(logger))
	c.Search = search.NewEngine(c.Index,
		search.WithLogger(logger),
		search.WithLimits(cfg.Search.DefaultTop, cfg.Search.MaxTop),
		search.WithFacetCount(cfg.Search.FacetCount),
		search.WithSuggestCount(cfg.Search.SuggestCount),
		search.WithTimeout(cfg.Search.QueryTimeout.Duration),
	)
	c.Pipeline = pipeline.NewService(c.Jobs, c.Detector, c.Analysis, c.Validator, c.Indexer,
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithQueueSize(cfg.Pipeline.QueueSize),
		pipeline.WithProcessTimeout(cfg.Pipeline.ProcessTimeout.Duration),
	)
	return c, nil
}
