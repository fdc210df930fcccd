// Package main is the shorui CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/shorui/internal/cli"
	"github.com/hyperjump/shorui/internal/config"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/server"
	"github.com/hyperjump/shorui/internal/storage"
	"github.com/hyperjump/shorui/internal/watcher"
	"github.com/hyperjump/shorui/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shorui/config.yaml"

// loadConfig loads config from path. When path is the default and config.yaml exists in
// the current directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "search":
		runSearch()
	case "jobs":
		runJobs()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shorui version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`shorui - document intelligence and tenant-scoped search

Usage:
  shorui server  [-config path] [-debug]
  shorui analyze [-config path] [-category key] [-output text|json] <file>
  shorui search  -org <id> [flags] <query>
  shorui jobs    -org <id> [-server url] [-limit n] [-output text|json]
  shorui status  [-server url] [-output text|json]
  shorui version
`)
}

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	logger, err := utils.NewLogger(cfg.Debug || debug, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func inboxes(cfg *config.InboxConfig) []watcher.Inbox {
	out := make([]watcher.Inbox, 0, len(cfg.Directories))
	for _, d := range cfg.Directories {
		out = append(out, watcher.Inbox{
			Path:           d.Path,
			OrganizationID: d.OrganizationID,
			ClientID:       d.ClientID,
			Category:       d.Category,
		})
	}
	return out
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("analysis_backend", cfg.Analysis.Backend),
		zap.Int("inboxes", len(cfg.Inbox.Directories)),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	components.Pipeline.Start()

	deps := server.Deps{
		Search:   components.Search,
		Indexer:  components.Indexer,
		Pipeline: components.Pipeline,
		Detector: components.Detector,
		Registry: components.Registry,
		Jobs:     components.Jobs,
		Storage:  &cfg.Storage,
	}

	var inboxWatcher *watcher.Watcher
	if len(cfg.Inbox.Directories) > 0 {
		ingest := watcher.NewIngest(components.Pipeline, components.Indexer, logger)
		inboxWatcher, err = watcher.New(inboxes(&cfg.Inbox), cfg.Inbox.Extensions, ingest,
			watcher.WithLogger(logger),
			watcher.WithRecursive(cfg.Inbox.RecursiveOrDefault()),
		)
		if err != nil {
			logger.Fatal("Failed to create inbox watcher", zap.Error(err))
		}
		deps.Inboxes = inboxWatcher
	}

	srv := server.NewServer(deps, &cfg.Server, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if inboxWatcher != nil {
		g.Go(func() error { return inboxWatcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		components.Pipeline.Shutdown(shutdownCtx)
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	category := fs.String("category", "", "category hint (skips detection), e.g. invoice or w2")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: shorui analyze [flags] <file>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()

	components, err := initializeAnalysis(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out, err := components.Pipeline.AnalyzeDocument(ctx, content, *category, filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnalysis(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. The flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shorui search -org <id> [flags] <query>\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  shorui search -org acme consulting invoice
  shorui search -org acme -category w2 -year 2023 "federal income tax"
  shorui search -org acme -facets category,year -semantic what was withheld
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the index directly)")
	org := fs.String("org", "", "organization id (required)")
	client := fs.String("client", "", "client id filter")
	category := fs.String("category", "", "category filter")
	year := fs.Int("year", 0, "year filter")
	tags := fs.String("tags", "", "comma-separated tags; any match")
	facets := fs.String("facets", "", "comma-separated facet specs, e.g. category,year,count:5")
	orderBy := fs.String("order-by", "", "comma-separated sort clauses, e.g. uploadedAt desc")
	top := fs.Int("top", 10, "number of results")
	pageToken := fs.String("page-token", "", "continue from a previous page")
	all := fs.Bool("all", false, "require every query term (search mode all)")
	full := fs.Bool("full", false, "parse the query with the full query syntax")
	semantic := fs.Bool("semantic", false, "semantic re-ranking with captions and answers")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if *org == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := models.SearchOptions{
		Query: buildSearchQuery(fs.Args()),
		Filters: &models.SearchFilters{
			OrganizationID: *org,
			ClientID:       *client,
			Category:       *category,
			Tags:           splitList(*tags),
		},
		Facets:    splitList(*facets),
		OrderBy:   splitList(*orderBy),
		Top:       *top,
		PageToken: *pageToken,
	}
	if *year > 0 {
		opts.Filters.Year = year
	}
	if *all {
		opts.SearchMode = models.SearchModeAll
	}
	switch {
	case *semantic:
		opts.QueryType = models.QueryTypeSemantic
		opts.Semantic = &models.SemanticOptions{Captions: true, Answers: true}
	case *full:
		opts.QueryType = models.QueryTypeFull
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The server holds the index lock, so go through its API when it is running.
		response, err = searchViaHTTP(*serverURL, opts)
	} else {
		response, err = searchDirect(*configPath, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, opts models.SearchOptions) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Search.Search(context.Background(), opts)
}

// apiCall sends body (when non-nil) as JSON and decodes a 2xx response into out.
func apiCall(method, u string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, u, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func searchViaHTTP(serverURL string, opts models.SearchOptions) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := apiCall(http.MethodPost, serverURL+"/api/v1/search", opts, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func runJobs() {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	org := fs.String("org", "", "organization id (required)")
	limit := fs.Int("limit", 20, "number of jobs")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *org == "" {
		fmt.Println("Usage: shorui jobs -org <id> [flags]")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	q := url.Values{}
	q.Set("organizationId", *org)
	q.Set("limit", fmt.Sprint(*limit))
	var out struct {
		Jobs []*models.Job `json:"jobs"`
	}
	if err := apiCall(http.MethodGet, *serverURL+"/api/v1/jobs?"+q.Encode(), nil, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Listing jobs failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteJobs(os.Stdout, out.Jobs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of the GET /api/v1/stats response.
type statusResponse struct {
	Index models.IndexStatistics     `json:"index"`
	Jobs  map[models.JobStatus]int64 `json:"jobs,omitempty"`
	Disk  *storage.Usage             `json:"disk,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status statusResponse
	if *serverURL != "" {
		if err := apiCall(http.MethodGet, *serverURL+"/api/v1/stats", nil, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		s, err := statusDirect(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *s
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Printf("documents:          %d   # entries in the search index\n", status.Index.DocumentCount)
	fmt.Printf("index_size_bytes:   %d\n", status.Index.StorageSizeBytes)
	if status.Disk != nil {
		fmt.Printf("database_bytes:     %d   # job database incl. WAL\n", status.Disk.DatabaseBytes)
		fmt.Printf("disk_usage_bytes:   %d   # job database + index on disk\n", status.Disk.Total())
	}
	if len(status.Jobs) > 0 {
		fmt.Println()
		fmt.Println("# jobs")
		for _, s := range []models.JobStatus{
			models.JobQueued, models.JobDetecting, models.JobAnalyzing, models.JobValidating,
			models.JobIndexing, models.JobIndexed, models.JobNeedsReview, models.JobFailed,
		} {
			if n, ok := status.Jobs[s]; ok {
				fmt.Printf("%-19s %d\n", string(s)+":", n)
			}
		}
	}
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	ctx := context.Background()
	stats, err := components.Indexer.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := components.Jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{Index: stats, Jobs: byStatus}
	if usage, err := storage.MeasureUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		status.Disk = &usage
	}
	return status, nil
}
