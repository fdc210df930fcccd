// Package pipeline takes submitted documents through detection, analysis, validation, and indexing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
	"github.com/hyperjump/shorui/internal/storage"
)

var (
	ErrMissingOrganization = errors.New("organizationId is required")
	ErrEmptyDocument       = errors.New("document is empty")
	ErrClosed              = errors.New("pipeline is shutting down")
)

// Detector guesses a document's category.
type Detector interface {
	Detect(ctx context.Context, content []byte, fileName string) models.Detection
}

// Analyzer runs the category-specific analysis model.
type Analyzer interface {
	Analyze(ctx context.Context, content []byte, hint string, opts analysis.Options) (*models.AnalyzeResult, error)
}

// Validator scores an extraction against its category's expected fields.
type Validator interface {
	Validate(result *models.AnalyzeResult, categoryKey string) models.ValidationVerdict
}

// Indexer writes entries to the search index.
type Indexer interface {
	IndexOne(ctx context.Context, entry *models.SearchIndexEntry) error
}

// SubmitRequest is a document handed to the pipeline.
type SubmitRequest struct {
	Content        []byte
	OrganizationID string
	ClientID       string
	CategoryHint   string
	FileName       string
	// DocumentID is the index id; a random id is used when empty.
	DocumentID string
	// Force indexes the document even when validation fails.
	Force bool
}

// Analysis is the synchronous outcome of AnalyzeDocument.
type Analysis struct {
	Category  string                   `json:"category"`
	Detection *models.Detection        `json:"detection,omitempty"`
	Result    *models.AnalyzeResult    `json:"result"`
	Verdict   models.ValidationVerdict `json:"verdict"`
}

type task struct {
	job     *models.Job
	content []byte
}

// Service owns the job store and a fixed pool of workers reading a bounded queue.
type Service struct {
	jobs      storage.JobStore
	detector  Detector
	analyzer  Analyzer
	validator Validator
	indexer   Indexer

	logger  *zap.Logger
	workers int
	timeout time.Duration
	now     func() time.Time

	ch   chan task
	wg   sync.WaitGroup
	once sync.Once

	// quit is closed by Shutdown; senders tracks Submit calls that may still send on ch.
	quit    chan struct{}
	senders sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ch = make(chan task, n)
		}
	}
}

// WithProcessTimeout bounds the processing of one job.
func WithProcessTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. Workers start with Start.
func NewService(jobs storage.JobStore, detector Detector, analyzer Analyzer, validator Validator, indexer Indexer, opts ...Option) *Service {
	s := &Service{
		jobs:      jobs,
		detector:  detector,
		analyzer:  analyzer,
		validator: validator,
		indexer:   indexer,
		logger:    zap.NewNop(),
		workers:   4,
		timeout:   3 * time.Minute,
		now:       time.Now,
		ch:        make(chan task, 256),
		quit:      make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the workers. Calling it again has no effect.
func (s *Service) Start() {
	s.once.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go func(workerID int) {
				defer s.wg.Done()
				s.logger.Debug("worker started", zap.Int("worker_id", workerID))
				for t := range s.ch {
					ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
					s.process(ctx, t.job, t.content)
					cancel()
				}
				s.logger.Debug("worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

// Submit records a job for the document and queues it. It blocks while the queue is full
// until ctx is done.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Job, error) {
	if req.OrganizationID == "" {
		return nil, ErrMissingOrganization
	}
	if len(req.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}
	job := &models.Job{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		ClientID:       req.ClientID,
		CategoryHint:   req.CategoryHint,
		FileName:       req.FileName,
		DocumentID:     docID,
		Force:          req.Force,
		Status:         models.JobQueued,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.senders.Add(1)
	s.mu.Unlock()
	defer s.senders.Done()

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	snapshot := *job
	t := task{job: job, content: req.Content}
	select {
	case s.ch <- t:
	default:
		s.logger.Warn("queue full, applying backpressure", zap.String("job_id", job.ID))
		var reason error
		select {
		case s.ch <- t:
		case <-ctx.Done():
			reason = ctx.Err()
		case <-s.quit:
			reason = ErrClosed
		}
		if reason != nil {
			job.Status = models.JobFailed
			job.Error = "not queued: " + reason.Error()
			s.saveJob(context.WithoutCancel(ctx), job)
			return nil, fmt.Errorf("enqueue job %s: %w", job.ID, reason)
		}
	}
	s.logger.Info("queued document",
		zap.String("job_id", snapshot.ID),
		zap.String("org", snapshot.OrganizationID),
		zap.String("file", snapshot.FileName),
		zap.Bool("force", snapshot.Force))
	return &snapshot, nil
}

// Job returns a job of organizationID.
func (s *Service) Job(ctx context.Context, organizationID, id string) (*models.Job, error) {
	return s.jobs.GetJob(ctx, organizationID, id)
}

// Jobs lists an organization's jobs, newest first.
func (s *Service) Jobs(ctx context.Context, organizationID string, offset, limit int) ([]*models.Job, error) {
	return s.jobs.ListJobs(ctx, organizationID, offset, limit)
}

// AnalyzeDocument detects (when hint is empty), analyzes, and validates content without
// indexing or recording a job.
func (s *Service) AnalyzeDocument(ctx context.Context, content []byte, hint, fileName string) (*Analysis, error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}
	out := &Analysis{Category: hint}
	if hint == "" {
		d := s.detector.Detect(ctx, content, fileName)
		out.Detection = &d
		out.Category = d.DetectedCategory
	}
	res, err := s.analyzer.Analyze(ctx, content, out.Category, analysis.Options{FileName: fileName})
	if err != nil {
		return nil, err
	}
	out.Result = res
	out.Verdict = s.validator.Validate(res, out.Category)
	return out, nil
}

// process runs one job to a terminal status. Indexing only happens after validation.
func (s *Service) process(ctx context.Context, job *models.Job, content []byte) {
	start := time.Now()
	category := job.CategoryHint
	if category == "" {
		s.setStatus(ctx, job, models.JobDetecting)
		d := s.detector.Detect(ctx, content, job.FileName)
		category = d.DetectedCategory
		job.DetectedCategory = category
	}

	s.setStatus(ctx, job, models.JobAnalyzing)
	res, err := s.analyzer.Analyze(ctx, content, category, analysis.Options{FileName: job.FileName})
	if err != nil {
		s.fail(ctx, job, err)
		return
	}
	job.Result = res

	s.setStatus(ctx, job, models.JobValidating)
	verdict := s.validator.Validate(res, category)
	job.Verdict = &verdict
	if !verdict.IsValid && !job.Force {
		s.setStatus(ctx, job, models.JobNeedsReview)
		s.logger.Info("document needs review",
			zap.String("job_id", job.ID),
			zap.Strings("missing", verdict.MissingFields),
			zap.Float64("score", verdict.ValidationScore))
		return
	}

	s.setStatus(ctx, job, models.JobIndexing)
	entry := BuildEntry(EntryInput{
		DocumentID:     job.DocumentID,
		OrganizationID: job.OrganizationID,
		ClientID:       job.ClientID,
		FileName:       job.FileName,
		Category:       categoryOrGeneral(category),
		Content:        content,
		Result:         res,
		Verdict:        verdict,
		UploadedAt:     s.now(),
	})
	if err := s.indexer.IndexOne(ctx, entry); err != nil {
		s.fail(ctx, job, err)
		return
	}
	s.setStatus(ctx, job, models.JobIndexed)
	s.logger.Info("document indexed",
		zap.String("job_id", job.ID),
		zap.String("document_id", job.DocumentID),
		zap.String("category", entry.Category),
		zap.Duration("elapsed", time.Since(start)))
}

func categoryOrGeneral(c string) string {
	if c == "" || c == registry.CategoryUnknown {
		return registry.CategoryGeneral
	}
	return c
}

func (s *Service) setStatus(ctx context.Context, job *models.Job, status models.JobStatus) {
	job.Status = status
	s.saveJob(ctx, job)
}

func (s *Service) fail(ctx context.Context, job *models.Job, err error) {
	s.logger.Error("processing failed", zap.String("job_id", job.ID), zap.Error(err))
	job.Status = models.JobFailed
	job.Error = err.Error()
	s.saveJob(context.WithoutCancel(ctx), job)
}

func (s *Service) saveJob(ctx context.Context, job *models.Job) {
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		s.logger.Warn("failed to record job status",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.Error(err))
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.senders.Wait()
		close(s.ch)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("shutdown interrupted by context")
	case <-done:
		s.logger.Info("queue drained, shutdown complete")
	}
}
