package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxWait      = 2 * time.Minute
)

// Options tune a single analysis call.
type Options struct {
	Pages    string
	Locale   string
	FileName string
}

// Engine runs the submit/poll cycle against a Backend. It holds no per-call state.
type Engine struct {
	backend      Backend
	registry     *registry.Registry
	clock        Clock
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used for poll waits and timing.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithPollInterval sets the wait between polls when the backend gives no Retry-After.
func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithMaxWait bounds the total time spent waiting on one operation.
func WithMaxWait(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.maxWait = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine. reg resolves category hints to model ids.
func NewEngine(backend Backend, reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:      backend,
		registry:     reg,
		clock:        SystemClock(),
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine resolves hints with.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Analyze resolves hint to a model, falling back to the generic model, and analyzes content with it.
func (e *Engine) Analyze(ctx context.Context, content []byte, hint string, opts Options) (*models.AnalyzeResult, error) {
	return e.AnalyzeWithModel(ctx, content, e.registry.ModelFor(hint), opts)
}

// AnalyzeWithModel submits content to modelID and waits for the result.
// It returns an error wrapping ErrTimeout when maxWait elapses, the context error when ctx
// is cancelled, and a *BackendError for everything the backend reports.
func (e *Engine) AnalyzeWithModel(ctx context.Context, content []byte, modelID string, opts Options) (*models.AnalyzeResult, error) {
	if len(content) == 0 {
		return nil, &BackendError{Op: "submit", ModelID: modelID, Message: "empty document"}
	}
	start := e.clock.Now()
	deadline := start.Add(e.maxWait)

	op, err := e.backend.Submit(ctx, SubmitRequest{
		ModelID:  modelID,
		Content:  content,
		FileName: opts.FileName,
		Pages:    opts.Pages,
		Locale:   opts.Locale,
	})
	if err != nil {
		return nil, e.wrapErr(ctx, "submit", modelID, err)
	}
	e.logger.Debug("analysis submitted", zap.String("model", modelID), zap.String("operation", op.ID))

	wait := e.pollInterval
	polls := 0
	for {
		remaining := deadline.Sub(e.clock.Now())
		if remaining <= 0 {
			e.logger.Warn("analysis timed out",
				zap.String("model", modelID),
				zap.String("operation", op.ID),
				zap.Int("polls", polls),
				zap.Duration("max_wait", e.maxWait))
			return nil, fmt.Errorf("analyze %s: waited %s: %w", modelID, e.maxWait, ErrTimeout)
		}
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, e.ctxErr(ctx, modelID)
		case <-e.clock.After(wait):
		}

		polls++
		res, err := e.backend.Poll(ctx, op)
		if err != nil {
			return nil, e.wrapErr(ctx, "poll", modelID, err)
		}
		switch res.Status {
		case StatusSucceeded:
			if res.Result == nil {
				return nil, &BackendError{Op: "poll", ModelID: modelID, Err: ErrNoResult}
			}
			now := e.clock.Now()
			out := Normalize(res.Result, modelID, e.registry, now, now.Sub(start))
			e.logger.Debug("analysis succeeded",
				zap.String("model", modelID),
				zap.Int("polls", polls),
				zap.Float64("confidence", out.Confidence),
				zap.Int64("elapsed_ms", out.Metadata.ProcessingTimeMs))
			return out, nil
		case StatusFailed:
			be := &BackendError{Op: "poll", ModelID: modelID, Message: "operation failed"}
			if res.Error != nil {
				be.Code = res.Error.Code
				be.Message = res.Error.Message
			}
			return nil, be
		default:
			wait = e.pollInterval
			if res.RetryAfter > 0 {
				wait = res.RetryAfter
			}
		}
	}
}

func (e *Engine) ctxErr(ctx context.Context, modelID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("analyze %s: %w: %w", modelID, ErrTimeout, ctx.Err())
	}
	return fmt.Errorf("analyze %s: %w", modelID, ctx.Err())
}

// wrapErr keeps context errors distinct from backend failures.
func (e *Engine) wrapErr(ctx context.Context, op, modelID string, err error) error {
	if ctx.Err() != nil {
		return e.ctxErr(ctx, modelID)
	}
	if IsBackendError(err) {
		return err
	}
	return &BackendError{Op: op, ModelID: modelID, Err: err}
}
