package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAPIVersion is the REST api-version sent when none is configured.
const DefaultAPIVersion = "2023-07-31"

const (
	headerAPIKey            = "Ocp-Apim-Subscription-Key"
	headerOperationLocation = "Operation-Location"
	headerRetryAfter        = "Retry-After"
	headerRequestID         = "x-ms-client-request-id"
)

// HTTPBackend talks to a Form Recognizer style REST service:
// POST {endpoint}/formrecognizer/documentModels/{model}:analyze returns 202 and an
// Operation-Location that is polled with GET until it succeeds or fails.
type HTTPBackend struct {
	endpoint   string
	apiKey     string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

// HTTPOption configures an HTTPBackend.
type HTTPOption func(*HTTPBackend)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		if c != nil {
			b.client = c
		}
	}
}

func WithAPIVersion(v string) HTTPOption {
	return func(b *HTTPBackend) {
		if v != "" {
			b.apiVersion = v
		}
	}
}

func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(b *HTTPBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewHTTPBackend creates a backend for endpoint authenticated with apiKey.
func NewHTTPBackend(endpoint, apiKey string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		apiVersion: DefaultAPIVersion,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type errorEnvelope struct {
	Error *RawError `json:"error"`
}

type operationBody struct {
	Status        string     `json:"status"`
	AnalyzeResult *RawResult `json:"analyzeResult"`
	Error         *RawError  `json:"error"`
}

// Submit posts the document bytes and returns the operation location as the handle.
func (b *HTTPBackend) Submit(ctx context.Context, req SubmitRequest) (Operation, error) {
	q := url.Values{}
	q.Set("api-version", b.apiVersion)
	if req.Pages != "" {
		q.Set("pages", req.Pages)
	}
	if req.Locale != "" {
		q.Set("locale", req.Locale)
	}
	u := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?%s",
		b.endpoint, url.PathEscape(req.ModelID), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(req.Content))
	if err != nil {
		return Operation{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, body, err := b.do(httpReq, req.ModelID)
	if err != nil {
		return Operation{}, &BackendError{Op: "submit", ModelID: req.ModelID, Err: err}
	}
	if resp.StatusCode != http.StatusAccepted {
		return Operation{}, b.statusError("submit", req.ModelID, resp.StatusCode, body)
	}
	loc := resp.Header.Get(headerOperationLocation)
	if loc == "" {
		return Operation{}, &BackendError{Op: "submit", ModelID: req.ModelID, Status: resp.StatusCode, Message: "missing Operation-Location header"}
	}
	return Operation{ID: operationID(loc), ModelID: req.ModelID, Location: loc}, nil
}

// Poll fetches the operation state once.
func (b *HTTPBackend) Poll(ctx context.Context, op Operation) (PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, op.Location, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("build request: %w", err)
	}
	resp, body, err := b.do(httpReq, op.ModelID)
	if err != nil {
		return PollResult{}, &BackendError{Op: "poll", ModelID: op.ModelID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return PollResult{}, b.statusError("poll", op.ModelID, resp.StatusCode, body)
	}

	var ob operationBody
	if err := json.Unmarshal(body, &ob); err != nil {
		return PollResult{}, &BackendError{Op: "poll", ModelID: op.ModelID, Status: resp.StatusCode, Err: fmt.Errorf("decode operation: %w", err)}
	}
	res := PollResult{RetryAfter: retryAfter(resp.Header.Get(headerRetryAfter))}
	switch strings.ToLower(ob.Status) {
	case "succeeded":
		res.Status = StatusSucceeded
		res.Result = ob.AnalyzeResult
	case "failed", "canceled":
		res.Status = StatusFailed
		res.Error = ob.Error
	default:
		res.Status = StatusRunning
	}
	return res, nil
}

func (b *HTTPBackend) do(req *http.Request, modelID string) (*http.Response, []byte, error) {
	reqID := uuid.New().String()
	req.Header.Set(headerAPIKey, b.apiKey)
	req.Header.Set(headerRequestID, reqID)
	start := time.Now()

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("analysis request failed",
			zap.String("req_id", reqID),
			zap.String("method", req.Method),
			zap.String("model", modelID),
			zap.Error(err))
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	b.logger.Debug("analysis response",
		zap.String("req_id", reqID),
		zap.String("method", req.Method),
		zap.String("model", modelID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, body, nil
}

func (b *HTTPBackend) statusError(op, modelID string, status int, body []byte) *BackendError {
	be := &BackendError{Op: op, ModelID: modelID, Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		be.Code = env.Error.Code
		be.Message = env.Error.Message
	} else {
		be.Message = strings.TrimSpace(string(body))
	}
	return be
}

// operationID takes the last path segment of an operation location.
func operationID(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
