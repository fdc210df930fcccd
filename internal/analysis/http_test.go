package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shorui/internal/registry"
)

func newAnalyzeServer(t *testing.T, runningPolls int32) *httptest.Server {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/formrecognizer/documentModels/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerAPIKey) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
			return
		}
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "prebuilt-invoice:analyze") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"ModelNotFound","message":"no such model"}}`))
			return
		}
		if r.URL.Query().Get("api-version") != DefaultAPIVersion {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "document-bytes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set(headerOperationLocation, srv.URL+"/operations/abc123")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&polls, 1) <= runningPolls {
			w.Header().Set(headerRetryAfter, "2")
			_, _ = w.Write([]byte(`{"status":"running"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"apiVersion": DefaultAPIVersion,
				"modelId":    "prebuilt-invoice",
				"content":    "INVOICE 42",
				"pages": []any{map[string]any{
					"pageNumber": 1,
					"lines":      []any{map[string]any{"content": "INVOICE 42", "polygon": []float64{0, 0, 1, 0}}},
				}},
				"documents": []any{map[string]any{
					"docType":    "invoice",
					"confidence": 0.97,
					"fields": map[string]any{
						"InvoiceId": map[string]any{"type": "string", "valueString": "42", "content": "42", "confidence": 0.96},
						"DueDate":   map[string]any{"type": "date", "valueDate": "2024-02-01", "confidence": 0.9},
					},
				}},
			},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPBackend_SubmitAndPoll(t *testing.T) {
	srv := newAnalyzeServer(t, 1)
	b := NewHTTPBackend(srv.URL+"/", "secret")

	op, err := b.Submit(context.Background(), SubmitRequest{ModelID: "prebuilt-invoice", Content: []byte("document-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "abc123", op.ID)

	first, err := b.Poll(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, first.Status)
	assert.Equal(t, 2*time.Second, first.RetryAfter)

	second, err := b.Poll(context.Background(), op)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, second.Status)
	require.NotNil(t, second.Result)
	assert.Equal(t, "INVOICE 42", second.Result.Content)
	assert.Equal(t, "2024-02-01", *second.Result.Documents[0].Fields["DueDate"].ValueDate)
}

func TestHTTPBackend_WithEngine(t *testing.T) {
	srv := newAnalyzeServer(t, 2)
	clock := newFakeClock()
	e := NewEngine(NewHTTPBackend(srv.URL, "secret"), registry.Default(), WithClock(clock))

	res, err := e.Analyze(context.Background(), []byte("document-bytes"), "invoice", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Invoice", res.DocumentType)
	assert.Equal(t, 0.97, res.Confidence)
	assert.Equal(t, "2024-02-01", res.ExtractedData["DueDate"].Value)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}, clock.waits)
}

func TestHTTPBackend_RejectedModel(t *testing.T) {
	srv := newAnalyzeServer(t, 0)
	b := NewHTTPBackend(srv.URL, "secret")

	_, err := b.Submit(context.Background(), SubmitRequest{ModelID: "custom-model", Content: []byte("document-bytes")})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.Status)
	assert.Equal(t, "ModelNotFound", be.Code)
	assert.Equal(t, "no such model", be.Message)
}

func TestHTTPBackend_Unauthorized(t *testing.T) {
	srv := newAnalyzeServer(t, 0)
	b := NewHTTPBackend(srv.URL, "wrong")

	_, err := b.Submit(context.Background(), SubmitRequest{ModelID: "prebuilt-invoice", Content: []byte("document-bytes")})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
}

func TestHTTPBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := NewHTTPBackend(url, "secret")
	_, err := b.Submit(context.Background(), SubmitRequest{ModelID: "prebuilt-invoice", Content: []byte("x")})
	assert.True(t, IsBackendError(err))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, time.Duration(0), retryAfter("soon"))
	assert.Equal(t, time.Duration(0), retryAfter("-1"))
}

func TestOperationID(t *testing.T) {
	assert.Equal(t, "xyz", operationID("https://host/formrecognizer/documentModels/m/analyzeResults/xyz?api-version=1"))
	assert.Equal(t, "xyz", operationID("https://host/ops/xyz/"))
}
