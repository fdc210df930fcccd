package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/indexer"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/internal/search"
	"github.com/hyperjump/shorui/internal/storage"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{search.ErrMissingTenant, http.StatusBadRequest},
		{&search.QueryError{Field: "top", Message: "must be positive"}, http.StatusBadRequest},
		{fmt.Errorf("submit: %w", pipeline.ErrMissingOrganization), http.StatusBadRequest},
		{&indexer.IndexingError{ID: "x", Err: indexer.ErrMissingOrganization}, http.StatusBadRequest},
		{&indexer.IndexingError{ID: "x", Err: indexer.ErrOrganizationMismatch}, http.StatusConflict},
		{index.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get: %w", storage.ErrJobNotFound), http.StatusNotFound},
		{fmt.Errorf("analyze: %w", analysis.ErrTimeout), http.StatusGatewayTimeout},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&analysis.BackendError{Op: "submit", ModelID: "prebuilt-invoice", Status: 500}, http.StatusBadGateway},
		{pipeline.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
