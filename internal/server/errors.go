package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/hyperjump/shorui/internal/analysis"
	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/indexer"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/internal/search"
	"github.com/hyperjump/shorui/internal/storage"
)

// statusFor maps a component error to the HTTP status returned to the caller.
func statusFor(err error) int {
	var qe *search.QueryError
	switch {
	case errors.As(err, &qe),
		errors.Is(err, search.ErrMissingTenant),
		errors.Is(err, pipeline.ErrMissingOrganization),
		errors.Is(err, pipeline.ErrEmptyDocument),
		errors.Is(err, indexer.ErrMissingOrganization),
		errors.Is(err, indexer.ErrMissingID):
		return http.StatusBadRequest
	case errors.Is(err, indexer.ErrOrganizationMismatch):
		return http.StatusConflict
	case isNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case analysis.IsBackendError(err):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, index.ErrNotFound) || errors.Is(err, storage.ErrJobNotFound)
}
