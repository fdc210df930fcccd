// Package indexer publishes search index entries to the index store with tenant checks
// and per-item failure tracking.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/index"
	"github.com/hyperjump/shorui/internal/models"
)

var (
	// ErrMissingOrganization rejects entries without a tenant. Retrying cannot fix it.
	ErrMissingOrganization = errors.New("entry has no organizationId")
	ErrMissingID           = errors.New("entry has no id")
	// ErrOrganizationMismatch rejects writes that would move an entry to another tenant.
	ErrOrganizationMismatch = errors.New("organizationId cannot be changed")
)

// IndexingError wraps a failure to index one entry.
type IndexingError struct {
	ID  string
	Err error
}

func (e *IndexingError) Error() string {
	if e.ID == "" {
		return "index entry: " + e.Err.Error()
	}
	return fmt.Sprintf("index entry %s: %v", e.ID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// Indexer writes entries to an index.Store.
type Indexer struct {
	store  index.Store
	now    func() time.Time
	logger *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithNow sets the time source for lastModified stamps.
func WithNow(now func() time.Time) IndexerOption {
	return func(idx *Indexer) {
		if now != nil {
			idx.now = now
		}
	}
}

// NewIndexer creates an Indexer over store.
func NewIndexer(store index.Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// prepare validates entry and returns a canonical copy ready to write.
func (idx *Indexer) prepare(entry *models.SearchIndexEntry) (*models.SearchIndexEntry, error) {
	if entry == nil {
		return nil, &IndexingError{Err: ErrMissingID}
	}
	if entry.ID == "" {
		return nil, &IndexingError{Err: ErrMissingID}
	}
	if entry.OrganizationID == "" {
		return nil, &IndexingError{ID: entry.ID, Err: ErrMissingOrganization}
	}
	e := *entry
	now := idx.now()
	if e.UploadedAt.IsZero() {
		e.UploadedAt = now
	}
	if e.LastModified.IsZero() {
		e.LastModified = now
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	if e.Concepts == nil {
		e.Concepts = []string{}
	}
	if e.ComplianceFlags == nil {
		e.ComplianceFlags = []string{}
	}
	e.Canonicalize()
	return &e, nil
}

// checkOwner fails when id is already stored under another organization.
func (idx *Indexer) checkOwner(ctx context.Context, e *models.SearchIndexEntry) error {
	existing, err := idx.store.Get(ctx, e.ID)
	switch {
	case errors.Is(err, index.ErrNotFound):
		return nil
	case err != nil:
		return &IndexingError{ID: e.ID, Err: err}
	case existing.OrganizationID != e.OrganizationID:
		return &IndexingError{ID: e.ID, Err: ErrOrganizationMismatch}
	}
	return nil
}

// IndexOne writes a single entry, replacing any entry with the same id in the
// same organization.
func (idx *Indexer) IndexOne(ctx context.Context, entry *models.SearchIndexEntry) error {
	e, err := idx.prepare(entry)
	if err != nil {
		return err
	}
	if err := idx.checkOwner(ctx, e); err != nil {
		return err
	}
	if err := idx.store.Put(ctx, e); err != nil {
		return &IndexingError{ID: e.ID, Err: err}
	}
	idx.logger.Debug("entry indexed", zap.String("id", e.ID), zap.String("org", e.OrganizationID))
	return nil
}

// IndexBatch writes entries and reports each one's outcome. It never fails as a whole:
// invalid entries are reported and skipped, and if the store rejects the batch the
// remaining entries are retried one by one so only the offending ones fail.
func (idx *Indexer) IndexBatch(ctx context.Context, entries []*models.SearchIndexEntry) models.BatchResult {
	res := models.BatchResult{SuccessfulIDs: []string{}, Failed: []models.BatchFailure{}}
	ready := make([]*models.SearchIndexEntry, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		e, err := idx.prepare(entry)
		if err == nil {
			err = idx.checkOwner(ctx, e)
		}
		if err == nil {
			if org, seen := owners[e.ID]; seen && org != e.OrganizationID {
				err = &IndexingError{ID: e.ID, Err: ErrOrganizationMismatch}
			}
		}
		if err != nil {
			res.Failed = append(res.Failed, failure(entry, err))
			continue
		}
		owners[e.ID] = e.OrganizationID
		ready = append(ready, e)
	}
	if len(ready) == 0 {
		return res
	}

	err := idx.store.PutBatch(ctx, ready)
	if err == nil {
		for _, e := range ready {
			res.SuccessfulIDs = append(res.SuccessfulIDs, e.ID)
		}
		idx.logger.Debug("batch indexed", zap.Int("ok", len(ready)), zap.Int("failed", len(res.Failed)))
		return res
	}
	idx.logger.Warn("batch rejected, indexing items individually", zap.Int("items", len(ready)), zap.Error(err))

	for _, e := range ready {
		if err := idx.store.Put(ctx, e); err != nil {
			res.Failed = append(res.Failed, failure(e, err))
			continue
		}
		res.SuccessfulIDs = append(res.SuccessfulIDs, e.ID)
	}
	return res
}

func failure(entry *models.SearchIndexEntry, err error) models.BatchFailure {
	f := models.BatchFailure{ErrorMessage: err.Error()}
	if entry != nil {
		f.ID = entry.ID
	}
	return f
}

// Update merges partial into the stored entry; nil fields are left untouched.
// A missing entry is created from partial, which then needs an organizationId.
// organizationId is never cleared and cannot change.
func (idx *Indexer) Update(ctx context.Context, partial *models.PartialEntry) error {
	if partial == nil || partial.ID == "" {
		return &IndexingError{Err: ErrMissingID}
	}
	existing, err := idx.store.Get(ctx, partial.ID)
	switch {
	case errors.Is(err, index.ErrNotFound):
		existing = &models.SearchIndexEntry{ID: partial.ID}
	case err != nil:
		return &IndexingError{ID: partial.ID, Err: err}
	default:
		if partial.OrganizationID != nil && *partial.OrganizationID != "" && *partial.OrganizationID != existing.OrganizationID {
			return &IndexingError{ID: partial.ID, Err: ErrOrganizationMismatch}
		}
	}

	merged := Merge(existing, partial)
	if partial.LastModified == nil {
		merged.LastModified = idx.now()
	}
	return idx.IndexOne(ctx, merged)
}

// Delete removes id. Deleting an unknown id is not an error.
func (idx *Indexer) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &IndexingError{Err: ErrMissingID}
	}
	if err := idx.store.Delete(ctx, id); err != nil {
		return &IndexingError{ID: id, Err: err}
	}
	idx.logger.Debug("entry deleted", zap.String("id", id))
	return nil
}

// Statistics reports the document count and on-disk size of the index.
func (idx *Indexer) Statistics(ctx context.Context) (models.IndexStatistics, error) {
	if err := ctx.Err(); err != nil {
		return models.IndexStatistics{}, err
	}
	count, err := idx.store.DocCount()
	if err != nil {
		return models.IndexStatistics{}, fmt.Errorf("doc count: %w", err)
	}
	size, err := idx.store.SizeBytes()
	if err != nil {
		return models.IndexStatistics{}, fmt.Errorf("index size: %w", err)
	}
	return models.IndexStatistics{DocumentCount: count, StorageSizeBytes: size}, nil
}

// IsReady reports whether the index store answers requests.
func (idx *Indexer) IsReady(ctx context.Context) bool {
	if idx.store == nil || ctx.Err() != nil {
		return false
	}
	_, err := idx.store.DocCount()
	return err == nil
}
