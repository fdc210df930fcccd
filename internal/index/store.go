// Package index stores search index entries in a bleve index with a fixed mapping.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/storage"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("entry not found")

// Store is the index store used by the indexer and the query engine.
type Store interface {
	Put(ctx context.Context, entry *models.SearchIndexEntry) error
	// PutBatch writes all entries in one batch; it fails as a whole.
	PutBatch(ctx context.Context, entries []*models.SearchIndexEntry) error
	Get(ctx context.Context, id string) (*models.SearchIndexEntry, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)
	DocCount() (uint64, error)
	SizeBytes() (int64, error)
	Close() error
}

// BleveStore implements Store. An empty path keeps the index in memory.
type BleveStore struct {
	index bleve.Index
	path  string
}

// Open creates or opens a bleve index at path.
// An existing index is reopened with the mapping it was created with; remove the
// directory after changing the mapping to rebuild it.
func Open(path string) (*BleveStore, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &BleveStore{index: idx}, nil
	}
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return &BleveStore{index: idx, path: path}, nil
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &BleveStore{index: idx, path: path}, nil
}

func (s *BleveStore) Put(ctx context.Context, entry *models.SearchIndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := toDocument(entry)
	if err != nil {
		return err
	}
	if err := s.index.Index(entry.ID, doc); err != nil {
		return fmt.Errorf("index %s: %w", entry.ID, err)
	}
	return nil
}

func (s *BleveStore) PutBatch(ctx context.Context, entries []*models.SearchIndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := s.index.NewBatch()
	for _, e := range entries {
		doc, err := toDocument(e)
		if err != nil {
			return err
		}
		if err := batch.Index(e.ID, doc); err != nil {
			return fmt.Errorf("batch %s: %w", e.ID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

func (s *BleveStore) Get(ctx context.Context, id string) (*models.SearchIndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	req.Fields = []string{FieldSource}
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, ErrNotFound
	}
	return DecodeSource(res.Hits[0].Fields[FieldSource])
}

func (s *BleveStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.index.Delete(id)
}

func (s *BleveStore) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	return s.index.SearchInContext(ctx, req)
}

func (s *BleveStore) DocCount() (uint64, error) {
	return s.index.DocCount()
}

// SizeBytes is the on-disk size of the index directory, or 0 for an in-memory index.
func (s *BleveStore) SizeBytes() (int64, error) {
	u, err := storage.MeasureUsage("", s.path)
	if err != nil {
		return 0, err
	}
	return u.IndexBytes, nil
}

func (s *BleveStore) Close() error {
	return s.index.Close()
}
