package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/fileid"
	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/pipeline"
)

// DefaultMaxFileSize is the largest inbox file submitted for analysis.
const DefaultMaxFileSize = 50 << 20

// Submitter queues documents for processing.
type Submitter interface {
	Submit(ctx context.Context, req pipeline.SubmitRequest) (*models.Job, error)
}

// Remover deletes index entries.
type Remover interface {
	Delete(ctx context.Context, id string) error
}

// Ingest submits inbox files to the pipeline and removes the index entries of deleted files.
// Document IDs come from fileid, so rewriting a file replaces its entry.
type Ingest struct {
	submitter Submitter
	remover   Remover
	maxSize   int64
	logger    *zap.Logger
}

// NewIngest creates an Ingest. remover may be nil to keep entries of deleted files.
func NewIngest(submitter Submitter, remover Remover, logger *zap.Logger) *Ingest {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingest{submitter: submitter, remover: remover, maxSize: DefaultMaxFileSize, logger: logger}
}

func (in *Ingest) FileReady(ctx context.Context, inbox Inbox, path string) {
	job, err := in.submit(ctx, inbox, path)
	if err != nil {
		in.logger.Warn("inbox file not submitted", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("inbox file submitted",
		zap.String("path", path),
		zap.String("org", inbox.OrganizationID),
		zap.String("job_id", job.ID),
		zap.String("document_id", job.DocumentID))
}

func (in *Ingest) submit(ctx context.Context, inbox Inbox, path string) (*models.Job, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if info.Size() > in.maxSize {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), in.maxSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return in.submitter.Submit(ctx, pipeline.SubmitRequest{
		Content:        content,
		OrganizationID: inbox.OrganizationID,
		ClientID:       inbox.ClientID,
		CategoryHint:   inbox.Category,
		FileName:       filepath.Base(path),
		DocumentID:     fileid.DocumentID(inbox.OrganizationID, path),
	})
}

func (in *Ingest) FileRemoved(ctx context.Context, inbox Inbox, path string) {
	if in.remover == nil {
		return
	}
	id := fileid.DocumentID(inbox.OrganizationID, path)
	if err := in.remover.Delete(ctx, id); err != nil {
		in.logger.Warn("failed to remove entry of deleted file", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("removed entry of deleted file", zap.String("path", path), zap.String("document_id", id))
}
