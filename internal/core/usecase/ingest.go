package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// IngestUseCase accepts raw document text, persists it, and queues it for
// asynchronous indexing by the worker.
type IngestUseCase struct {
	repo    ports.ChunkRepository
	storage ports.ObjectStorage
	queue   ports.IngestQueue
}

func NewIngestUseCase(
	repo ports.ChunkRepository,
	storage ports.ObjectStorage,
	queue ports.IngestQueue,
) *IngestUseCase {
	return &IngestUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestUseCase) Upload(
	ctx context.Context,
	title, department string,
	body io.Reader,
) (*domain.Document, error) {
	title = strings.TrimSpace(title)
	department = strings.ToLower(strings.TrimSpace(department))
	if title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("title is required"))
	}
	if department == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("department is required"))
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, id, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:         id,
		Title:      title,
		Department: department,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	if _, err := uc.repo.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if err := uc.queue.PublishDocumentDeleted(ctx, documentID); err != nil {
		return fmt.Errorf("publish delete event: %w", err)
	}
	return nil
}
