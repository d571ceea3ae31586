package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"hrkb/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	getErr  error
	docs    map[string]*domain.Document
}

func (f *ingestRepoFake) SaveChunks(context.Context, *domain.Document, []domain.Chunk) error {
	return nil
}
func (f *ingestRepoFake) DeleteByDocument(context.Context, string) error { return nil }
func (f *ingestRepoFake) ListAll(context.Context) ([]domain.Chunk, error) {
	return nil, nil
}
func (f *ingestRepoFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
}
func (f *ingestRepoFake) UpdateDocumentStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}
func (f *ingestRepoFake) CreateDocument(_ context.Context, doc *domain.Document) error {
	f.created = doc
	return nil
}

type ingestStorageFake struct {
	saved map[string]string
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}
func (f *ingestStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	text, ok := f.saved[key]
	if !ok {
		return nil, errors.New("missing key " + key)
	}
	return io.NopCloser(bytes.NewReader([]byte(text))), nil
}
func (f *ingestStorageFake) Delete(_ context.Context, key string) error {
	delete(f.saved, key)
	return nil
}

type ingestQueueFake struct {
	ingested []string
	deleted  []string
}

func (f *ingestQueueFake) PublishDocumentIngested(_ context.Context, id string) error {
	f.ingested = append(f.ingested, id)
	return nil
}
func (f *ingestQueueFake) PublishDocumentDeleted(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *ingestQueueFake) SubscribeDocumentEvents(context.Context, func(context.Context, string) error, func(context.Context, string) error) error {
	return nil
}

func TestUploadStoresAndQueues(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), " 员工手册 ", " HR ", strings.NewReader("正文内容"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Title != "员工手册" || doc.Department != "hr" {
		t.Fatalf("expected trimmed title and lowercase department, got %+v", doc)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if repo.created == nil || repo.created.ID != doc.ID {
		t.Fatalf("document metadata not persisted")
	}
	if got := storage.saved[doc.ID]; got != "正文内容" {
		t.Fatalf("raw text not stored under document id, got %q", got)
	}
	if len(queue.ingested) != 1 || queue.ingested[0] != doc.ID {
		t.Fatalf("ingestion event not published: %v", queue.ingested)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	uc := NewIngestUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	if _, err := uc.Upload(context.Background(), "", "hr", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing title: expected ErrInvalidInput, got %v", err)
	}
	if _, err := uc.Upload(context.Background(), "t", "  ", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing department: expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	uc := NewIngestUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})
	err := uc.Delete(context.Background(), "nope")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDeletePublishesEvent(t *testing.T) {
	repo := &ingestRepoFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Status: domain.StatusIndexed},
	}}
	queue := &ingestQueueFake{}
	uc := NewIngestUseCase(repo, &ingestStorageFake{}, queue)

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "doc-1" {
		t.Fatalf("delete event not published: %v", queue.deleted)
	}
}
