package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// IndexUseCase is the worker-side pipeline: read stored text, chunk it,
// embed the chunks and publish them into every index. RemoveByID is the
// cascading inverse.
type IndexUseCase struct {
	repo    ports.ChunkRepository
	storage ports.ObjectStorage
	chunker ports.Chunker
	embedd  ports.Embedder
	vectors ports.VectorStore
	sparse  ports.SparseIndex
}

func NewIndexUseCase(
	repo ports.ChunkRepository,
	storage ports.ObjectStorage,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	sparse ports.SparseIndex,
) *IndexUseCase {
	return &IndexUseCase{
		repo:    repo,
		storage: storage,
		chunker: chunker,
		embedd:  embedder,
		vectors: vectors,
		sparse:  sparse,
	}
}

func (uc *IndexUseCase) IndexByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateDocumentStatus(ctx, documentID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	if err := uc.indexPipeline(ctx, documentID); err != nil {
		if failErr := uc.repo.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateDocumentStatus(ctx, documentID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *IndexUseCase) indexPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.readText(ctx, doc.ID)
	if err != nil {
		return err
	}

	chunks := uc.chunker.Split(text, doc.ID, doc.Department)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedd.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectors.UpsertChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector store: %w", err)
	}
	if err := uc.repo.SaveChunks(ctx, doc, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	uc.sparse.Add(chunks)
	return nil
}

func (uc *IndexUseCase) readText(ctx context.Context, key string) (string, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open stored text: %w", err)
	}
	defer func() { _ = reader.Close() }()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read stored text: %w", err)
	}
	if len(raw) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "read stored text", errors.New("empty document text"))
	}
	return string(raw), nil
}

// RemoveByID clears the document from every index before dropping its
// metadata. Each stage runs even when an earlier one fails so a partial
// outage cannot leave orphaned chunks behind.
func (uc *IndexUseCase) RemoveByID(ctx context.Context, documentID string) error {
	var errs []error
	if err := uc.vectors.DeleteByDocument(ctx, documentID); err != nil {
		errs = append(errs, fmt.Errorf("delete from vector store: %w", err))
	}
	uc.sparse.DeleteByDocument(documentID)
	if err := uc.repo.DeleteByDocument(ctx, documentID); err != nil {
		errs = append(errs, fmt.Errorf("delete chunk metadata: %w", err))
	}
	if err := uc.storage.Delete(ctx, documentID); err != nil {
		errs = append(errs, fmt.Errorf("delete stored text: %w", err))
	}
	return errors.Join(errs...)
}
