package ports

import (
	"context"
	"io"

	"hrkb/internal/core/domain"
)

// QueryRouter is the inbound contract for one routed retrieval call.
type QueryRouter interface {
	Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteDecision, error)
}

// DocumentIngestor accepts raw text at the ingestion boundary and queues
// it for indexing.
type DocumentIngestor interface {
	Upload(ctx context.Context, title, department string, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentIndexer is the worker-side contract: chunk, embed and index one
// uploaded document, or cascade a delete through every index.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
	RemoveByID(ctx context.Context, documentID string) error
}
