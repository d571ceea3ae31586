package domain

import "time"

type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusIndexing DocumentStatus = "indexing"
	StatusIndexed  DocumentStatus = "indexed"
	StatusFailed   DocumentStatus = "failed"
)

// Document is the ingestion-boundary view of a source document: raw text
// plus the department that owns it. The retrieval core never reads the
// text again after chunking.
type Document struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Department string         `json:"department"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
