package usecase

import (
	"context"
	"fmt"
	"sync"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// retrieveBoth runs the dense and sparse strategies concurrently. One
// failing side degrades the result; both failing makes retrieval
// unavailable for this call.
func retrieveBoth(
	ctx context.Context,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	sparse ports.SparseIndex,
	query string,
	departments []string,
	limit int,
) (dense, lexical []domain.Candidate, degraded domain.Degradations, err error) {
	var (
		wg        sync.WaitGroup
		denseErr  error
		sparseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		queryVector, embedErr := embedder.EmbedQuery(ctx, query)
		if embedErr != nil {
			denseErr = fmt.Errorf("embed query: %w", embedErr)
			return
		}
		dense, denseErr = vectors.Search(ctx, queryVector, departments, limit)
		if denseErr != nil {
			denseErr = fmt.Errorf("dense search: %w", denseErr)
		}
	}()
	go func() {
		defer wg.Done()
		lexical, sparseErr = sparse.Search(ctx, query, departments, limit)
		if sparseErr != nil {
			sparseErr = fmt.Errorf("sparse search: %w", sparseErr)
		}
	}()
	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		return nil, nil, degraded, domain.WrapError(
			domain.ErrRetrievalUnavailable,
			"hybrid retrieval",
			fmt.Errorf("%v; %v", denseErr, sparseErr),
		)
	}

	degraded.DenseFailed = denseErr != nil
	degraded.SparseFailed = sparseErr != nil
	if denseErr != nil {
		dense = nil
	}
	if sparseErr != nil {
		lexical = nil
	}
	return dense, lexical, degraded, nil
}
