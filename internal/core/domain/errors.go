package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrievalUnavailable means both retrieval strategies failed. It is
	// the only query-time failure that surfaces to the caller; everything
	// else degrades.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrConfiguration is fatal at initialization, never at query time.
	ErrConfiguration = errors.New("invalid configuration")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
