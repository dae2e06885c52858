package knowledge

import (
	"context"
	"errors"
)

// Sentinel errors for retrieval operations.
var (
	// ErrUnknownPartition indicates the partition is not one of the defined set.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrEmptyQuery indicates the search query was empty.
	ErrEmptyQuery = errors.New("empty query")
)

// Retriever returns ranked passages from one knowledge partition.
//
// Implementations must return passages sorted by descending Score with no
// duplicate IDs within a single call. Callers bound each call with their own
// timeout; implementations must respect ctx cancellation.
type Retriever interface {
	Search(ctx context.Context, partition Partition, query string, k int) ([]Passage, error)
}
