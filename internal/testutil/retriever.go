package testutil

import (
	"context"
	"sync"

	"github.com/mlbb-ai/coach/internal/knowledge"
)

// FakeRetriever serves canned passages per partition.
//
// Safe for concurrent use; the assembler queries partitions in parallel.
type FakeRetriever struct {
	mu       sync.Mutex
	passages map[knowledge.Partition][]knowledge.Passage
	errs     map[knowledge.Partition]error
	queries  []string
}

// NewFakeRetriever creates an empty retriever.
func NewFakeRetriever() *FakeRetriever {
	return &FakeRetriever{
		passages: make(map[knowledge.Partition][]knowledge.Passage),
		errs:     make(map[knowledge.Partition]error),
	}
}

// Seed sets the passages returned for a partition.
func (f *FakeRetriever) Seed(p knowledge.Partition, passages ...knowledge.Passage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passages[p] = passages
}

// FailPartition makes one partition's searches fail.
func (f *FakeRetriever) FailPartition(p knowledge.Partition, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[p] = err
}

// Queries returns every query string seen so far.
func (f *FakeRetriever) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Search implements knowledge.Retriever.
func (f *FakeRetriever) Search(ctx context.Context, p knowledge.Partition, query string, k int) ([]knowledge.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	if err := f.errs[p]; err != nil {
		return nil, err
	}
	out := f.passages[p]
	if len(out) > k {
		out = out[:k]
	}
	return append([]knowledge.Passage(nil), out...), nil
}
