// Package ingest indexes guide HTML into the knowledge base.
//
// A Runner parses each file into documents and upserts them through an
// Indexer. Runs take an exclusive file lock so two concurrent ingests cannot
// interleave their upserts.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mlbb-ai/coach/internal/knowledge"
)

// Indexer is the slice of the knowledge store the runner needs.
type Indexer interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// Runner ingests guide files into one partition.
type Runner struct {
	indexer  Indexer
	lockPath string
	logger   *slog.Logger
}

// NewRunner creates a Runner. lockPath is the lock file guarding the run
// (empty uses the system temp directory); logger may be nil.
func NewRunner(indexer Indexer, lockPath string, logger *slog.Logger) *Runner {
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "mlbb-coach-ingest.lock")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{indexer: indexer, lockPath: lockPath, logger: logger}
}

// Stats summarizes one ingest run.
type Stats struct {
	Files     int
	Documents int
}

// Run parses and indexes the given files into partition. It fails fast when
// another ingest holds the lock, and stops at the first file that cannot be
// parsed or indexed so a broken export is noticed rather than half-applied.
func (r *Runner) Run(ctx context.Context, partition knowledge.Partition, files []string) (Stats, error) {
	var stats Stats
	if len(files) == 0 {
		return stats, fmt.Errorf("no input files")
	}

	lock := flock.New(r.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return stats, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return stats, fmt.Errorf("another ingest is already running (lock %s)", r.lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, err := r.ingestFile(ctx, partition, path)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Documents += n
		r.logger.Info("ingested file", "path", path, "documents", n)
	}
	return stats, nil
}

func (r *Runner) ingestFile(ctx context.Context, partition knowledge.Partition, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	docs, err := ParseGuide(f, partition, filepath.Base(path))
	if err != nil {
		return 0, err
	}

	for _, doc := range docs {
		if err := r.indexer.Add(ctx, doc); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
	}
	return len(docs), nil
}
